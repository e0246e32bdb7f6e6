package scanindex

import (
	"encoding/csv"
	"io"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
)

// IndexSuffix is the suffix of scan index files
const IndexSuffix = `.scans`

// WriteIndex writes records as tab separated rows
// (native id, MS level, MS2+ index) without header
func WriteIndex(w io.Writer, records []ScanRecord) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	row := make([]string, 3)
	for _, r := range records {
		row[0] = r.NativeID
		row[1] = strconv.Itoa(r.MSLevel)
		row[2] = strconv.Itoa(r.MS2PlusIndex)
		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, "write index")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "write index")
}

// ReadIndex reads an index written by WriteIndex
func ReadIndex(r io.Reader) ([]ScanRecord, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = 3
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read index")
	}
	records := make([]ScanRecord, 0, len(rows))
	for i, row := range rows {
		level, err := strconv.Atoi(row[1])
		if err != nil {
			return nil, errors.Wrapf(err, "read index row %d", i+1)
		}
		ms2plus, err := strconv.Atoi(row[2])
		if err != nil {
			return nil, errors.Wrapf(err, "read index row %d", i+1)
		}
		records = append(records, ScanRecord{NativeID: row[0], MSLevel: level, MS2PlusIndex: ms2plus})
	}
	return records, nil
}

// RelPath returns the path of input relative to root. When root is empty,
// or input is not below root, the base name of input is returned.
func RelPath(root, input string) string {
	if root != `` {
		rel, err := filepath.Rel(root, input)
		if err == nil && rel != `..` && !filepath.IsAbs(rel) &&
			!hasParentPrefix(rel) {
			return rel
		}
	}
	return filepath.Base(input)
}

func hasParentPrefix(rel string) bool {
	return len(rel) >= 3 && rel[:3] == `..`+string(filepath.Separator)
}

// IndexPath returns the location of the index of an input file with
// relative path rel: the format suffix of rel is replaced by IndexSuffix
func IndexPath(outputDir, rel string) string {
	return filepath.Join(outputDir, stripFormatSuffix(rel)+IndexSuffix)
}

// ErrorPath returns the location of the error file of an input file with
// relative path rel
func ErrorPath(errorDir, rel string) string {
	return filepath.Join(errorDir, rel)
}
