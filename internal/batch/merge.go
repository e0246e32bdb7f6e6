package batch

import (
	"encoding/csv"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/524D/spectrumindex/internal/fsutil"
	"github.com/524D/spectrumindex/internal/scanindex"
)

// MergeHeader is the header row of a merged index
var MergeHeader = []string{`filename`, `nativeid`, `mslevel`, `ms2plusindex`}

// IndexFiles returns the index files below dir in lexical order
func IndexFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), scanindex.IndexSuffix) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "find index files")
	}
	sort.Strings(files)
	return files, nil
}

// Merge combines all index files below resultsDir into one tab separated
// file with a header. The first column holds the index file path relative
// to resultsDir. It returns the number of rows written.
func Merge(resultsDir, dest string) (int, error) {
	files, err := IndexFiles(resultsDir)
	if err != nil {
		return 0, err
	}
	rows := 0
	err = fsutil.WriteFile(dest, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		cw.Comma = '\t'
		if err := cw.Write(MergeHeader); err != nil {
			return errors.Wrap(err, "write header")
		}
		for _, f := range files {
			n, err := mergeFile(cw, resultsDir, f)
			if err != nil {
				return err
			}
			rows += n
		}
		cw.Flush()
		return errors.Wrap(cw.Error(), "write merged index")
	})
	return rows, err
}

func mergeFile(cw *csv.Writer, resultsDir, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, "open index")
	}
	defer f.Close()
	records, err := scanindex.ReadIndex(f)
	if err != nil {
		return 0, errors.WithMessage(err, path)
	}
	name, err := filepath.Rel(resultsDir, path)
	if err != nil {
		name = filepath.Base(path)
	}
	name = filepath.ToSlash(name)
	for _, r := range records {
		row := []string{name, r.NativeID, strconv.Itoa(r.MSLevel), strconv.Itoa(r.MS2PlusIndex)}
		if err := cw.Write(row); err != nil {
			return 0, errors.Wrap(err, "write merged index")
		}
	}
	return len(records), nil
}
