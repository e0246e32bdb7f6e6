// Package mzxml walks the scans of an mzXML file without decoding peak data
package mzxml

import (
	"encoding/xml"
	"io"
	"strconv"

	"github.com/pkg/errors"
	"golang.org/x/net/html/charset"
)

// DefaultMSLevel is assumed for scans that have no msLevel attribute
const DefaultMSLevel = 2

// Scan contains the attributes of an mzXML scan element that are used for
// indexing
type Scan struct {
	Num     int
	MSLevel int
	// LevelMissing is true when the scan had no msLevel attribute and
	// DefaultMSLevel was used
	LevelMissing bool
}

// NativeID returns the native id of the scan, which for mzXML is always
// derived from the scan number
func (s Scan) NativeID() string {
	return `scan=` + strconv.Itoa(s.Num)
}

var (
	// ErrNoScanNum means a scan element without num attribute was found
	ErrNoScanNum = errors.New("MzXML: scan without num attribute")
	// ErrInvalidAttr means an integer attribute could not be parsed
	ErrInvalidAttr = errors.New("MzXML: invalid scan attribute")
)

// ScanReader returns all scan elements of an mzXML document in document
// order. Child scans, which mzXML nests inside their precursor scan, are
// returned directly after their parent.
type ScanReader struct {
	d       *xml.Decoder
	current Scan
	err     error
	done    bool
}

// NewScanReader creates a ScanReader
func NewScanReader(reader io.Reader) *ScanReader {
	d := xml.NewDecoder(reader)
	d.CharsetReader = charset.NewReaderLabel
	return &ScanReader{d: d}
}

// Next advances to the next scan
func (r *ScanReader) Next() bool {
	if r.done {
		return false
	}
	for {
		t, tokenErr := r.d.Token()
		if tokenErr != nil {
			if tokenErr != io.EOF {
				r.err = errors.Wrap(tokenErr, "reading scans")
			}
			r.done = true
			return false
		}
		start, ok := t.(xml.StartElement)
		if !ok || start.Name.Local != "scan" {
			continue
		}
		scan, err := parseScan(start)
		if err != nil {
			r.err = err
			r.done = true
			return false
		}
		r.current = scan
		return true
	}
}

func parseScan(start xml.StartElement) (Scan, error) {
	scan := Scan{MSLevel: DefaultMSLevel, LevelMissing: true}
	haveNum := false
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "num":
			n, err := strconv.Atoi(attr.Value)
			if err != nil {
				return scan, errors.Wrapf(ErrInvalidAttr, "num %q", attr.Value)
			}
			scan.Num = n
			haveNum = true
		case "msLevel":
			level, err := strconv.Atoi(attr.Value)
			if err != nil || level < 0 {
				return scan, errors.Wrapf(ErrInvalidAttr, "msLevel %q", attr.Value)
			}
			scan.MSLevel = level
			scan.LevelMissing = false
		}
	}
	if !haveNum {
		return scan, ErrNoScanNum
	}
	return scan, nil
}

// Scan returns the current scan
func (r *ScanReader) Scan() Scan {
	return r.current
}

// Err returns the error that stopped the reader, if any
func (r *ScanReader) Err() error {
	return r.err
}
