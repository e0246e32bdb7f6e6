// Package mgf reads Mascot Generic Format peak lists.
//
// The structured Reader validates every line of the file, and only exposes
// the parameter block and the number of peaks of each spectrum. When the
// structured reader fails, CountBlocks can be used to recover a coarse
// spectrum count from the raw stream.
package mgf

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	// BeginMarker starts a spectrum block
	BeginMarker = `BEGIN IONS`
	// EndMarker ends a spectrum block
	EndMarker = `END IONS`

	// DefaultMSLevel is assumed when a spectrum has no MSLEVEL parameter
	DefaultMSLevel = 2
)

// Parameter names, always lower case
const (
	ParamMSLevel = `mslevel`
	ParamScans   = `scans`
	ParamPepMass = `pepmass`
	ParamCharge  = `charge`
)

var (
	// ErrPeakLine means a line inside a spectrum block is neither a parameter
	// nor a valid peak
	ErrPeakLine = errors.New("MGF: invalid peak line")
	// ErrUnterminated means the file ended inside a spectrum block
	ErrUnterminated = errors.New("MGF: spectrum block not terminated")
	// ErrParam means a parameter has a value that can't be interpreted
	ErrParam = errors.New("MGF: invalid parameter value")
)

var chargeRe = regexp.MustCompile(`^(\d+[+-]?|[+-]?\d+)$`)

// Spectrum is a single BEGIN IONS/END IONS block
type Spectrum struct {
	// Params holds the header parameters of the file, overridden by the
	// parameters of the block. Keys are lower case.
	Params   map[string]string
	NumPeaks int
	Line     int // line number of the BEGIN IONS marker
}

// MSLevel returns the value of the MSLEVEL parameter, or DefaultMSLevel if
// absent
func (s Spectrum) MSLevel() (int, error) {
	v, ok := s.Params[ParamMSLevel]
	if !ok {
		return DefaultMSLevel, nil
	}
	level, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || level < 0 {
		return 0, errors.Wrapf(ErrParam, "line %d: MSLEVEL=%s", s.Line, v)
	}
	return level, nil
}

// NativeID returns scan=<n>[,scan=<m>...] when the spectrum has a SCANS
// parameter, otherwise index=<index>, where index is the position of the
// spectrum among all spectra of the file
func (s Spectrum) NativeID(index int) string {
	scans := strings.TrimSpace(s.Params[ParamScans])
	if scans == `` {
		return `index=` + strconv.Itoa(index)
	}
	parts := strings.Split(scans, `,`)
	for i, p := range parts {
		parts[i] = `scan=` + strings.TrimSpace(p)
	}
	return strings.Join(parts, `,`)
}

// Reader provides streaming access to the spectra of an MGF file
type Reader struct {
	r       *bufio.Reader
	header  map[string]string
	lineNum int
	seen    bool // a BEGIN IONS marker was seen
	current Spectrum
	err     error
	done    bool
}

// NewReader creates a new MGF reader
func NewReader(r io.Reader) *Reader {
	return &Reader{
		r:      bufio.NewReaderSize(r, 64*1024),
		header: make(map[string]string),
	}
}

// Header returns the global parameters found before the first spectrum
func (r *Reader) Header() map[string]string {
	return r.header
}

// Next advances to the next spectrum. Returns false when there are no more
// spectra or on error.
func (r *Reader) Next() bool {
	if r.done {
		return false
	}
	spec, err := r.readSpectrum()
	if err != nil {
		if err != io.EOF {
			r.err = err
		}
		r.done = true
		return false
	}
	r.current = spec
	return true
}

// Spectrum returns the current spectrum
func (r *Reader) Spectrum() Spectrum {
	return r.current
}

// Err returns any error encountered during reading
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) readLine() (string, error) {
	line, err := r.r.ReadString('\n')
	if err == io.EOF && line != `` {
		err = nil
	}
	if err != nil {
		return ``, err
	}
	r.lineNum++
	return strings.TrimSpace(line), nil
}

func isComment(line string) bool {
	return line == `` || strings.ContainsRune(`#;!/`, rune(line[0]))
}

func splitParam(line string) (string, string) {
	kv := strings.SplitN(line, `=`, 2)
	return strings.ToLower(strings.TrimSpace(kv[0])), strings.TrimSpace(kv[1])
}

func (r *Reader) readSpectrum() (Spectrum, error) {
	// Skip to the next block. Parameters before the first block are
	// global, anything else outside a block is ignored.
	for {
		line, err := r.readLine()
		if err != nil {
			if err == io.EOF {
				return Spectrum{}, io.EOF
			}
			return Spectrum{}, errors.Wrapf(err, "line %d", r.lineNum+1)
		}
		if line == BeginMarker {
			r.seen = true
			break
		}
		if !r.seen && !isComment(line) && strings.Contains(line, `=`) {
			k, v := splitParam(line)
			r.header[k] = v
		}
	}

	spec := Spectrum{Params: make(map[string]string, len(r.header)+4), Line: r.lineNum}
	for k, v := range r.header {
		spec.Params[k] = v
	}
	for {
		line, err := r.readLine()
		if err != nil {
			if err == io.EOF {
				return spec, errors.Wrapf(ErrUnterminated, "block starting at line %d", spec.Line)
			}
			return spec, errors.Wrapf(err, "line %d", r.lineNum+1)
		}
		switch {
		case isComment(line):
		case line == EndMarker:
			if err := validateParams(spec); err != nil {
				return spec, err
			}
			return spec, nil
		case strings.Contains(line, `=`):
			k, v := splitParam(line)
			spec.Params[k] = v
		default:
			if err := checkPeak(line); err != nil {
				return spec, errors.Wrapf(err, "line %d", r.lineNum)
			}
			spec.NumPeaks++
		}
	}
}

// checkPeak verifies that a peak line starts with a numeric m/z value,
// optionally followed by a numeric intensity
func checkPeak(line string) error {
	fields := strings.Fields(line)
	if _, err := strconv.ParseFloat(fields[0], 64); err != nil {
		return errors.Wrapf(ErrPeakLine, "%q", line)
	}
	if len(fields) > 1 {
		if _, err := strconv.ParseFloat(fields[1], 64); err != nil {
			return errors.Wrapf(ErrPeakLine, "%q", line)
		}
	}
	return nil
}

func validateParams(spec Spectrum) error {
	if v, ok := spec.Params[ParamPepMass]; ok {
		fields := strings.Fields(v)
		if len(fields) == 0 {
			return errors.Wrapf(ErrParam, "line %d: PEPMASS=%s", spec.Line, v)
		}
		for _, f := range fields {
			if _, err := strconv.ParseFloat(f, 64); err != nil {
				return errors.Wrapf(ErrParam, "line %d: PEPMASS=%s", spec.Line, v)
			}
		}
	}
	if v, ok := spec.Params[ParamCharge]; ok && v != `` {
		for _, c := range strings.FieldsFunc(strings.ReplaceAll(v, ` and `, `,`), func(r rune) bool {
			return r == ',' || r == ' '
		}) {
			if !chargeRe.MatchString(c) {
				return errors.Wrapf(ErrParam, "line %d: CHARGE=%s", spec.Line, v)
			}
		}
	}
	return nil
}
