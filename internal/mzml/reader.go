package mzml

import (
	"encoding/xml"
	"io"
	"strconv"

	"github.com/pkg/errors"
	"golang.org/x/net/html/charset"
)

// ParamGroupTable maps the id of a referenceableParamGroup to the MS level
// it declares. Groups that don't declare a level are present with ok=false
// from Level.
type ParamGroupTable struct {
	levels map[string]int // noLevel when the group has no "ms level" term
}

const noLevel = -1

// Level returns the MS level declared by group id
func (t ParamGroupTable) Level(id string) (int, bool) {
	level, ok := t.levels[id]
	return level, ok && level != noLevel
}

// Len returns the number of declared groups
func (t ParamGroupTable) Len() int {
	return len(t.levels)
}

func newDecoder(reader io.Reader) *xml.Decoder {
	d := xml.NewDecoder(reader)
	d.CharsetReader = charset.NewReaderLabel
	return d
}

// ReadParamGroups traverses a complete mzML document and collects the
// MS level of every referenceableParamGroup. Groups may be declared anywhere
// in the document, so the whole stream is read. Spectra and chromatograms
// are skipped without being decoded.
func ReadParamGroups(reader io.Reader) (ParamGroupTable, error) {
	table := ParamGroupTable{levels: make(map[string]int)}

	d := newDecoder(reader)
	for {
		t, tokenErr := d.Token()
		if tokenErr != nil {
			if tokenErr == io.EOF {
				break
			}
			return table, errors.Wrap(tokenErr, "reading param groups")
		}
		start, ok := t.(xml.StartElement)
		if !ok {
			continue
		}
		switch {
		case isElement(start, "spectrum"), isElement(start, "chromatogram"):
			if err := d.Skip(); err != nil {
				return table, errors.Wrap(err, "reading param groups")
			}
		case isElement(start, "referenceableParamGroup"):
			var group referenceableParamGroup
			if err := d.DecodeElement(&group, &start); err != nil {
				return table, errors.Wrap(err, "reading param groups")
			}
			if _, dup := table.levels[group.ID]; dup {
				return table, errors.Wrapf(ErrDuplicateParamGroup, "group %q", group.ID)
			}
			level, found, err := msLevel(group.CvPar)
			if err != nil {
				return table, errors.WithMessagef(err, "group %q", group.ID)
			}
			if !found {
				level = noLevel
			}
			table.levels[group.ID] = level
		}
	}
	return table, nil
}

// msLevel returns the value of the "ms level" term in a list of cvParams.
// The term is recognized by accession or by name.
func msLevel(cvParams []CVParam) (int, bool, error) {
	for _, cvParam := range cvParams {
		if cvParam.Accession == cvMSLevel || cvParam.Name == cvMSLevelName {
			level, err := strconv.Atoi(cvParam.Value)
			if err != nil || level < 0 {
				return 0, true, errors.Wrapf(ErrInvalidMSLevel, "value %q", cvParam.Value)
			}
			return level, true, nil
		}
	}
	return 0, false, nil
}

// SpectrumReader walks the spectra of an mzML file in file order.
// Use Next to advance, Spectrum to get the current spectrum and Err
// to check for errors after Next returned false.
type SpectrumReader struct {
	d              *xml.Decoder
	groups         ParamGroupTable
	defaultMSLevel int
	current        Spectrum
	err            error
	done           bool
}

// NewSpectrumReader creates a reader that resolves MS levels using groups,
// and falls back to defaultMSLevel when a spectrum has no level at all
func NewSpectrumReader(reader io.Reader, groups ParamGroupTable, defaultMSLevel int) *SpectrumReader {
	return &SpectrumReader{
		d:              newDecoder(reader),
		groups:         groups,
		defaultMSLevel: defaultMSLevel,
	}
}

// Next advances to the next spectrum. Returns false at the end of the
// document or on error.
func (r *SpectrumReader) Next() bool {
	if r.done {
		return false
	}
	for {
		t, tokenErr := r.d.Token()
		if tokenErr != nil {
			if tokenErr != io.EOF {
				r.err = errors.Wrap(tokenErr, "reading spectra")
			}
			r.done = true
			return false
		}
		start, ok := t.(xml.StartElement)
		if !ok {
			continue
		}
		switch {
		case isElement(start, "chromatogram"), isElement(start, "referenceableParamGroupList"):
			if err := r.d.Skip(); err != nil {
				r.fail(errors.Wrap(err, "reading spectra"))
				return false
			}
		case isElement(start, "spectrum"):
			var s spectrum
			if err := r.d.DecodeElement(&s, &start); err != nil {
				r.fail(errors.Wrap(err, "reading spectra"))
				return false
			}
			spec, err := r.resolve(s)
			if err != nil {
				r.fail(err)
				return false
			}
			r.current = spec
			return true
		}
	}
}

func (r *SpectrumReader) fail(err error) {
	r.err = err
	r.done = true
}

func (r *SpectrumReader) resolve(s spectrum) (Spectrum, error) {
	spec := Spectrum{Index: s.Index, ID: s.ID}
	if s.ID == `` {
		return spec, errors.Wrapf(ErrNoSpectrumID, "spectrum index %d", s.Index)
	}

	level, found, err := msLevel(s.CvPar)
	if err != nil {
		return spec, errors.WithMessagef(err, "spectrum %q", s.ID)
	}
	if found {
		spec.MSLevel = level
		spec.LevelSource = LevelInline
		return spec, nil
	}
	for _, ref := range s.ParamGroupRefs {
		if level, ok := r.groups.Level(ref.Ref); ok {
			spec.MSLevel = level
			spec.LevelSource = LevelParamGroup
			return spec, nil
		}
	}
	spec.MSLevel = r.defaultMSLevel
	spec.LevelSource = LevelDefault
	return spec, nil
}

// Spectrum returns the current spectrum
func (r *SpectrumReader) Spectrum() Spectrum {
	return r.current
}

// Err returns the error that stopped the reader, if any
func (r *SpectrumReader) Err() error {
	return r.err
}
