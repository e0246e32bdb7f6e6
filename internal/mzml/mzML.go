package mzml

import (
	"encoding/xml"
	"errors"
)

// CV terms used by the index
const (
	cvMSLevel     = `MS:1000511`
	cvMSLevelName = `ms level`
)

// Spectrum is the part of an mzML spectrum that is needed to index it
type Spectrum struct {
	Index   int    // index attribute as found in the file
	ID      string // native id, used verbatim
	MSLevel int    // resolved MS level
	// LevelSource tells where MSLevel came from
	LevelSource LevelSource
}

// LevelSource describes how the MS level of a spectrum was resolved
type LevelSource int

const (
	// LevelInline means the spectrum carried its own "ms level" term
	LevelInline LevelSource = iota
	// LevelParamGroup means the level came from a referenced param group
	LevelParamGroup
	// LevelDefault means neither the spectrum nor its groups declared a level
	LevelDefault
)

func (s LevelSource) String() string {
	switch s {
	case LevelInline:
		return `inline`
	case LevelParamGroup:
		return `paramGroup`
	default:
		return `default`
	}
}

// The mzML content that we read. Spectra are decoded one at a time,
// only the fields that are needed for the index are listed; everything
// else (binary data arrays, precursors, ...) is skipped by the decoder.
type spectrum struct {
	Index          int             `xml:"index,attr"`
	ID             string          `xml:"id,attr"`
	CvPar          []CVParam       `xml:"cvParam"`
	ParamGroupRefs []paramGroupRef `xml:"referenceableParamGroupRef"`
}

type paramGroupRef struct {
	Ref string `xml:"ref,attr"`
}

type referenceableParamGroup struct {
	ID    string    `xml:"id,attr"`
	CvPar []CVParam `xml:"cvParam"`
}

// CVParam contains values and attributes of a mzML Controlled Vocabulary term
// (http://www.peptideatlas.org/tmp/mzML1.1.0.html)
type CVParam struct {
	Accession     string `xml:"accession,attr,omitempty"`
	Name          string `xml:"name,attr,omitempty"`
	Value         string `xml:"value,attr,omitempty"`
	UnitCvRef     string `xml:"unitCvRef,attr,omitempty"`
	UnitAccession string `xml:"unitAccession,attr,omitempty"`
	UnitName      string `xml:"unitName,attr,omitempty"`
}

func isElement(t xml.StartElement, name string) bool {
	return t.Name.Local == name
}

var (
	// ErrNoSpectrumID means a spectrum without id attribute was found
	ErrNoSpectrumID = errors.New("MzML: spectrum without id")
	// ErrInvalidMSLevel means the value of an "ms level" term is not an integer
	ErrInvalidMSLevel = errors.New("MzML: invalid ms level")
	// ErrDuplicateParamGroup means two param groups share the same id
	ErrDuplicateParamGroup = errors.New("MzML: duplicate referenceableParamGroup id")
)
