package scanindex

import (
	"path/filepath"
	"strings"
)

// FormatTag identifies the format of a spectrum file
type FormatTag string

// The supported formats. Any other tag is the concatenated suffix chain of
// an unsupported file.
const (
	FormatMzXML  FormatTag = `mzxml`
	FormatMzML   FormatTag = `mzml`
	FormatMzMLGz FormatTag = `mzml.gz`
	FormatMGF    FormatTag = `mgf`
	FormatMGFGz  FormatTag = `mgf.gz`
)

// Suffixes that identify a format
const (
	suffixMzML  = `.mzml`
	suffixMGF   = `.mgf`
	suffixMzXML = `.mzxml`
	suffixGz    = `.gz`
)

// Supported reports whether files with this tag can be indexed
func (f FormatTag) Supported() bool {
	switch f {
	case FormatMzXML, FormatMzML, FormatMzMLGz, FormatMGF, FormatMGFGz:
		return true
	}
	return false
}

// suffixes returns the suffixes of the last element of path, e.g.
// [".b", ".mzML", ".gz"] for "dir/a.b.mzML.gz". Leading dots of hidden
// files don't start a suffix.
func suffixes(path string) []string {
	name := filepath.Base(path)
	if strings.HasSuffix(name, `.`) {
		return nil
	}
	name = strings.TrimLeft(name, `.`)
	parts := strings.Split(name, `.`)
	if len(parts) < 2 {
		return nil
	}
	s := make([]string, 0, len(parts)-1)
	for _, p := range parts[1:] {
		s = append(s, `.`+p)
	}
	return s
}

func contains(list []string, s string) bool {
	for _, l := range list {
		if l == s {
			return true
		}
	}
	return false
}

// DetectFormat determines the format of a spectrum file from its
// (case-insensitive) suffixes. It never opens the file.
func DetectFormat(path string) FormatTag {
	sfx := suffixes(strings.ToLower(path))
	gz := contains(sfx, suffixGz)
	switch {
	case contains(sfx, suffixMzML):
		if gz {
			return FormatMzMLGz
		}
		return FormatMzML
	case contains(sfx, suffixMGF):
		if gz {
			return FormatMGFGz
		}
		return FormatMGF
	case contains(sfx, suffixMzXML):
		return FormatMzXML
	}
	return FormatTag(strings.Join(sfx, ``))
}

// stripFormatSuffix removes the last suffix that identifies a format, and
// everything after it, from the base name of path
func stripFormatSuffix(path string) string {
	sfx := suffixes(path)
	cut := 0
	for i := len(sfx) - 1; i >= 0; i-- {
		switch strings.ToLower(sfx[i]) {
		case suffixMzML, suffixMGF, suffixMzXML:
			for _, s := range sfx[i:] {
				cut += len(s)
			}
			return path[:len(path)-cut]
		}
	}
	if len(sfx) > 0 {
		return path[:len(path)-len(sfx[len(sfx)-1])]
	}
	return path
}
