// Package proteosafe reads ProteoSAFe workflow parameter files, and maps the
// mangled names of uploaded files back to the names the user uploaded.
package proteosafe

import (
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/html/charset"
)

// Parameter names
const (
	ParamUploadFileMapping = `upload_file_mapping`
)

// PlaceholderDelimiter replaces '/' when an uploaded path is flattened to a
// single file name. The value must match the one used by ProteoSAFe.
const PlaceholderDelimiter = `X9ZxTU0xlREnVkmE`

// ErrInvalidMapping means an upload_file_mapping value is not of the form
// mangled|original
var ErrInvalidMapping = errors.New("ProteoSAFe: invalid upload_file_mapping")

// Params holds the flattened content of a params.xml file. A parameter name
// can occur multiple times.
type Params struct {
	values map[string][]string
}

type paramsContent struct {
	XMLName   xml.Name    `xml:"parameters"`
	Parameter []parameter `xml:"parameter"`
}

type parameter struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

// Read reads params.xml content from an io.Reader
func Read(reader io.Reader) (Params, error) {
	p := Params{values: make(map[string][]string)}
	var content paramsContent
	d := xml.NewDecoder(reader)
	d.CharsetReader = charset.NewReaderLabel
	if err := d.Decode(&content); err != nil {
		return p, errors.Wrap(err, "read params")
	}
	for _, par := range content.Parameter {
		p.values[par.Name] = append(p.values[par.Name], par.Value)
	}
	return p, nil
}

// ReadFile reads a params.xml file
func ReadFile(path string) (Params, error) {
	f, err := os.Open(path)
	if err != nil {
		return Params{}, errors.Wrap(err, "open params")
	}
	defer f.Close()
	return Read(f)
}

// Values returns all values of parameter name, in file order
func (p Params) Values(name string) []string {
	return p.values[name]
}

// Names returns the sorted parameter names
func (p Params) Names() []string {
	names := make([]string, 0, len(p.values))
	for n := range p.values {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Upload is one entry of the upload file mapping
type Upload struct {
	Mangled  string // name of the file in the workflow
	Original string // path as uploaded by the user
}

// Uploads returns the upload_file_mapping entries
func (p Params) Uploads() ([]Upload, error) {
	var uploads []Upload
	for _, m := range p.values[ParamUploadFileMapping] {
		parts := strings.SplitN(m, `|`, 2)
		if len(parts) != 2 || parts[0] == `` {
			return nil, errors.Wrapf(ErrInvalidMapping, "%q", m)
		}
		uploads = append(uploads, Upload{Mangled: parts[0], Original: parts[1]})
	}
	return uploads, nil
}

// FlatName returns the original path flattened to a single file name
func (u Upload) FlatName() string {
	return strings.ReplaceAll(u.Original, `/`, PlaceholderDelimiter)
}

// stem returns the file name without its last extension
func stem(name string) string {
	name = filepath.Base(name)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
