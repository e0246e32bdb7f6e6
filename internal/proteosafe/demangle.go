package proteosafe

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Link is a symbolic link created by Demangle
type Link struct {
	Target string // absolute path of the mangled input
	Path   string // created link
}

// Demangle creates, for every entry of inputDir, a symbolic link in outputDir
// that carries the original upload name. Entries without mapping keep their
// mangled name.
func Demangle(uploads []Upload, inputDir, outputDir string) ([]Link, error) {
	names := make(map[string]string, len(uploads))
	for _, u := range uploads {
		names[u.Mangled] = u.FlatName()
	}

	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, errors.Wrap(err, "read input folder")
	}
	var links []Link
	for _, e := range entries {
		target, err := filepath.Abs(filepath.Join(inputDir, e.Name()))
		if err != nil {
			return links, errors.Wrapf(err, "resolve %s", e.Name())
		}
		name, ok := names[e.Name()]
		if !ok {
			name = e.Name()
		}
		link := filepath.Join(outputDir, name)
		if err := os.MkdirAll(filepath.Dir(link), 0o755); err != nil {
			return links, errors.Wrap(err, "create output folder")
		}
		if err := os.Symlink(target, link); err != nil {
			return links, errors.Wrapf(err, "link %s", e.Name())
		}
		links = append(links, Link{Target: target, Path: link})
	}
	return links, nil
}

// MalformedFiles returns the original upload names of the inputs that have
// an error file in errorDir, sorted. Error files are matched on the stem
// of their name; files without mapping are reported by their own name.
func MalformedFiles(uploads []Upload, errorDir string) ([]string, error) {
	originals := make(map[string]string, len(uploads))
	for _, u := range uploads {
		originals[stem(u.Mangled)] = u.Original
	}

	var malformed []string
	err := filepath.WalkDir(errorDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if orig, ok := originals[stem(d.Name())]; ok {
			malformed = append(malformed, orig)
		} else {
			malformed = append(malformed, d.Name())
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "read error folder")
	}
	sort.Strings(malformed)
	return malformed, nil
}

// WriteReport writes the message that lists the malformed files. Nothing is
// written when the list is empty.
func WriteReport(w io.Writer, malformed []string) error {
	if len(malformed) == 0 {
		return nil
	}
	verb, plural := `is`, ``
	if len(malformed) > 1 {
		verb, plural = `are`, `s`
	}
	var b strings.Builder
	fmt.Fprintf(&b, "There %s %d file%s that %s malformed.  Please check the following:\n\n",
		verb, len(malformed), plural, verb)
	for i, m := range malformed {
		fmt.Fprintf(&b, "\t(%d) %s\n", i+1, m)
	}
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}
