package mgf

import (
	"bufio"
	"bytes"
	"io"

	"github.com/pkg/errors"
)

var beginMarker = []byte(BeginMarker)

// CountBlocks counts the lines that contain the BEGIN IONS marker. It
// doesn't interpret anything else, so it also works on files that the
// structured Reader rejects.
func CountBlocks(r io.Reader) (int, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	n := 0
	for {
		line, err := br.ReadBytes('\n')
		if bytes.Contains(line, beginMarker) {
			n++
		}
		if err != nil {
			if err == io.EOF {
				return n, nil
			}
			return n, errors.Wrap(err, "counting spectrum blocks")
		}
	}
}
