package scanindex

import (
	"bufio"
	"bytes"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

var gzipMagic = []byte{0x1f, 0x8b}

// input is an opened spectrum file. Reads are decompressed when the file
// content is gzip compressed. Read errors of the underlying file or the
// decompressor are remembered, so that a failing parser can be told apart
// from a failing file.
type input struct {
	f      *os.File
	gz     *gzip.Reader
	r      io.Reader
	ioErr  error
	Size   int64
	Gzip   bool
	closed bool
}

// openInput opens path for reading. Compression is detected from the
// content, not the name.
func openInput(path string) (*input, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	in := &input{f: f}
	if info, err := f.Stat(); err == nil {
		in.Size = info.Size()
	}

	br := bufio.NewReaderSize(f, 64*1024)
	magic, err := br.Peek(len(gzipMagic))
	if err != nil && err != io.EOF {
		f.Close()
		return nil, errors.Wrap(err, "read")
	}
	if bytes.Equal(magic, gzipMagic) {
		gz, err := gzip.NewReader(br)
		if err != nil {
			f.Close()
			return nil, errors.Wrap(err, "gzip")
		}
		in.gz = gz
		in.r = gz
		in.Gzip = true
	} else {
		in.r = br
	}
	return in, nil
}

func (in *input) Read(p []byte) (int, error) {
	n, err := in.r.Read(p)
	if err != nil && err != io.EOF && in.ioErr == nil {
		in.ioErr = err
	}
	return n, err
}

// IOErr returns the first read error of the file or decompressor
func (in *input) IOErr() error {
	return in.ioErr
}

func (in *input) Close() error {
	if in.closed {
		return nil
	}
	in.closed = true
	if in.gz != nil {
		in.gz.Close()
	}
	return in.f.Close()
}
