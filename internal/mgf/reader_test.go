package mgf

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const testMGF = `COM=test file
MSLEVEL=2
# comment line

BEGIN IONS
TITLE=first
PEPMASS=445.12 1000
CHARGE=2+
SCANS=3,4
100.1 20
200.2 30.5
END IONS

BEGIN IONS
TITLE=second
MSLEVEL=1
100.1	20
END IONS
BEGIN IONS
TITLE=third
CHARGE=2+ and 3+
END IONS
`

func readAll(t *testing.T, doc string) ([]Spectrum, error) {
	t.Helper()
	r := NewReader(strings.NewReader(doc))
	var specs []Spectrum
	for r.Next() {
		specs = append(specs, r.Spectrum())
	}
	return specs, r.Err()
}

func TestReader(t *testing.T) {
	specs, err := readAll(t, testMGF)
	require.NoError(t, err)
	require.Len(t, specs, 3)

	require.Equal(t, "first", specs[0].Params["title"])
	require.Equal(t, 2, specs[0].NumPeaks)
	require.Equal(t, 5, specs[0].Line)
	require.Equal(t, "scan=3,scan=4", specs[0].NativeID(0))

	level, err := specs[1].MSLevel()
	require.NoError(t, err)
	require.Equal(t, 1, level)
	require.Equal(t, "index=1", specs[1].NativeID(1))

	// MSLEVEL from the header applies to blocks that don't set it
	level, err = specs[2].MSLevel()
	require.NoError(t, err)
	require.Equal(t, 2, level)
}

func TestHeader(t *testing.T) {
	r := NewReader(strings.NewReader(testMGF))
	require.True(t, r.Next())
	require.Equal(t, map[string]string{"com": "test file", "mslevel": "2"}, r.Header())
}

func TestDefaultMSLevel(t *testing.T) {
	specs, err := readAll(t, "BEGIN IONS\n100 1\nEND IONS\n")
	require.NoError(t, err)
	level, err := specs[0].MSLevel()
	require.NoError(t, err)
	require.Equal(t, DefaultMSLevel, level)
}

func TestInvalidMSLevel(t *testing.T) {
	specs, err := readAll(t, "BEGIN IONS\nMSLEVEL=two\nEND IONS\n")
	require.NoError(t, err)
	_, err = specs[0].MSLevel()
	require.True(t, errors.Is(err, ErrParam), "got %v", err)
}

func TestNativeIDEmptyScans(t *testing.T) {
	s := Spectrum{Params: map[string]string{ParamScans: " "}}
	require.Equal(t, "index=7", s.NativeID(7))
	s = Spectrum{Params: map[string]string{ParamScans: "10, 11"}}
	require.Equal(t, "scan=10,scan=11", s.NativeID(7))
}

func TestReaderErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		err  error
	}{
		{"bad peak", "BEGIN IONS\nabc 12\nEND IONS\n", ErrPeakLine},
		{"bad intensity", "BEGIN IONS\n100 abc\nEND IONS\n", ErrPeakLine},
		{"nested block", "BEGIN IONS\nBEGIN IONS\nEND IONS\n", ErrPeakLine},
		{"unterminated", "BEGIN IONS\n100 1\n", ErrUnterminated},
		{"bad pepmass", "BEGIN IONS\nPEPMASS=abc\nEND IONS\n", ErrParam},
		{"bad charge", "BEGIN IONS\nCHARGE=two\nEND IONS\n", ErrParam},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := readAll(t, tc.doc)
			require.True(t, errors.Is(err, tc.err), "got %v", err)
		})
	}
}

func TestEmpty(t *testing.T) {
	specs, err := readAll(t, ``)
	require.NoError(t, err)
	require.Empty(t, specs)
}

func TestNoTrailingNewline(t *testing.T) {
	specs, err := readAll(t, "BEGIN IONS\n100 1\nEND IONS")
	require.NoError(t, err)
	require.Len(t, specs, 1)
}

func TestCountBlocks(t *testing.T) {
	n, err := CountBlocks(strings.NewReader(testMGF))
	require.NoError(t, err)
	require.Equal(t, 3, n)

	corrupt := "BEGIN IONS\nxx\nBEGIN IONS\n\x00\x01BEGIN IONS junk\nEND IONS\nBEGIN IONS\nBEGIN IONS"
	n, err = CountBlocks(strings.NewReader(corrupt))
	require.NoError(t, err)
	require.Equal(t, 5, n)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestCountBlocksReadError(t *testing.T) {
	_, err := CountBlocks(failingReader{})
	require.True(t, errors.Is(err, io.ErrUnexpectedEOF), "got %v", err)
}
