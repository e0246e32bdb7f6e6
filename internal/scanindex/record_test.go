package scanindex

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestCounter(t *testing.T) {
	var c Counter
	levels := []int{1, 2, 2, 0, 3, 1, 2}
	want := []int{-1, 0, 1, -1, 2, -1, 3}
	for i, level := range levels {
		require.Equal(t, want[i], c.Assign(level), "scan %d", i)
	}
	require.Equal(t, 4, c.Count())
}

func TestCounterRecord(t *testing.T) {
	var c Counter
	require.Equal(t, ScanRecord{"scan=1", 1, -1}, c.Record("scan=1", 1))
	require.Equal(t, ScanRecord{"scan=2", 2, 0}, c.Record("scan=2", 2))
}

func TestWriteReadIndex(t *testing.T) {
	records := []ScanRecord{
		{"controllerType=0 controllerNumber=1 scan=1", 1, -1},
		{"scan=3,scan=4", 2, 0},
		{"index=2", 2, 1},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteIndex(&buf, records))
	require.Equal(t, "controllerType=0 controllerNumber=1 scan=1\t1\t-1\n"+
		"scan=3,scan=4\t2\t0\n"+
		"index=2\t2\t1\n", buf.String())

	got, err := ReadIndex(&buf)
	require.NoError(t, err)
	if diff := cmp.Diff(records, got); diff != "" {
		t.Errorf("index mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteEmptyIndex(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteIndex(&buf, nil))
	require.Zero(t, buf.Len())
}

func TestReadIndexErrors(t *testing.T) {
	_, err := ReadIndex(strings.NewReader("a\t1\n"))
	require.Error(t, err)
	_, err = ReadIndex(strings.NewReader("a\tx\t1\n"))
	require.Error(t, err)
	_, err = ReadIndex(strings.NewReader("a\t1\tx\n"))
	require.Error(t, err)
}

func TestErrorKinds(t *testing.T) {
	err := newError(StructuredParseFailure, "x.mzML", ErrUnknownFiletype)
	require.Equal(t, StructuredParseFailure, KindOf(err))
	require.ErrorIs(t, err, ErrUnknownFiletype)
	require.Equal(t, "StructuredParseFailure: unknown filetype", err.Error())
	require.Equal(t, Kind(0), KindOf(ErrMissingInput))
	require.Equal(t, "Kind(9)", Kind(9).String())
}
