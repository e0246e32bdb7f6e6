package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	dir := t.TempDir()
	results := filepath.Join(dir, "results")
	writeFile(t, filepath.Join(results, "b.scans"), "index=0\t2\t0\n")
	writeFile(t, filepath.Join(results, "a.scans"), "scan=1\t1\t-1\nscan=2\t2\t0\n")
	writeFile(t, filepath.Join(results, "sub", "c.scans"), "")
	writeFile(t, filepath.Join(results, "notes.txt"), "ignored")

	files, err := IndexFiles(results)
	require.NoError(t, err)
	require.Len(t, files, 3)

	dest := filepath.Join(dir, "merged.tsv")
	n, err := Merge(results, dest)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, "filename\tnativeid\tmslevel\tms2plusindex\n"+
		"a.scans\tscan=1\t1\t-1\n"+
		"a.scans\tscan=2\t2\t0\n"+
		"b.scans\tindex=0\t2\t0\n", string(data))
}

func TestMergeInvalidIndex(t *testing.T) {
	dir := t.TempDir()
	results := filepath.Join(dir, "results")
	writeFile(t, filepath.Join(results, "a.scans"), "scan=1\tone\t0\n")
	dest := filepath.Join(dir, "merged.tsv")
	_, err := Merge(results, dest)
	require.Error(t, err)
	_, err = os.Stat(dest)
	require.True(t, os.IsNotExist(err))
}

func TestMergeMissingDir(t *testing.T) {
	_, err := Merge(filepath.Join(t.TempDir(), "nope"), filepath.Join(t.TempDir(), "m.tsv"))
	require.Error(t, err)
}
