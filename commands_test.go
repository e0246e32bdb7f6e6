package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const testMGF = `BEGIN IONS
SCANS=3,4
100 1
END IONS
BEGIN IONS
MSLEVEL=1
100 1
END IONS
BEGIN IONS
100 1
END IONS
`

type result struct {
	code   int
	stdout string
	stderr string
}

func runCmd(t *testing.T, env map[string]string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr, func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestVersion(t *testing.T) {
	r := runCmd(t, nil, "--version")
	require.Equal(t, 0, r.code)
	require.True(t, strings.HasPrefix(r.stdout, progName+" version "), r.stdout)
}

func TestMissingInput(t *testing.T) {
	for _, args := range [][]string{
		{"index"},
		{"index", "-i", "a.mzML"},
		{"batch", "-o", "out"},
	} {
		r := runCmd(t, nil, args...)
		require.Equal(t, 0, r.code, args)
		require.Equal(t, "Input spectra and output folder are required.\n", r.stdout)
	}
}

func TestIndex(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, filepath.Join(dir, "run1.mgf"), testMGF)
	out := filepath.Join(dir, "out")

	r := runCmd(t, nil, "index", "-i", in, "-o", out)
	require.Equal(t, 0, r.code, r.stderr)
	require.Equal(t, "scan=3,scan=4\t2\t0\nindex=1\t1\t-1\nindex=2\t2\t1\n",
		readFile(t, filepath.Join(out, "run1.scans")))
	require.Contains(t, r.stderr, "MS1s found in MGF file, proceed with caution!")
}

func TestIndexUnderscoreFlags(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, filepath.Join(dir, "sub", "run1.mgf"), testMGF)
	out := filepath.Join(dir, "out")

	r := runCmd(t, nil, "index", "--input_spectrum", in, "--output_folder", out, "--input_root", dir, "--quiet")
	require.Equal(t, 0, r.code, r.stderr)
	require.Empty(t, r.stderr)
	_, err := os.Stat(filepath.Join(out, "sub", "run1.scans"))
	require.NoError(t, err)
}

func TestIndexUnsupported(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, filepath.Join(dir, "run1.raw"), "raw")
	out := filepath.Join(dir, "out")

	r := runCmd(t, nil, "index", "-i", in, "-o", out)
	require.Equal(t, 1, r.code)
	require.Contains(t, r.stderr, "unknown filetype")

	errDir := filepath.Join(dir, "errors")
	require.NoError(t, os.MkdirAll(errDir, 0o755))
	r = runCmd(t, nil, "index", "-i", in, "-o", out, "-e", errDir)
	require.Equal(t, 0, r.code, r.stderr)
	content := readFile(t, filepath.Join(errDir, "run1.raw"))
	require.Equal(t, 1, strings.Count(content, "\n"))
	require.Contains(t, content, "unknown filetype")
	_, err := os.Stat(filepath.Join(out, "run1.scans"))
	require.True(t, os.IsNotExist(err))
}

func TestIndexInvalidLevel(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, filepath.Join(dir, "run1.mgf"), testMGF)
	r := runCmd(t, nil, "index", "-i", in, "-o", filepath.Join(dir, "out"), "-l", "two")
	require.Equal(t, 1, r.code)
	require.Contains(t, r.stderr, "invalid default MS level")
}

func TestIndexConfigAndEnv(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, filepath.Join(dir, "run1.mgf"), testMGF)
	cfgOut := filepath.Join(dir, "cfg-out")
	envOut := filepath.Join(dir, "env-out")
	cfg := writeFile(t, filepath.Join(dir, "cfg.yaml"), "output_dir: "+cfgOut+"\n")

	r := runCmd(t, nil, "--config", cfg, "index", "-i", in)
	require.Equal(t, 0, r.code, r.stderr)
	_, err := os.Stat(filepath.Join(cfgOut, "run1.scans"))
	require.NoError(t, err)

	r = runCmd(t, map[string]string{"SPECTRUMINDEX_OUTPUT_DIR": envOut, "SPECTRUMINDEX_DEBUG": "1"},
		"--config", cfg, "index", "-i", in)
	require.Equal(t, 0, r.code, r.stderr)
	_, err = os.Stat(filepath.Join(envOut, "run1.scans"))
	require.NoError(t, err)
	require.Contains(t, r.stderr, "configuration")
}

func TestBatch(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "in", "a.mgf"), testMGF)
	b := writeFile(t, filepath.Join(dir, "in", "b.mzXML"), `<mzXML><msRun><scan num="1"/></msRun></mzXML>`)
	list := writeFile(t, filepath.Join(dir, "list.txt"), a+"\n\n"+b+"\n")
	out := filepath.Join(dir, "out")

	r := runCmd(t, nil, "batch", "-s", list, "-o", out, "--jobs", "2", "--cache-root", "", "--input-root", filepath.Join(dir, "in"))
	require.Equal(t, 0, r.code, r.stderr)
	require.Equal(t, "scan=1\t2\t0\n", readFile(t, filepath.Join(out, "b.scans")))
	_, err := os.Stat(filepath.Join(out, "a.scans"))
	require.NoError(t, err)
}

func TestBatchKeepsStructure(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "in", "a", "run.mgf"), testMGF)
	b := writeFile(t, filepath.Join(dir, "in", "b", "run.mgf"), `BEGIN IONS
SCANS=7
100 1
END IONS
`)
	list := writeFile(t, filepath.Join(dir, "list.txt"), a+"\n"+b+"\n")
	out := filepath.Join(dir, "out")

	r := runCmd(t, nil, "batch", "-s", list, "-o", out, "--cache-root", "")
	require.Equal(t, 0, r.code, r.stderr)
	rel := strings.TrimLeft(filepath.ToSlash(filepath.Join(dir, "in")), "/")
	require.Equal(t, "scan=7\t2\t0\n", readFile(t, filepath.Join(out, filepath.FromSlash(rel), "b", "run.scans")))
	require.Contains(t, readFile(t, filepath.Join(out, filepath.FromSlash(rel), "a", "run.scans")), "scan=3,scan=4")
}

func TestBatchFailures(t *testing.T) {
	dir := t.TempDir()
	raw := writeFile(t, filepath.Join(dir, "in", "x.raw"), "raw")
	list := writeFile(t, filepath.Join(dir, "list.txt"), raw+"\n")
	r := runCmd(t, nil, "batch", "-s", list, "-o", filepath.Join(dir, "out"))
	require.Equal(t, 1, r.code)
	require.Contains(t, r.stderr, "files failed")
}

const testParams = `<parameters>
<parameter name="upload_file_mapping">spec-00000.mgf|f.user/data/a.mgf</parameter>
<parameter name="upload_file_mapping">spec-00001.raw|f.user/data/b.raw</parameter>
</parameters>
`

func TestDemangleAndCombineErrors(t *testing.T) {
	dir := t.TempDir()
	params := writeFile(t, filepath.Join(dir, "params.xml"), testParams)
	mangled := filepath.Join(dir, "mangled")
	writeFile(t, filepath.Join(mangled, "spec-00000.mgf"), testMGF)
	writeFile(t, filepath.Join(mangled, "spec-00001.raw"), "raw")
	demangled := filepath.Join(dir, "demangled")

	r := runCmd(t, nil, "demangle", "-p", params, "-i", mangled, "-o", demangled)
	require.Equal(t, 0, r.code, r.stderr)
	require.Equal(t, testMGF, readFile(t, filepath.Join(demangled, "f.userX9ZxTU0xlREnVkmEdataX9ZxTU0xlREnVkmEa.mgf")))

	errDir := filepath.Join(dir, "errors")
	require.NoError(t, os.MkdirAll(errDir, 0o755))
	r = runCmd(t, nil, "combine-errors", "-p", params, "-e", errDir)
	require.Equal(t, 0, r.code, r.stderr)
	require.Empty(t, r.stdout)

	r = runCmd(t, nil, "index", "-i", filepath.Join(mangled, "spec-00001.raw"), "-o", filepath.Join(dir, "out"), "-e", errDir)
	require.Equal(t, 0, r.code, r.stderr)
	r = runCmd(t, nil, "combine-errors", "--proteosafe_paramxml", params, "--error_folder", errDir)
	require.Equal(t, 1, r.code)
	require.Equal(t, "There is 1 file that is malformed.  Please check the following:\n\n\t(1) f.user/data/b.raw\n\n", r.stdout)
}

func TestDemangleLogsParams(t *testing.T) {
	dir := t.TempDir()
	params := writeFile(t, filepath.Join(dir, "params.xml"), testParams)
	mangled := filepath.Join(dir, "mangled")
	writeFile(t, filepath.Join(mangled, "spec-00000.mgf"), testMGF)

	r := runCmd(t, map[string]string{"SPECTRUMINDEX_DEBUG": "1"},
		"demangle", "-p", params, "-i", mangled, "-o", filepath.Join(dir, "demangled"))
	require.Equal(t, 0, r.code, r.stderr)
	require.Contains(t, r.stderr, "read workflow parameters")
	require.Contains(t, r.stderr, "upload_file_mapping")
}

func TestDemangleMissingArgs(t *testing.T) {
	r := runCmd(t, nil, "demangle", "-p", "params.xml")
	require.Equal(t, 1, r.code)
	r = runCmd(t, nil, "combine-errors")
	require.Equal(t, 1, r.code)
}

func TestMerge(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, filepath.Join(dir, "run1.mgf"), testMGF)
	out := filepath.Join(dir, "out")
	require.Equal(t, 0, runCmd(t, nil, "index", "-i", in, "-o", out).code)

	merged := filepath.Join(dir, "merged.tsv")
	r := runCmd(t, nil, "merge", "-i", out, "-o", merged)
	require.Equal(t, 0, r.code, r.stderr)
	require.Equal(t, "filename\tnativeid\tmslevel\tms2plusindex\n"+
		"run1.scans\tscan=3,scan=4\t2\t0\n"+
		"run1.scans\tindex=1\t1\t-1\n"+
		"run1.scans\tindex=2\t2\t1\n", readFile(t, merged))

	require.Equal(t, 1, runCmd(t, nil, "merge", "-i", out).code)
}
