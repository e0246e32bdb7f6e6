// Package batch indexes lists of spectrum files. Indexes that were computed
// before are copied from the repository cache instead of being recomputed.
package batch

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/524D/spectrumindex/internal/fsutil"
	"github.com/524D/spectrumindex/internal/scanindex"
)

// datasetRe matches MassIVE dataset accessions
var datasetRe = regexp.MustCompile(`^MSV[0-9]{9}$`)

var (
	// ErrFailed is returned by Run when files failed that were not written
	// to the error directory
	ErrFailed = errors.New("batch: files failed")
	// ErrDuplicateOutput means two inputs of a batch map to the same index
	// file
	ErrDuplicateOutput = errors.New("batch: duplicate output path")
)

// Options configure a batch run
type Options struct {
	Index scanindex.Options
	// CacheRoot is the repository root that holds cached indexes. Empty
	// disables the cache.
	CacheRoot string
	Jobs      int
	// FailFast stops the batch at the first failure that is not written to
	// the error directory
	FailFast bool
	// Progress receives a progress bar when not nil
	Progress io.Writer
}

// Status of a single file
type Status int

// Status values
const (
	Indexed Status = iota
	Cached
	Reported
	Failed
	Skipped
)

var statusNames = [...]string{`indexed`, `cached`, `reported`, `failed`, `skipped`}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return `unknown`
}

// FileResult is the result of one input of the batch
type FileResult struct {
	Input     string
	Status    Status
	IndexPath string
	Result    scanindex.Result
	Err       error
}

// Summary holds the results of a batch in input order
type Summary struct {
	Files []FileResult
}

// Count returns the number of files with status s
func (s Summary) Count(st Status) int {
	n := 0
	for _, f := range s.Files {
		if f.Status == st {
			n++
		}
	}
	return n
}

// ReadList reads input paths, one per line. Blank lines are skipped.
func ReadList(r io.Reader) ([]string, error) {
	var inputs []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t\r")
		if line == `` {
			continue
		}
		inputs = append(inputs, line)
	}
	return inputs, errors.Wrap(sc.Err(), "read input list")
}

// ReadListFile reads an input list file
func ReadListFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open input list")
	}
	defer f.Close()
	return ReadList(f)
}

// CachedIndex returns the location of the cached index of input, and
// whether it exists. Only dataset files have cached indexes; their paths
// look like demangledPeak/<dataset>/<collection>/<rest of path>.
func CachedIndex(cacheRoot, input string) (string, bool) {
	if cacheRoot == `` {
		return ``, false
	}
	elements := strings.Split(input, `/`)
	if len(elements) < 4 || !datasetRe.MatchString(elements[1]) {
		return ``, false
	}
	cached := filepath.Join(cacheRoot, elements[1], `ccms_metadata`, `ccms_peak`,
		strings.Join(elements[3:], `/`)+scanindex.IndexSuffix)
	info, err := os.Stat(cached)
	if err != nil || info.IsDir() {
		return ``, false
	}
	return cached, true
}

// OutputRel returns the path of the index of input relative to the output
// directory, before its format suffix is replaced. With a root, input is
// taken relative to root. Without one, the directory structure of input
// is kept, minus its first element: demangledPeak/<dataset>/x.mzML gives
// <dataset>/x.mzML, and absolute paths lose only their leading separator.
func OutputRel(root, input string) string {
	if root != `` {
		return scanindex.RelPath(root, input)
	}
	p := filepath.ToSlash(filepath.Clean(input))
	if filepath.IsAbs(input) {
		p = strings.TrimLeft(filepath.ToSlash(strings.TrimPrefix(p, filepath.VolumeName(p))), `/`)
	} else if i := strings.IndexByte(p, '/'); i >= 0 {
		p = p[i+1:]
	}
	if p == `` || p == `.` || p == `..` || strings.HasPrefix(p, `../`) {
		return filepath.Base(input)
	}
	return filepath.FromSlash(p)
}

// Runner indexes batches of files
type Runner struct {
	opts Options
	ix   *scanindex.Indexer
	log  *logrus.Entry
}

// New creates a Runner
func New(opts Options) *Runner {
	if opts.Jobs < 1 {
		opts.Jobs = 1
	}
	log := opts.Index.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
		opts.Index.Logger = log
	}
	return &Runner{opts: opts, ix: scanindex.New(opts.Index), log: log}
}

// Run processes all inputs. Every file runs its own pipeline; up to
// Options.Jobs files are processed at the same time. Failures that were
// written to the error directory don't make Run fail.
func (r *Runner) Run(ctx context.Context, inputs []string) (Summary, error) {
	start := time.Now()
	sum := Summary{Files: make([]FileResult, len(inputs))}
	for i, in := range inputs {
		sum.Files[i] = FileResult{Input: in, Status: Skipped}
	}

	rels, dupErr := r.claimOutputs(sum.Files)
	if dupErr != nil && r.opts.FailFast {
		return sum, errors.WithMessage(dupErr, "batch aborted")
	}

	var bar *progressbar.ProgressBar
	var barMu sync.Mutex
	if r.opts.Progress != nil {
		bar = progressbar.NewOptions(len(inputs),
			progressbar.OptionSetWriter(r.opts.Progress),
			progressbar.OptionSetDescription("indexing"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Jobs)
	for i, in := range inputs {
		i, in := i, in
		if sum.Files[i].Status == Failed {
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			fr := r.file(in, rels[i])
			sum.Files[i] = fr
			if bar != nil {
				barMu.Lock()
				bar.Describe(filepath.Base(in))
				bar.Add(1)
				barMu.Unlock()
			}
			if fr.Status == Failed && r.opts.FailFast {
				return fr.Err
			}
			return nil
		})
	}
	err := g.Wait()
	if bar != nil {
		bar.Finish()
	}

	r.log.WithFields(logrus.Fields{
		"files":    len(inputs),
		"indexed":  sum.Count(Indexed),
		"cached":   sum.Count(Cached),
		"reported": sum.Count(Reported),
		"failed":   sum.Count(Failed),
		"duration": time.Since(start),
	}).Info("batch done")

	if err != nil {
		return sum, errors.WithMessage(err, "batch aborted")
	}
	if n := sum.Count(Failed); n > 0 {
		return sum, errors.Wrapf(ErrFailed, "%d of %d", n, len(inputs))
	}
	return sum, nil
}

// claimOutputs computes the output path of every file. A file whose index
// would overwrite the index of an earlier file is marked Failed; the first
// such error is returned.
func (r *Runner) claimOutputs(files []FileResult) ([]string, error) {
	rels := make([]string, len(files))
	owner := make(map[string]string, len(files))
	var first error
	for i := range files {
		in := files[i].Input
		rels[i] = OutputRel(r.opts.Index.InputRoot, in)
		out := scanindex.IndexPath(r.opts.Index.OutputDir, rels[i])
		if prev, ok := owner[out]; ok {
			err := errors.Wrapf(ErrDuplicateOutput, "%s and %s both map to %s", prev, in, out)
			files[i].Status, files[i].Err = Failed, err
			r.log.WithError(err).WithField("file", in).Error("skipping input")
			if first == nil {
				first = err
			}
			continue
		}
		owner[out] = in
	}
	return rels, first
}

// file processes a single input
func (r *Runner) file(input, rel string) FileResult {
	fr := FileResult{Input: input}
	log := r.log.WithField("file", input)

	if cached, ok := CachedIndex(r.opts.CacheRoot, input); ok {
		fr.IndexPath = scanindex.IndexPath(r.opts.Index.OutputDir, rel)
		if err := fsutil.CopyFile(cached, fr.IndexPath); err != nil {
			fr.Status, fr.Err = Failed, err
			log.WithError(err).Error("copy cached index")
			return fr
		}
		fr.Status = Cached
		log.WithFields(logrus.Fields{"cached": cached, "index": fr.IndexPath}).
			Info("copied cached index")
		return fr
	}

	log.Debug("no cached index, generating")
	res, err := r.ix.RunAs(input, rel)
	fr.Result = res
	switch {
	case err != nil:
		fr.Status, fr.Err = Failed, err
		log.WithError(err).Error("failed to index")
	case res.Outcome == scanindex.Reported:
		fr.Status, fr.Err = Reported, res.Err
	default:
		fr.Status = Indexed
		fr.IndexPath = res.IndexPath
	}
	return fr
}
