// Package scanindex builds scan indexes of mzML, mzXML and MGF files.
//
// For every spectrum of a file the index holds the native id, the MS level
// and the position of the spectrum among the MS2+ spectra of the file
// (or NoMS2PlusIndex for MS1 spectra). Indexes are written as tab separated
// files, one per input.
package scanindex

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/524D/spectrumindex/internal/fsutil"
)

// Options configure an Indexer
type Options struct {
	OutputDir string
	// ErrorDir receives one error file per input that failed. When it is
	// empty or doesn't exist, failures are returned to the caller.
	ErrorDir string
	// InputRoot is the directory that input paths are relative to when
	// computing output paths. If empty, only base names are used.
	InputRoot string
	// DefaultMSLevel is used for mzML spectra that don't declare a level
	DefaultMSLevel int
	Logger         *logrus.Entry
}

// Outcome tells what happened to an input
type Outcome int

const (
	// Indexed means the index file was written
	Indexed Outcome = iota
	// Reported means the input failed and the failure was written to the
	// error directory
	Reported
)

func (o Outcome) String() string {
	if o == Reported {
		return `reported`
	}
	return `indexed`
}

// Result describes the result of Run
type Result struct {
	Outcome   Outcome
	Format    FormatTag
	Records   int
	IndexPath string
	ErrorPath string
	Err       *Error // set when Outcome is Reported
}

// Indexer creates scan indexes. An Indexer keeps no state between files,
// and can be used for multiple files concurrently.
type Indexer struct {
	opts Options
	log  *logrus.Entry
}

// New creates an Indexer
func New(opts Options) *Indexer {
	log := opts.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Indexer{opts: opts, log: log}
}

// Extract reads the scans of a spectrum file. Failures are returned as
// *Error.
func (ix *Indexer) Extract(path string) (FormatTag, []ScanRecord, error) {
	format := DetectFormat(path)
	if !format.Supported() {
		return format, nil, newError(UnsupportedFormat, path,
			errors.Wrapf(ErrUnknownFiletype, "suffix %q", string(format)))
	}
	ext := extractors[format]
	run := fileRun{
		path:           path,
		defaultMSLevel: ix.opts.DefaultMSLevel,
		log:            ix.log.WithFields(logrus.Fields{"file": path, "format": string(format)}),
	}
	records, err := ext.extract(run)
	return format, records, err
}

// Run indexes a single file and writes the index to the output directory.
// On failure, the error is written to the error directory when that is
// configured and exists; in that case Run returns a Result with outcome
// Reported and a nil error. Otherwise the failure is returned.
func (ix *Indexer) Run(path string) (Result, error) {
	return ix.RunAs(path, RelPath(ix.opts.InputRoot, path))
}

// RunAs is Run with an explicit relative path, which determines the
// location of the index and error files
func (ix *Indexer) RunAs(path, rel string) (Result, error) {
	start := time.Now()
	log := ix.log.WithField("file", path)

	format, records, err := ix.Extract(path)
	res := Result{Format: format}
	if err == nil {
		res.IndexPath = IndexPath(ix.opts.OutputDir, rel)
		err = fsutil.WriteFile(res.IndexPath, func(w io.Writer) error {
			return WriteIndex(w, records)
		})
		if err != nil {
			err = newError(IOFailure, path, err)
		}
	}
	if err == nil {
		res.Records = len(records)
		log.WithFields(logrus.Fields{
			"scans":    res.Records,
			"index":    res.IndexPath,
			"duration": time.Since(start),
		}).Info("indexed")
		return res, nil
	}

	var ixErr *Error
	if !errors.As(err, &ixErr) {
		ixErr = newError(IOFailure, path, err)
	}
	return ix.report(res, rel, ixErr)
}

func (ix *Indexer) report(res Result, rel string, ixErr *Error) (Result, error) {
	log := ix.log.WithField("file", ixErr.Path)
	if ix.opts.ErrorDir == `` {
		return res, ixErr
	}
	if !fsutil.IsDir(ix.opts.ErrorDir) {
		log.WithField("errorDir", ix.opts.ErrorDir).Warn("error directory doesn't exist")
		return res, ixErr
	}
	res.ErrorPath = ErrorPath(ix.opts.ErrorDir, rel)
	if err := writeErrorFile(res.ErrorPath, rel, ixErr); err != nil {
		return res, errors.WithMessagef(ixErr, "writing error file failed (%v)", err)
	}
	res.Outcome = Reported
	res.Err = ixErr
	log.WithError(ixErr).WithField("errorFile", res.ErrorPath).Error("failed to index")
	return res, nil
}

func writeErrorFile(dest, source string, ixErr *Error) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errors.Wrap(err, "create error directory")
	}
	line := fmt.Sprintf("%s: %v\n", source, ixErr)
	return errors.Wrap(os.WriteFile(dest, []byte(line), 0o644), "write error file")
}
