package scanindex

import (
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/524D/spectrumindex/internal/mgf"
	"github.com/524D/spectrumindex/internal/mzml"
	"github.com/524D/spectrumindex/internal/mzxml"
)

// fileRun holds the state of indexing a single file
type fileRun struct {
	path           string
	defaultMSLevel int
	log            *logrus.Entry
}

// extractor produces the scan records of one file, in file order
type extractor interface {
	extract(run fileRun) ([]ScanRecord, error)
}

var extractors = map[FormatTag]extractor{
	FormatMzML:   mzMLExtractor{},
	FormatMzMLGz: mzMLExtractor{},
	FormatMzXML:  mzXMLExtractor{},
	FormatMGF:    mgfExtractor{},
	FormatMGFGz:  mgfExtractor{},
}

func (run fileRun) open() (*input, error) {
	in, err := openInput(run.path)
	if err != nil {
		return nil, newError(IOFailure, run.path, err)
	}
	run.log.WithFields(logrus.Fields{
		"size": humanize.Bytes(uint64(in.Size)),
		"gzip": in.Gzip,
	}).Debug("opened spectrum file")
	return in, nil
}

// parseError classifies an error returned by a format reader
func (run fileRun) parseError(in *input, err error) *Error {
	if ioErr := in.IOErr(); ioErr != nil {
		return newError(IOFailure, run.path, errors.Wrap(ioErr, "read"))
	}
	return newError(StructuredParseFailure, run.path, err)
}

type mzMLExtractor struct{}

func (mzMLExtractor) paramGroups(run fileRun) (mzml.ParamGroupTable, error) {
	in, err := run.open()
	if err != nil {
		return mzml.ParamGroupTable{}, err
	}
	defer in.Close()
	groups, err := mzml.ReadParamGroups(in)
	if err != nil {
		return groups, run.parseError(in, err)
	}
	return groups, nil
}

func (e mzMLExtractor) extract(run fileRun) ([]ScanRecord, error) {
	groups, err := e.paramGroups(run)
	if err != nil {
		return nil, err
	}
	run.log.WithField("paramGroups", groups.Len()).Debug("read param groups")

	in, err := run.open()
	if err != nil {
		return nil, err
	}
	defer in.Close()

	var c Counter
	records := []ScanRecord{}
	sources := make(map[mzml.LevelSource]int)
	r := mzml.NewSpectrumReader(in, groups, run.defaultMSLevel)
	for r.Next() {
		s := r.Spectrum()
		records = append(records, c.Record(s.ID, s.MSLevel))
		sources[s.LevelSource]++
	}
	if err := r.Err(); err != nil {
		return nil, run.parseError(in, err)
	}
	if n := sources[mzml.LevelDefault]; n > 0 {
		run.log.WithField("default", run.defaultMSLevel).Debugf("%d spectra without MS level", n)
	}
	return records, nil
}

type mzXMLExtractor struct{}

func (mzXMLExtractor) extract(run fileRun) ([]ScanRecord, error) {
	in, err := run.open()
	if err != nil {
		return nil, err
	}
	defer in.Close()

	var c Counter
	records := []ScanRecord{}
	missing := 0
	r := mzxml.NewScanReader(in)
	for r.Next() {
		s := r.Scan()
		records = append(records, c.Record(s.NativeID(), s.MSLevel))
		if s.LevelMissing {
			missing++
		}
	}
	if err := r.Err(); err != nil {
		return nil, run.parseError(in, err)
	}
	if missing > 0 {
		run.log.Debugf("%d scans without msLevel, assumed MS%d", missing, mzxml.DefaultMSLevel)
	}
	return records, nil
}

type mgfExtractor struct{}

// extract tries the structured reader first. When that fails, its partial
// result is dropped and the spectrum blocks are counted instead. A file that
// can't be opened at all is not retried.
func (e mgfExtractor) extract(run fileRun) ([]ScanRecord, error) {
	in, err := run.open()
	if err != nil {
		return nil, err
	}
	records, err := e.structured(run, in)
	in.Close()
	if err == nil {
		return records, nil
	}
	run.log.WithError(err).Warn("MGF parsing failed, falling back to counting spectra")
	records, fbErr := e.fallback(run)
	if fbErr != nil {
		return nil, newError(FallbackFailure, run.path,
			errors.WithMessagef(fbErr, "after %v", err))
	}
	return records, nil
}

func (mgfExtractor) structured(run fileRun, in *input) ([]ScanRecord, error) {
	var c Counter
	records := []ScanRecord{}
	all := 0
	r := mgf.NewReader(in)
	for r.Next() {
		s := r.Spectrum()
		level, err := s.MSLevel()
		if err != nil {
			return nil, newError(StructuredParseFailure, run.path, err)
		}
		records = append(records, c.Record(s.NativeID(all), level))
		all++
	}
	if err := r.Err(); err != nil {
		return nil, run.parseError(in, err)
	}
	if h := r.Header(); len(h) > 0 {
		run.log.WithField("header", h).Debug("MGF header parameters")
	}
	if c.Count() < all {
		run.log.WithFields(logrus.Fields{
			"spectra": all,
			"ms2plus": c.Count(),
		}).Warn("MS1s found in MGF file, proceed with caution!")
	}
	return records, nil
}

// fallback assumes every block is an MS2 spectrum
func (mgfExtractor) fallback(run fileRun) ([]ScanRecord, error) {
	in, err := openInput(run.path)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	n, err := mgf.CountBlocks(in)
	if err != nil {
		return nil, err
	}
	var c Counter
	records := make([]ScanRecord, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, c.Record(`index=`+strconv.Itoa(i), mgf.DefaultMSLevel))
	}
	run.log.WithField("spectra", n).Info("indexed MGF file by counting spectrum blocks")
	return records, nil
}
