// Copyright 2018 Rob Marissen.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/524D/spectrumindex/internal/config"
	"github.com/524D/spectrumindex/internal/scanindex"
)

// Program name and version
const progName = "spectrumindex"

var progVersion = `Unknown`

// debugEnv enables debug logging with caller information when set to 1
const debugEnv = `SPECTRUMINDEX_DEBUG`

// exitError carries the exit code of a command that failed without an
// error that should be printed
type exitError struct {
	code int
}

func (e exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// app holds the state shared by all commands of one invocation
type app struct {
	stdout     io.Writer
	stderr     io.Writer
	getenv     func(string) (string, bool)
	log        *logrus.Logger
	configFile string
	verbose    bool
	quiet      bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, os.LookupEnv))
}

// run executes the command line and returns the exit code
func run(args []string, stdout, stderr io.Writer, getenv func(string) (string, bool)) int {
	a := &app{stdout: stdout, stderr: stderr, getenv: getenv, log: logrus.New()}
	a.log.SetOutput(stderr)
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	var ee exitError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &ee):
		return ee.code
	case errors.Is(err, scanindex.ErrMissingInput):
		// Batch orchestration relies on a silent success here
		fmt.Fprintf(stdout, "%s.\n", capitalize(err.Error()))
		return 0
	default:
		if a.debug() {
			a.log.Errorf("%+v", err)
		} else {
			a.log.Error(err)
		}
		return 1
	}
}

func (a *app) rootCmd() *cobra.Command {
	version := progVersion
	if version == `Unknown` {
		version = `Unknown
Please build this program with script 'build.sh' so that the git version is shown here.`
	}
	root := &cobra.Command{
		Use:   progName,
		Short: "Build scan indexes of mzML, mzXML and MGF files",
		Long: `spectrumindex writes, for every spectrum of a peak list file, its native id,
its MS level and its position among the MS2+ spectra of the file to a tab
separated .scans file.

Supported formats: .mzML, .mzML.gz, .mzXML, .mgf and .mgf.gz.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.setupLogging()
		},
	}
	root.SetVersionTemplate(fmt.Sprintf("%s version {{.Version}}\n", progName))

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", ``, `YAML file with default settings`)
	pf.BoolVar(&a.verbose, "verbose", false, `Print more verbose progress information`)
	pf.BoolVar(&a.quiet, "quiet", false, `Don't print any output except for errors`)

	root.AddCommand(
		a.indexCmd(),
		a.batchCmd(),
		a.demangleCmd(),
		a.combineErrorsCmd(),
		a.mergeCmd(),
	)
	root.SetGlobalNormalizationFunc(normalizeFlag)
	return root
}

// normalizeFlag accepts both --output_folder and --output-folder
func normalizeFlag(f *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, `_`, `-`))
}

func (a *app) debug() bool {
	v, ok := a.getenv(debugEnv)
	return ok && v == `1`
}

func (a *app) setupLogging() {
	a.log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	a.log.SetLevel(logrus.InfoLevel)
	if a.verbose {
		a.log.SetLevel(logrus.DebugLevel)
	}
	if a.quiet {
		a.log.SetLevel(logrus.ErrorLevel)
	}
	if a.debug() {
		a.log.SetLevel(logrus.DebugLevel)
		a.log.SetReportCaller(true)
	}
}

// loadConfig combines the config file, the environment and the flags of cmd
func (a *app) loadConfig(cmd *cobra.Command) (config.Config, error) {
	c, err := config.Load(a.configFile)
	if err != nil {
		return c, err
	}
	if err := c.ApplyEnv(a.getenv); err != nil {
		return c, err
	}
	if err := c.ApplyFlags(cmd.Flags()); err != nil {
		return c, err
	}
	a.log.WithFields(logrus.Fields{
		"config":      a.configFile,
		"output":      c.OutputDir,
		"errors":      c.ErrorDir,
		"level":       c.DefaultMSLevel,
		"jobs":        c.Jobs,
		"cacheRoot":   c.CacheRoot,
		"failFast":    c.FailFast,
		"progressBar": c.Progress,
	}).Debug("configuration")
	return c, nil
}

func capitalize(s string) string {
	if s == `` {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
