// Copyright 2018 Rob Marissen.
// SPDX-License-Identifier: MIT

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/524D/spectrumindex/internal/batch"
	"github.com/524D/spectrumindex/internal/config"
	"github.com/524D/spectrumindex/internal/proteosafe"
	"github.com/524D/spectrumindex/internal/scanindex"
)

// addIndexFlags adds the flags that configure the indexer
func addIndexFlags(cmd *cobra.Command) {
	d := config.Default()
	f := cmd.Flags()
	f.StringP("output-folder", "o", ``, `Folder to write the tab separated index files to`)
	f.StringP("default-ms-level", "l", d.DefaultMSLevel, `MS level of mzML spectra that don't declare one (0: none)`)
	f.StringP("error-folder", "e", ``, `Existing folder to write error files to; without it, errors abort the run`)
	f.String("input-root", ``, `Folder that input paths are relative to; its structure is kept in the output`)
}

func (a *app) indexCmd() *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "index -i <file> -o <folder>",
		Short: "Index a single spectrum file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := c.CheckInput(input); err != nil {
				return err
			}
			opts, err := c.IndexOptions()
			if err != nil {
				return err
			}
			opts.Logger = logrus.NewEntry(a.log)
			_, err = scanindex.New(opts).Run(input)
			return err
		},
	}
	cmd.Flags().StringVarP(&input, "input-spectrum", "i", ``, `Single spectrum file of type mzML, mzXML or MGF (optionally gzipped)`)
	addIndexFlags(cmd)
	return cmd
}

func (a *app) batchCmd() *cobra.Command {
	var list string
	d := config.Default()
	cmd := &cobra.Command{
		Use:   "batch -s <list> -o <folder>",
		Short: "Index all spectrum files of a list, reusing cached indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := c.CheckInput(list); err != nil {
				return err
			}
			ixOpts, err := c.IndexOptions()
			if err != nil {
				return err
			}
			inputs, err := batch.ReadListFile(list)
			if err != nil {
				return err
			}
			ixOpts.Logger = logrus.NewEntry(a.log)
			opts := batch.Options{
				Index:     ixOpts,
				CacheRoot: c.CacheRoot,
				Jobs:      c.Jobs,
				FailFast:  c.FailFast,
			}
			if c.Progress {
				opts.Progress = a.stderr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			_, err = batch.New(opts).Run(ctx, inputs)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVarP(&list, "input-list", "s", ``, `Text file with paths of spectrum files, one per line`)
	addIndexFlags(cmd)
	f.String("cache-root", d.CacheRoot, `Repository root holding cached indexes of dataset files (empty: no cache)`)
	f.Int("jobs", d.Jobs, `Number of files indexed at the same time`)
	f.Bool("fail-fast", d.FailFast, `Stop at the first failure that is not written to the error folder`)
	f.Bool("progress", d.Progress, `Show a progress bar`)
	return cmd
}

func (a *app) demangleCmd() *cobra.Command {
	var params, input, output string
	cmd := &cobra.Command{
		Use:   "demangle -p <params.xml> -i <folder> -o <folder>",
		Short: "Link uploaded files under their original names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if params == `` || input == `` || output == `` {
				return errors.New("params, input folder and output folder are required")
			}
			uploads, err := a.readUploads(params)
			if err != nil {
				return err
			}
			links, err := proteosafe.Demangle(uploads, input, output)
			if err != nil {
				return err
			}
			a.log.WithFields(logrus.Fields{"links": len(links), "output": output}).Info("demangled")
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&params, "params", "p", ``, `ProteoSAFe params.xml`)
	f.StringVarP(&input, "input-folder", "i", ``, `Folder with the mangled files`)
	f.StringVarP(&output, "output-folder", "o", ``, `Folder to create the links in`)
	return cmd
}

// readUploads reads the upload file mapping of a workflow parameter file
func (a *app) readUploads(path string) ([]proteosafe.Upload, error) {
	p, err := proteosafe.ReadFile(path)
	if err != nil {
		return nil, err
	}
	a.log.WithFields(logrus.Fields{"file": path, "params": p.Names()}).Debug("read workflow parameters")
	return p.Uploads()
}

func (a *app) combineErrorsCmd() *cobra.Command {
	var params, errorDir string
	cmd := &cobra.Command{
		Use:   "combine-errors -p <params.xml> -e <folder>",
		Short: "Report the uploaded files that could not be indexed",
		Long: `Lists the original names of the uploaded files that have an error file in
the error folder. Exits with status 1 when there are any.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if params == `` || errorDir == `` {
				return errors.New("params and error folder are required")
			}
			uploads, err := a.readUploads(params)
			if err != nil {
				return err
			}
			malformed, err := proteosafe.MalformedFiles(uploads, errorDir)
			if err != nil {
				return err
			}
			if len(malformed) == 0 {
				return nil
			}
			if err := proteosafe.WriteReport(a.stdout, malformed); err != nil {
				return err
			}
			return exitError{code: 1}
		},
	}
	f := cmd.Flags()
	f.StringVarP(&params, "proteosafe-paramxml", "p", ``, `params.xml from ProteoSAFe`)
	f.StringVarP(&errorDir, "error-folder", "e", ``, `Folder of error files`)
	return cmd
}

func (a *app) mergeCmd() *cobra.Command {
	var input, output string
	cmd := &cobra.Command{
		Use:   "merge -i <folder> -o <file>",
		Short: "Combine all index files of a folder into one table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == `` || output == `` {
				return errors.New("input folder and output file are required")
			}
			rows, err := batch.Merge(input, output)
			if err != nil {
				return err
			}
			a.log.WithFields(logrus.Fields{"rows": rows, "output": output}).Info("merged")
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&input, "input-folder", "i", ``, `Folder with index files`)
	f.StringVarP(&output, "output-file", "o", ``, `Tab separated file to write`)
	return cmd
}
