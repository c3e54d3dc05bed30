// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	unzip "github.com/hashicorp/go-unzip"
)

// CLI are the cli parameters for gounzip binary
type CLI struct {
	Archive                  string            `arg:"" name:"archive" help:"Path to zip archive." type:"existingfile"`
	Destination              string            `arg:"" name:"destination" default:"." help:"Output directory."`
	CreateDestination        bool              `short:"c" default:"true" negatable:"" help:"Create destination directory if it does not exist."`
	Extract                  map[string]string `short:"e" placeholder:"ARCHIVE=DESTINATION" help:"Additional archive to extract concurrently. (repeatable)"`
	InsecureSymlinkTargets   bool              `help:"[Dangerous!] Allow absolute symlink targets and targets outside of the destination."`
	InsecureTraverseSymlinks bool              `short:"F" help:"[Dangerous!] Traverse symlinks to directories during extraction."`
	MaxFiles                 int64             `optional:"" default:"100000" help:"Maximum files that are extracted before stop. (disable check: -1)"`
	MaxExtractionSize        int64             `optional:"" default:"1073741824" help:"Maximum extraction size that allowed is (in bytes). (disable check: -1)"`
	MaxExtractionTime        int64             `optional:"" default:"60" help:"Maximum time that an extraction should take (in seconds). (disable check: -1)"`
	MaxInputSize             int64             `optional:"" default:"1073741824" help:"Maximum input size that allowed is (in bytes). (disable check: -1)"`
	MaxLinkTargetLength      int64             `optional:"" default:"4096" help:"Maximum length of a symlink target (in bytes)."`
	Overwrite                bool              `short:"O" default:"true" negatable:"" help:"Overwrite if exist."`
	PreserveFileAttributes   bool              `short:"p" help:"Preserve the modification times of the archive entries."`
	Progress                 bool              `short:"P" help:"Print every extracted entry."`
	Telemetry                bool              `short:"T" optional:"" default:"false" help:"Print telemetry data to log after extraction."`
	Verbose                  bool              `short:"v" optional:"" help:"Verbose logging."`
	Version                  kong.VersionFlag  `short:"V" optional:"" help:"Print release version information."`
}

// Run the entrypoint into gounzip as a cli tool
func Run(version, commit, date string) {
	var cli CLI
	kong.Parse(&cli,
		kong.Description("A secure zip extraction utility"),
		kong.UsageOnError(),
		kong.Vars{
			"version": fmt.Sprintf("%s (%s), commit %s, built at %s", filepath.Base(os.Args[0]), version, commit, date),
		},
	)

	// Check for verbose output
	logLevel := slog.LevelError
	if cli.Verbose {
		logLevel = slog.LevelDebug
	}

	// setup logger
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	if err := run(context.Background(), cli, os.Stdout, logger); err != nil {
		fmt.Fprintf(os.Stderr, "error during extraction: %v\n", err)
		os.Exit(1)
	}
}

// run extracts all archives of cli and prints a summary to out
func run(ctx context.Context, cli CLI, out io.Writer, logger *slog.Logger) error {
	if cli.MaxExtractionTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Second*time.Duration(cli.MaxExtractionTime))
		defer cancel()
	}

	// collect telemetry data of all extractions
	var (
		mu      sync.Mutex
		results []unzip.TelemetryData
	)
	collect := func(ctx context.Context, td *unzip.TelemetryData) {
		if cli.Telemetry {
			logger.Info("extraction finished", "telemetry", td)
		}
		mu.Lock()
		defer mu.Unlock()
		results = append(results, *td)
	}

	// process cli params
	cfg := unzip.NewConfig(
		unzip.WithCreateDestination(cli.CreateDestination),
		unzip.WithInsecureSymlinkTargets(cli.InsecureSymlinkTargets),
		unzip.WithInsecureTraverseSymlinks(cli.InsecureTraverseSymlinks),
		unzip.WithLogger(logger),
		unzip.WithMaxExtractionSize(cli.MaxExtractionSize),
		unzip.WithMaxFiles(cli.MaxFiles),
		unzip.WithMaxInputSize(cli.MaxInputSize),
		unzip.WithMaxLinkTargetLength(cli.MaxLinkTargetLength),
		unzip.WithOverwrite(cli.Overwrite),
		unzip.WithPreserveFileAttributes(cli.PreserveFileAttributes),
		unzip.WithTelemetryHook(collect),
	)

	reqs := requests(cli, out)
	err := unzip.ExtractAll(ctx, cfg, reqs...)

	// print summary, also for partial extractions
	sort.Slice(results, func(i, j int) bool { return results[i].Source < results[j].Source })
	for _, td := range results {
		fmt.Fprintf(out, "%s: %d files, %d directories, %d symlinks, %s in %s\n",
			td.Source, td.ExtractedFiles, td.ExtractedDirs, td.ExtractedSymlinks,
			humanize.Bytes(uint64(td.ExtractionSize)), td.ExtractionDuration.Round(time.Millisecond))
	}

	if err != nil {
		return errors.Wrap(err, "extraction failed")
	}
	return nil
}

// requests builds the extraction requests for the positional archive and
// all additional archives
func requests(cli CLI, out io.Writer) []unzip.Request {
	var onEntry unzip.EntryFunc
	if cli.Progress {
		var mu sync.Mutex
		onEntry = func(name string, index, total int) error {
			mu.Lock()
			defer mu.Unlock()
			fmt.Fprintf(out, "[%d/%d] %s\n", index, total, name)
			return nil
		}
	}

	reqs := []unzip.Request{{Destination: cli.Destination, Source: cli.Archive, OnEntry: onEntry}}
	for src, dst := range cli.Extract {
		reqs = append(reqs, unzip.Request{Destination: dst, Source: src, OnEntry: onEntry})
	}
	return reqs
}
