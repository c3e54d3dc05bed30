// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unzip

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"golang.org/x/sync/errgroup"
)

// Extract extracts the zip archive req.Source into the directory
// req.Destination on disk. A nil cfg uses [NewConfig] defaults.
//
// Entries are processed one after another. Any error stops the
// extraction; files extracted so far stay in place. An error returned by
// req.OnEntry is returned unmodified.
//
// Symlinks with an absolute target, or a target that could resolve outside
// of the destination, are rejected with [ErrPathTraversal] unless
// [WithInsecureSymlinkTargets] is set. Relative targets may only step up
// with leading ".." components.
func Extract(ctx context.Context, req Request, cfg *Config) error {
	return ExtractTo(ctx, NewTargetDisk(), req, cfg)
}

// ExtractTo is like [Extract], but creates all filesystem objects through t.
func ExtractTo(ctx context.Context, t Target, req Request, cfg *Config) (err error) {
	if cfg == nil {
		cfg = NewConfig()
	}

	// prepare telemetry capturing
	td := &TelemetryData{Source: req.Source}
	hook := cfg.TelemetryHook()
	defer hook(ctx, td)
	defer captureExtractionDuration(td, now())

	if err := req.validate(); err != nil {
		return handleError(cfg, td, "invalid request", err)
	}

	archive, err := OpenArchive(req.Source, cfg)
	if err != nil {
		return handleError(cfg, td, "cannot open archive", err)
	}
	defer func() {
		if cerr := archive.Close(); cerr != nil && err == nil {
			err = handleError(cfg, td, "cannot close archive", cerr)
		}
	}()
	td.InputSize = archive.Size()

	if err := prepareDestination(t, req.Destination, cfg); err != nil {
		return handleError(cfg, td, "cannot prepare destination", err)
	}

	return extract(ctx, t, archive, req, cfg, td)
}

// ExtractAll extracts independent archives concurrently. The first error
// cancels the context passed to the remaining extractions and is returned.
// cfg is shared, so its logger and telemetry hook must be safe for
// concurrent use.
func ExtractAll(ctx context.Context, cfg *Config, reqs ...Request) error {
	if cfg == nil {
		cfg = NewConfig()
	}

	eg, ctx := errgroup.WithContext(ctx)
	for _, req := range reqs {
		req := req
		eg.Go(func() error {
			return Extract(ctx, req, cfg)
		})
	}
	return eg.Wait()
}

// extract walks over all entries of a and materializes them below the
// destination of req.
func extract(ctx context.Context, t Target, a *Archive, req Request, cfg *Config, td *TelemetryData) error {
	m := newMaterializer(t, req.Destination, cfg, td)
	total := a.Len()

	cfg.Logger().Info("start extraction", "source", a.Path(), "destination", req.Destination, "entries", total)

	for index := 1; ; index++ {

		// check if context is canceled
		if err := ctx.Err(); err != nil {
			return handleError(cfg, td, "context error", err)
		}

		// get next entry
		e, err := a.Next()
		switch {

		// all entries are extracted
		case errors.Is(err, io.EOF):
			if err := m.finalize(); err != nil {
				return handleError(cfg, td, "cannot set directory times", err)
			}
			cfg.Logger().Info("extraction finished", "source", a.Path(), "entries", td.Entries, "bytes", td.ExtractionSize)
			return nil

		case err != nil:
			return handleError(cfg, td, "cannot read next entry", err)
		}

		td.Entries++
		if err := cfg.CheckMaxFiles(td.Entries); err != nil {
			return handleError(cfg, td, "max files check failed", err)
		}

		// a name with a trailing slash never carries content
		c := e.Classify()
		if c.Kind == KindRegularFile && e.IsDirectoryMarker() {
			c.Kind = KindDirectory
		}

		if req.OnEntry != nil {
			if err := req.OnEntry(e.Name(), index, total); err != nil {
				return handleError(cfg, td, "entry callback failed", err)
			}
		}

		cfg.Logger().Debug("extract", "name", e.Name(), "kind", c.Kind.String(), "index", index, "total", total)
		if err := m.materialize(e, c); err != nil {
			return handleError(cfg, td, fmt.Sprintf("cannot extract %s", c.Kind), err)
		}
	}
}

// prepareDestination ensures that dst is an existing directory.
func prepareDestination(t Target, dst string, cfg *Config) error {
	stat, err := t.Stat(dst)
	switch {
	case err == nil:
		if !stat.IsDir() {
			return fmt.Errorf("%w: %s is not a directory", ErrInvalidArgument, dst)
		}
		return nil

	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("cannot stat destination: %w", err)

	case !cfg.CreateDestination():
		return fmt.Errorf("%w: %s", ErrDestinationNotExist, dst)
	}

	if err := t.CreateDir(dst, cfg.CustomCreateDirMode()); err != nil {
		return &StreamError{Name: dst, Op: "mkdir", Err: err}
	}
	cfg.Logger().Debug("created destination", "path", dst)
	return nil
}

// handleError records err in td and logs it. err is returned unmodified.
func handleError(cfg *Config, td *TelemetryData, msg string, err error) error {
	td.ExtractionErrors++
	td.LastExtractionError = err
	cfg.Logger().Error(msg, "error", err)
	return err
}
