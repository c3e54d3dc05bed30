// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unzip

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"

	"github.com/klauspost/compress/zip"
)

// Archive is an opened zip file. The central directory is parsed once by
// [OpenArchive]; entries are handed out one at a time by [Archive.Next].
//
// An Archive is not safe for concurrent use.
type Archive struct {
	path string
	size int64
	rc   *zip.ReadCloser
	fp   int

	closeOnce sync.Once
	closeErr  error
	isClosed  bool
}

// OpenArchive checks that path is an existing regular file, parses the
// central directory and returns the opened [Archive].
//
// A missing file results in [ErrSourceNotFound], a directory or any other
// non-regular file in [ErrSourceNotAFile]. Parser failures are returned as
// [InvalidArchiveError].
func OpenArchive(path string, cfg *Config) (*Archive, error) {
	if cfg == nil {
		cfg = NewConfig()
	}

	size, err := statSource(path)
	if err != nil {
		return nil, err
	}
	if cfg.MaxInputSize() != -1 && size > cfg.MaxInputSize() {
		return nil, fmt.Errorf("%w: %d > %d", ErrMaxInputSizeExceeded, size, cfg.MaxInputSize())
	}

	rc, err := zip.OpenReader(path)
	switch {
	case err != nil && rc == nil:
		return nil, &InvalidArchiveError{Path: path, Err: err}

	// the reader is usable, insecure names are rejected per entry
	case err != nil:
		cfg.Logger().Warn("archive contains insecure names", "path", path, "error", err)
	}
	registerDecompressors(&rc.Reader)

	cfg.Logger().Debug("opened archive", "path", path, "entries", len(rc.File), "size", size)
	return &Archive{path: path, size: size, rc: rc}, nil
}

// statSource returns the size of the regular file at path.
func statSource(path string) (int64, error) {
	stat, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return 0, fmt.Errorf("cannot stat source: %w", err)
	}
	if !stat.Mode().IsRegular() {
		return 0, fmt.Errorf("%w: %s", ErrSourceNotAFile, path)
	}
	return stat.Size(), nil
}

// Path returns the path of the archive file.
func (a *Archive) Path() string {
	return a.path
}

// Size returns the size of the archive file in bytes.
func (a *Archive) Size() int64 {
	return a.size
}

// Len returns the number of entries in the central directory.
func (a *Archive) Len() int {
	return len(a.rc.File)
}

// Next returns the next entry of the archive. It returns io.EOF when
// all entries have been handed out. No entry content is read until
// [Entry.Open] is called.
func (a *Archive) Next() (*Entry, error) {
	if a.isClosed {
		return nil, fs.ErrClosed
	}
	if a.fp >= len(a.rc.File) {
		return nil, io.EOF
	}
	defer func() { a.fp++ }()
	return &Entry{zf: a.rc.File[a.fp], archive: a.path}, nil
}

// Close releases the underlying file. It is safe to call Close more than
// once; only the first call closes the file.
func (a *Archive) Close() error {
	a.closeOnce.Do(func() {
		a.isClosed = true
		a.closeErr = a.rc.Close()
	})
	return a.closeErr
}
