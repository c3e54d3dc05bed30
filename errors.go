// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unzip

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned when a [Request] is missing its destination or source.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrSourceNotFound is returned when the source archive does not exist.
	ErrSourceNotFound = errors.New("source not found")

	// ErrSourceNotAFile is returned when the source exists but is not a regular file.
	ErrSourceNotAFile = errors.New("source is not a regular file")

	// ErrInvalidArchive is matched by every [InvalidArchiveError].
	ErrInvalidArchive = errors.New("invalid archive")

	// ErrDestinationNotExist is returned when the destination is missing and
	// creation of the destination is disabled.
	ErrDestinationNotExist = errors.New("destination does not exist")

	// ErrPathTraversal is returned when an entry name or a symlink target
	// would resolve outside of the destination.
	ErrPathTraversal = errors.New("path traversal detected")

	// ErrSymlinkInPath is returned when an entry would be written through an
	// existing symlink and symlink traversal is not enabled.
	ErrSymlinkInPath = errors.New("symlink in path")

	// ErrLinkTargetTooLong is returned when the content of a symlink entry
	// exceeds the configured maximum link target length.
	ErrLinkTargetTooLong = errors.New("symlink target too long")

	// ErrInvalidLinkTarget is returned when a symlink target is empty or not valid UTF-8.
	ErrInvalidLinkTarget = errors.New("invalid symlink target")

	// ErrMaxFilesExceeded is returned when the archive holds more entries than allowed.
	ErrMaxFilesExceeded = errors.New("maximum files exceeded")

	// ErrMaxExtractionSizeExceeded is returned when the decompressed content
	// exceeds the configured maximum.
	ErrMaxExtractionSizeExceeded = errors.New("maximum extraction size exceeded")

	// ErrMaxInputSizeExceeded is returned when the archive file is larger than allowed.
	ErrMaxInputSizeExceeded = errors.New("maximum input size exceeded")
)

// InvalidArchiveError is returned when the central directory or an entry
// header of the archive cannot be parsed.
type InvalidArchiveError struct {
	// Path is the archive path.
	Path string

	// Err is the error reported by the zip parser.
	Err error
}

func (e *InvalidArchiveError) Error() string {
	return fmt.Sprintf("invalid archive %s: %v", e.Path, e.Err)
}

// Is reports true for [ErrInvalidArchive].
func (e *InvalidArchiveError) Is(target error) bool {
	return target == ErrInvalidArchive
}

func (e *InvalidArchiveError) Unwrap() error {
	return e.Err
}

// StreamError is returned when reading an entry or writing its content
// to the target failed mid-transfer.
type StreamError struct {
	// Name is the archive-internal name of the entry.
	Name string

	// Op is the operation that failed, e.g. "read" or "write".
	Op string

	// Err is the original error.
	Err error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Name, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}
