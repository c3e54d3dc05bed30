// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unzip

import (
	"io"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
)

// Entry is a read-only view of one central-directory record. An Entry must
// not be used after the [Archive] it was returned from has been closed.
type Entry struct {
	zf      *zip.File
	archive string
}

// Name returns the archive-internal name of the entry. The name is
// untrusted input and may contain path traversal.
func (e *Entry) Name() string {
	return e.zf.Name
}

// ExternalAttributes returns the packed, platform-specific attribute bits.
func (e *Entry) ExternalAttributes() uint32 {
	return e.zf.ExternalAttrs
}

// VersionMadeBy returns the version-made-by field. The high byte identifies
// the host platform of the packer.
func (e *Entry) VersionMadeBy() uint16 {
	return e.zf.CreatorVersion
}

// IsDirectoryMarker returns true if the name ends with a slash.
func (e *Entry) IsDirectoryMarker() bool {
	return strings.HasSuffix(e.zf.Name, "/")
}

// CompressedSize returns the size of the packed content.
func (e *Entry) CompressedSize() int64 {
	return int64(e.zf.CompressedSize64)
}

// UncompressedSize returns the size of the content after decompression.
func (e *Entry) UncompressedSize() int64 {
	return int64(e.zf.UncompressedSize64)
}

// ModTime returns the modification time of the entry.
func (e *Entry) ModTime() time.Time {
	return e.zf.Modified
}

// Classify returns the [Classification] of the entry.
func (e *Entry) Classify() Classification {
	return Classify(e.ExternalAttributes(), e.VersionMadeBy())
}

// Open returns a decompressing reader for the content of the entry. The
// caller must close it before advancing the archive.
func (e *Entry) Open() (io.ReadCloser, error) {
	rc, err := e.zf.Open()
	if err != nil {
		return nil, &InvalidArchiveError{Path: e.archive, Err: err}
	}
	return rc, nil
}
