// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unzip

import (
	"io"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// compression methods from the zip APPNOTE, section 4.4.5
const (
	methodBzip2 uint16 = 12
	methodZstd  uint16 = zstd.ZipMethodWinZip
	methodXz    uint16 = 95
)

// registerDecompressors adds support for compression methods beyond
// store and deflate to r.
func registerDecompressors(r *zip.Reader) {
	r.RegisterDecompressor(methodZstd, zstd.ZipDecompressor())
	r.RegisterDecompressor(methodXz, decompressXz)
	r.RegisterDecompressor(methodBzip2, decompressBzip2)
}

// decompressXz returns a reader for an xz compressed entry.
func decompressXz(r io.Reader) io.ReadCloser {
	xzr, err := xz.NewReader(r)
	if err != nil {
		return &errorReadCloser{err: err}
	}
	return &noopReaderCloser{xzr}
}

// decompressBzip2 returns a reader for a bzip2 compressed entry.
func decompressBzip2(r io.Reader) io.ReadCloser {
	bzr, err := bzip2.NewReader(r, &bzip2.ReaderConfig{})
	if err != nil {
		return &errorReadCloser{err: err}
	}
	return bzr
}

// noopReaderCloser is a struct that implements the io.ReaderCloser interface with a no-op Close method.
type noopReaderCloser struct {
	io.Reader
}

// Close is a no-op method that satisfies the io.Closer interface.
func (n *noopReaderCloser) Close() error {
	return nil
}

// errorReadCloser reports a decompressor setup failure on the first read.
type errorReadCloser struct {
	err error
}

func (e *errorReadCloser) Read([]byte) (int, error) {
	return 0, e.err
}

func (e *errorReadCloser) Close() error {
	return nil
}
