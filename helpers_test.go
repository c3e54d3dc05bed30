// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unzip_test

import (
	"bytes"
	"hash/crc32"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// compression methods beyond store and deflate
const (
	methodBzip2 uint16 = 12
	methodZstd  uint16 = zstd.ZipMethodWinZip
	methodXz    uint16 = 95
)

// testEntry describes one entry of a generated test archive
type testEntry struct {
	name    string
	content string

	// mode is applied with SetMode, unless raw is set
	mode fs.FileMode

	// raw sets externalAttrs and creator as they are
	raw           bool
	externalAttrs uint32
	creator       uint16

	method  uint16
	modTime time.Time
}

func fileEntry(name string, content string, mode fs.FileMode) testEntry {
	return testEntry{name: name, content: content, mode: mode, method: zip.Deflate}
}

func dirEntry(name string, mode fs.FileMode) testEntry {
	return testEntry{name: name, mode: fs.ModeDir | mode}
}

func symlinkEntry(name string, target string) testEntry {
	return testEntry{name: name, content: target, mode: fs.ModeSymlink | 0777}
}

func rawEntry(name string, content string, externalAttrs uint32, creator uint16) testEntry {
	return testEntry{name: name, content: content, raw: true, externalAttrs: externalAttrs, creator: creator}
}

// createTestZip writes entries into a new zip archive in a temporary directory
// and returns its path.
func createTestZip(t *testing.T, entries ...testEntry) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("os.Create() error = %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	zw.RegisterCompressor(methodZstd, zstd.ZipCompressor())
	zw.RegisterCompressor(methodXz, func(w io.Writer) (io.WriteCloser, error) {
		return &xzWriter{w: w}, nil
	})
	zw.RegisterCompressor(methodBzip2, func(w io.Writer) (io.WriteCloser, error) {
		return bzip2.NewWriter(w, &bzip2.WriterConfig{})
	})

	for _, e := range entries {
		fh := &zip.FileHeader{Name: e.name, Method: e.method}
		if e.raw {
			fh.CreatorVersion = e.creator
			fh.ExternalAttrs = e.externalAttrs
		} else {
			fh.SetMode(e.mode)
		}
		if !e.modTime.IsZero() {
			fh.Modified = e.modTime
		}

		w, err := zw.CreateHeader(fh)
		if err != nil {
			t.Fatalf("CreateHeader(%s) error = %v", e.name, err)
		}
		if len(e.content) > 0 {
			if _, err := io.WriteString(w, e.content); err != nil {
				t.Fatalf("write %s error = %v", e.name, err)
			}
		}
	}

	if err := zw.Close(); err != nil {
		t.Fatalf("zip.Writer.Close() error = %v", err)
	}
	return path
}

// xzWriter compresses the buffered entry on Close. The zip writer creates
// the compressor before the local file header is written, and xz.NewWriter
// emits the stream header right away.
type xzWriter struct {
	w   io.Writer
	buf bytes.Buffer
}

func (x *xzWriter) Write(p []byte) (int, error) {
	return x.buf.Write(p)
}

func (x *xzWriter) Close() error {
	xw, err := xz.NewWriter(x.w)
	if err != nil {
		return err
	}
	if _, err := x.buf.WriteTo(xw); err != nil {
		return err
	}
	return xw.Close()
}

// createTestFile writes content to a new file in a temporary directory
func createTestFile(t *testing.T, name string, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("os.WriteFile() error = %v", err)
	}
	return path
}

// newTestLogger returns a debug level logger writing to w
func newTestLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// hasSymlink returns true if any of entries is a symlink
func hasSymlink(entries []testEntry) bool {
	for _, e := range entries {
		if e.mode&fs.ModeSymlink != 0 {
			return true
		}
	}
	return false
}

// createTestZipChecksumMismatch writes a stored entry whose CRC-32 does not
// match its content
func createTestZipChecksumMismatch(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "checksum.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("os.Create() error = %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.CreateRaw(&zip.FileHeader{
		Name:               "test",
		Method:             zip.Store,
		CRC32:              crc32.ChecksumIEEE([]byte(content)) + 1,
		CompressedSize64:   uint64(len(content)),
		UncompressedSize64: uint64(len(content)),
	})
	if err != nil {
		t.Fatalf("CreateRaw() error = %v", err)
	}
	if _, err := io.WriteString(w, content); err != nil {
		t.Fatalf("write error = %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip.Writer.Close() error = %v", err)
	}
	return path
}
