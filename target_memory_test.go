// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unzip_test

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"testing"

	unzip "github.com/hashicorp/go-unzip"
)

func TestMemoryReadFile(t *testing.T) {
	// instantiate a new memory target
	tm := unzip.NewTargetMemory()

	// test data
	testPath := "test"
	testContent := "test"
	testDir := "dir"

	// create a file
	if _, err := tm.CreateFile(testPath, bytes.NewReader([]byte(testContent)), 0644, false, -1); err != nil {
		t.Fatalf("CreateFile() failed: %s", err)
	}

	// read the file
	data, err := tm.ReadFile(testPath)
	if err != nil {
		t.Fatalf("ReadFile() failed: %s", err)
	}
	if !bytes.Equal(data, []byte(testContent)) {
		t.Fatalf("ReadFile() failed: expected %s, got %s", testContent, data)
	}

	// read a file that does not exist
	if _, err := tm.ReadFile("notexist"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("ReadFile() failed: expected %v, got %v", fs.ErrNotExist, err)
	}

	// read a directory
	if err := tm.CreateDir(testDir, 0755); err != nil {
		t.Fatalf("CreateDir() failed: %s", err)
	}
	if _, err := tm.ReadFile(testDir); err == nil {
		t.Fatalf("ReadFile() on directory failed: expected error, got nil")
	}
}

func TestMemoryStatFollowsSymlink(t *testing.T) {
	tm := unzip.NewTargetMemory()

	if err := tm.CreateDir("dir", 0750); err != nil {
		t.Fatalf("CreateDir() failed: %s", err)
	}
	if _, err := tm.CreateFile("dir/file", bytes.NewReader([]byte("content")), 0640, false, -1); err != nil {
		t.Fatalf("CreateFile() failed: %s", err)
	}
	if err := tm.CreateSymlink("file", "dir/link", false); err != nil {
		t.Fatalf("CreateSymlink() failed: %s", err)
	}

	stat, err := tm.Stat("dir/link")
	if err != nil {
		t.Fatalf("Stat() failed: %s", err)
	}
	if stat.Mode() != 0640 {
		t.Errorf("Stat() mode = %v, want %v", stat.Mode(), fs.FileMode(0640))
	}

	lstat, err := tm.Lstat("dir/link")
	if err != nil {
		t.Fatalf("Lstat() failed: %s", err)
	}
	if lstat.Mode()&fs.ModeSymlink == 0 {
		t.Errorf("Lstat() mode = %v, want symlink", lstat.Mode())
	}

	dirStat, err := tm.Stat("dir")
	if err != nil {
		t.Fatalf("Stat() failed: %s", err)
	}
	if !dirStat.IsDir() || dirStat.Mode().Perm() != 0750 {
		t.Errorf("Stat() mode = %v, want directory 0750", dirStat.Mode())
	}
}

func TestMemoryStatSymlinkLoop(t *testing.T) {
	tm := unzip.NewTargetMemory()

	if err := tm.CreateSymlink("b", "a", false); err != nil {
		t.Fatalf("CreateSymlink() failed: %s", err)
	}
	if err := tm.CreateSymlink("a", "b", false); err != nil {
		t.Fatalf("CreateSymlink() failed: %s", err)
	}

	_, err := tm.Stat("a")
	if err == nil {
		t.Fatalf("Stat() on symlink loop: expected error, got nil")
	}
	if errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Stat() error = %v, want symlink loop error", err)
	}

	// the loop itself is still visible
	if _, err := tm.Lstat("a"); err != nil {
		t.Errorf("Lstat() failed: %s", err)
	}
}

func TestMemoryInvalidPath(t *testing.T) {
	tm := unzip.NewTargetMemory()

	for _, path := range []string{"../test", "/test", "a//b", ""} {
		if _, err := tm.CreateFile(path, bytes.NewReader(nil), 0644, false, -1); !errors.Is(err, fs.ErrInvalid) {
			t.Errorf("CreateFile(%q) error = %v, want %v", path, err, fs.ErrInvalid)
		}
		if err := tm.CreateDir(path, 0755); !errors.Is(err, fs.ErrInvalid) {
			t.Errorf("CreateDir(%q) error = %v, want %v", path, err, fs.ErrInvalid)
		}
		if err := tm.CreateSymlink("target", path, false); !errors.Is(err, fs.ErrInvalid) {
			t.Errorf("CreateSymlink(%q) error = %v, want %v", path, err, fs.ErrInvalid)
		}
		if _, err := tm.Lstat(path); !errors.Is(err, fs.ErrInvalid) {
			t.Errorf("Lstat(%q) error = %v, want %v", path, err, fs.ErrInvalid)
		}
	}
}

func TestMemoryConflicts(t *testing.T) {
	tm := unzip.NewTargetMemory()

	if err := tm.CreateDir("dir", 0755); err != nil {
		t.Fatalf("CreateDir() failed: %s", err)
	}
	if _, err := tm.CreateFile("file", bytes.NewReader([]byte("x")), 0644, false, -1); err != nil {
		t.Fatalf("CreateFile() failed: %s", err)
	}

	// file over directory
	if _, err := tm.CreateFile("dir", bytes.NewReader([]byte("x")), 0644, true, -1); err == nil {
		t.Errorf("CreateFile() over directory: expected error, got nil")
	}

	// directory below file
	if err := tm.CreateDir("file/sub", 0755); err == nil {
		t.Errorf("CreateDir() below file: expected error, got nil")
	}
}

// TestExtractToMemoryTraverseSymlinks resolves symlinks within the
// in-memory destination
func TestExtractToMemoryTraverseSymlinks(t *testing.T) {
	src := createTestZip(t,
		dirEntry("real/", 0755),
		symlinkEntry("alias", "real"),
		fileEntry("alias/file", "content", 0644),
	)

	tm := unzip.NewTargetMemory()
	cfg := unzip.NewConfig(unzip.WithInsecureTraverseSymlinks(true))
	if err := unzip.ExtractTo(context.Background(), tm, unzip.Request{Destination: ".", Source: src}, cfg); err != nil {
		t.Fatalf("ExtractTo() error = %v", err)
	}

	data, err := tm.ReadFile("real/file")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "content" {
		t.Errorf("ReadFile() = %s, want %s", data, "content")
	}
}
