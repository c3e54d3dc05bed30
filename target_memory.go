// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unzip

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// TargetMemory is an in-memory filesystem implementation of [Target]. Paths are
// slash separated and relative, as accepted by [fs.ValidPath]; use "." as
// destination when extracting into a TargetMemory. Permissions on entries are
// recorded but not enforced.
type TargetMemory struct {
	files sync.Map // map[string]*MemoryEntry
}

// NewTargetMemory creates a new in-memory filesystem.
func NewTargetMemory() *TargetMemory {
	return &TargetMemory{}
}

// CreateFile creates a new file in the in-memory filesystem. The file is created with the given mode.
// If the overwrite flag is set to false and the file already exists, an error is returned. If the overwrite
// flag is set to true, the file is overwritten. The maxSize parameter can be used to limit the size of the file.
// If the file exceeds the maxSize, an error is returned. If the file is created successfully, the number of bytes
// written is returned.
func (m *TargetMemory) CreateFile(path string, src io.Reader, mode fs.FileMode, overwrite bool, maxSize int64) (int64, error) {
	path = filepath.ToSlash(path)
	if !fs.ValidPath(path) {
		return 0, fmt.Errorf("%w: %s", fs.ErrInvalid, path)
	}
	if e, ok := m.files.Load(path); ok {
		if !overwrite {
			return 0, fmt.Errorf("%w: %s", fs.ErrExist, path)
		}
		if e.(*MemoryEntry).FileInfo.IsDir() {
			return 0, fmt.Errorf("is a directory: %s", path)
		}
	}

	// create byte buffered writer
	var buf bytes.Buffer
	w := limitWriter(&buf, maxSize)

	// write to buffer
	n, err := io.Copy(w, src)
	if err != nil {
		return n, err
	}

	m.files.Store(path, &MemoryEntry{
		FileInfo: &MemoryFileInfo{name: filepath.Base(path), size: n, mode: mode.Perm(), modTime: now()},
		Data:     buf.Bytes(),
	})

	return n, nil
}

// CreateDir creates a new directory and all missing parents in the in-memory
// filesystem. Existing directories are left untouched.
func (m *TargetMemory) CreateDir(path string, mode fs.FileMode) error {
	path = filepath.ToSlash(path)
	if !fs.ValidPath(path) {
		return fmt.Errorf("%w: %s", fs.ErrInvalid, path)
	}
	if path == "." {
		return nil
	}

	parts := strings.Split(path, "/")
	for i := range parts {
		dir := strings.Join(parts[:i+1], "/")
		if e, ok := m.files.Load(dir); ok {
			if !e.(*MemoryEntry).FileInfo.IsDir() {
				return fmt.Errorf("not a directory: %s", dir)
			}
			continue
		}
		m.files.Store(dir, &MemoryEntry{
			FileInfo: &MemoryFileInfo{name: parts[i], mode: mode.Perm() | fs.ModeDir, modTime: now()},
		})
	}

	return nil
}

// CreateSymlink creates a new symlink in the in-memory filesystem.
// If the overwrite flag is set to false and the symlink already exists, an error is returned.
// If the overwrite flag is set to true, the symlink is overwritten. If the symlink is created successfully, nil is returned.
func (m *TargetMemory) CreateSymlink(oldName string, newName string, overwrite bool) error {
	newName = filepath.ToSlash(newName)
	if !fs.ValidPath(newName) {
		return fmt.Errorf("%w: %s", fs.ErrInvalid, newName)
	}
	if !overwrite {
		if _, ok := m.files.Load(newName); ok {
			return fmt.Errorf("%w: %s", fs.ErrExist, newName)
		}
	}

	m.files.Store(newName, &MemoryEntry{
		FileInfo: &MemoryFileInfo{name: filepath.Base(newName), mode: 0777 | fs.ModeSymlink, modTime: now()},
		Data:     []byte(oldName),
	})

	return nil
}

// Lstat returns the FileInfo for the given path. If the path is a symlink, the FileInfo for the symlink is returned.
// If the path does not exist, an error is returned.
func (m *TargetMemory) Lstat(path string) (fs.FileInfo, error) {
	path = filepath.ToSlash(path)
	if !fs.ValidPath(path) {
		return nil, fmt.Errorf("%w: %s", fs.ErrInvalid, path)
	}
	if e, ok := m.files.Load(path); ok {
		return e.(*MemoryEntry).FileInfo, nil
	}
	return nil, &fs.PathError{Op: "lstat", Path: path, Err: fs.ErrNotExist}
}

// Stat returns the FileInfo for the given path. If the path is a symlink, the FileInfo for the target of the symlink is returned.
// If the path does not exist, an error is returned.
func (m *TargetMemory) Stat(path string) (fs.FileInfo, error) {
	return m.stat(path, 0)
}

// maxSymlinkHops is the number of symlinks Stat follows before giving up,
// like MAXSYMLINKS on linux.
const maxSymlinkHops = 255

// errSymlinkLoop is returned by Stat if a path resolves through too many symlinks.
var errSymlinkLoop = errors.New("too many levels of symbolic links")

func (m *TargetMemory) stat(path string, hops int) (fs.FileInfo, error) {
	path = filepath.ToSlash(path)
	if !fs.ValidPath(path) {
		return nil, fmt.Errorf("%w: %s", fs.ErrInvalid, path)
	}
	if e, ok := m.files.Load(path); ok {
		me := e.(*MemoryEntry)
		if me.FileInfo.Mode()&fs.ModeSymlink != 0 {
			if hops >= maxSymlinkHops {
				return nil, &fs.PathError{Op: "stat", Path: path, Err: errSymlinkLoop}
			}
			return m.stat(filepath.Join(filepath.Dir(path), string(me.Data)), hops+1)
		}
		return me.FileInfo, nil
	}
	return nil, &fs.PathError{Op: "stat", Path: path, Err: fs.ErrNotExist}
}

// Readlink returns the target of the symlink at the given path. If the path is not a symlink, an error is returned.
// If the path does not exist, an error is returned. If the symlink exists, the target of the symlink is returned.
func (m *TargetMemory) Readlink(path string) (string, error) {
	path = filepath.ToSlash(path)
	if !fs.ValidPath(path) {
		return "", fmt.Errorf("%w: %s", fs.ErrInvalid, path)
	}
	if e, ok := m.files.Load(path); ok {
		me := e.(*MemoryEntry)
		if me.FileInfo.Mode()&fs.ModeSymlink != 0 {
			return string(me.Data), nil
		}
		return "", fmt.Errorf("not a symlink: %w: %s", fs.ErrInvalid, path)
	}
	return "", &fs.PathError{Op: "readlink", Path: path, Err: fs.ErrNotExist}
}

// ReadFile returns the content of the file at path.
func (m *TargetMemory) ReadFile(path string) ([]byte, error) {
	path = filepath.ToSlash(path)
	if !fs.ValidPath(path) {
		return nil, fmt.Errorf("%w: %s", fs.ErrInvalid, path)
	}
	if e, ok := m.files.Load(path); ok {
		me := e.(*MemoryEntry)
		if me.FileInfo.IsDir() {
			return nil, fmt.Errorf("cannot read directory")
		}
		return me.Data, nil
	}
	return nil, &fs.PathError{Op: "read", Path: path, Err: fs.ErrNotExist}
}

// Chtimes sets the modification time of the entry at path. The access time is not recorded.
func (m *TargetMemory) Chtimes(path string, _, mtime time.Time) error {
	path = filepath.ToSlash(path)
	e, ok := m.files.Load(path)
	if !ok {
		return &fs.PathError{Op: "chtimes", Path: path, Err: fs.ErrNotExist}
	}
	e.(*MemoryEntry).FileInfo.modTime = mtime
	return nil
}

// Lchtimes behaves like Chtimes, symlinks are never followed in memory.
func (m *TargetMemory) Lchtimes(path string, atime, mtime time.Time) error {
	return m.Chtimes(path, atime, mtime)
}

// MemoryEntry is an entry in the in-memory filesystem
type MemoryEntry struct {
	FileInfo *MemoryFileInfo
	Data     []byte
}

// MemoryFileInfo is a FileInfo implementation for the in-memory filesystem
type MemoryFileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
}

// Name returns the name of the file
func (fi *MemoryFileInfo) Name() string {
	return fi.name
}

// Size returns the size of the file
func (fi *MemoryFileInfo) Size() int64 {
	return fi.size
}

// Mode returns the mode of the file
func (fi *MemoryFileInfo) Mode() fs.FileMode {
	return fi.mode
}

// ModTime returns the modification time of the file
func (fi *MemoryFileInfo) ModTime() time.Time {
	return fi.modTime
}

// IsDir returns true if the file is a directory
func (fi *MemoryFileInfo) IsDir() bool {
	return fi.mode.IsDir()
}

// Sys returns the underlying data source (nil for in-memory filesystem)
func (fi *MemoryFileInfo) Sys() any {
	return nil
}
