// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unzip

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	securejoin "github.com/cyphar/filepath-securejoin"
)

// materializer creates the filesystem objects for the entries of one
// archive below dst. It is used by a single extraction and is not safe
// for concurrent use.
type materializer struct {
	t   Target
	dst string
	cfg *Config
	td  *TelemetryData

	// extractedBytes is the sum of all bytes written so far
	extractedBytes int64

	// dirs holds the directories whose modification time is applied
	// after all entries have been extracted
	dirs []dirTime
}

type dirTime struct {
	path  string
	mtime time.Time
}

func newMaterializer(t Target, dst string, cfg *Config, td *TelemetryData) *materializer {
	return &materializer{t: t, dst: dst, cfg: cfg, td: td}
}

// materialize creates the filesystem object for e. It returns after all
// content streams of e are closed.
func (m *materializer) materialize(e *Entry, c Classification) error {
	switch c.Kind {
	case KindDirectory:
		return m.createDir(e, c)
	case KindSymlink:
		return m.createSymlink(e)
	default:
		return m.createFile(e, c)
	}
}

// finalize applies the deferred directory modification times, deepest first.
func (m *materializer) finalize() error {
	for i := len(m.dirs) - 1; i >= 0; i-- {
		d := m.dirs[i]
		if err := m.t.Chtimes(d.path, d.mtime, d.mtime); err != nil {
			return &StreamError{Name: d.path, Op: "chtimes", Err: err}
		}
	}
	m.dirs = nil
	return nil
}

// createDir creates the directory of e and all missing parents.
func (m *materializer) createDir(e *Entry, c Classification) error {
	rel, err := localName(e.Name())
	if err != nil {
		return err
	}
	if rel == "." {
		return nil
	}

	path, err := m.securePath(rel, true)
	if err != nil {
		return err
	}

	// entries without permission bits get the configured default
	mode := c.Perm
	if c.Mode&0777 == 0 {
		mode = m.cfg.CustomCreateDirMode()
	}
	if err := m.t.CreateDir(path, mode); err != nil {
		return &StreamError{Name: e.Name(), Op: "mkdir", Err: err}
	}
	m.td.ExtractedDirs++

	if m.cfg.PreserveFileAttributes() && !e.ModTime().IsZero() {
		m.dirs = append(m.dirs, dirTime{path: path, mtime: e.ModTime()})
	}
	return nil
}

// createFile streams the content of e into a new file with the permission from c.
func (m *materializer) createFile(e *Entry, c Classification) error {
	// check announced size before any byte is decompressed
	if err := m.cfg.CheckExtractionSize(m.extractedBytes + e.UncompressedSize()); err != nil {
		return err
	}

	rel, err := localName(e.Name())
	if err != nil {
		return err
	}
	if err := m.createParent(e.Name(), rel); err != nil {
		return err
	}
	path, err := m.securePath(rel, false)
	if err != nil {
		return err
	}

	rc, err := e.Open()
	if err != nil {
		return err
	}

	// remaining budget, the announced size in the header is not trusted
	maxSize := int64(-1)
	if m.cfg.MaxExtractionSize() != -1 {
		maxSize = m.cfg.MaxExtractionSize() - m.extractedBytes
	}

	src := &entryReader{r: rc}
	n, err := m.t.CreateFile(path, src, c.Perm, m.cfg.Overwrite(), maxSize)
	closeErr := rc.Close()
	m.extractedBytes += n
	m.td.ExtractionSize = m.extractedBytes

	switch {
	case src.err != nil:
		return &StreamError{Name: e.Name(), Op: "read", Err: src.err}
	case errors.Is(err, ErrMaxExtractionSizeExceeded):
		return err
	case err != nil:
		return &StreamError{Name: e.Name(), Op: "write", Err: err}
	case closeErr != nil:
		return &StreamError{Name: e.Name(), Op: "read", Err: closeErr}
	}
	m.td.ExtractedFiles++

	if m.cfg.PreserveFileAttributes() && !e.ModTime().IsZero() {
		if err := m.t.Chtimes(path, e.ModTime(), e.ModTime()); err != nil {
			return &StreamError{Name: e.Name(), Op: "chtimes", Err: err}
		}
	}
	return nil
}

// createSymlink reads the link target from the content of e and creates the link.
func (m *materializer) createSymlink(e *Entry) error {
	rel, err := localName(e.Name())
	if err != nil {
		return err
	}
	if err := m.createParent(e.Name(), rel); err != nil {
		return err
	}
	path, err := m.securePath(rel, false)
	if err != nil {
		return err
	}

	linkTarget, err := m.readLinkTarget(e)
	if err != nil {
		return err
	}

	if !m.cfg.InsecureSymlinkTargets() {
		if err := checkLinkTarget(rel, linkTarget); err != nil {
			return fmt.Errorf("%w: symlink %s with target %s", err, e.Name(), linkTarget)
		}
	}

	if err := m.t.CreateSymlink(linkTarget, path, m.cfg.Overwrite()); err != nil {
		return &StreamError{Name: e.Name(), Op: "symlink", Err: err}
	}
	m.td.ExtractedSymlinks++

	if m.cfg.PreserveFileAttributes() && !e.ModTime().IsZero() {
		if err := m.t.Lchtimes(path, e.ModTime(), e.ModTime()); err != nil {
			return &StreamError{Name: e.Name(), Op: "chtimes", Err: err}
		}
	}
	return nil
}

// readLinkTarget drains the content stream of e, which holds the link
// target, and closes it.
func (m *materializer) readLinkTarget(e *Entry) (string, error) {
	rc, err := e.Open()
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(newLimitErrorReader(rc, m.cfg.MaxLinkTargetLength()))
	closeErr := rc.Close()

	switch {
	case errors.Is(err, errReadLimitExceeded):
		return "", fmt.Errorf("%w: %s exceeds %d bytes", ErrLinkTargetTooLong, e.Name(), m.cfg.MaxLinkTargetLength())
	case err != nil:
		return "", &StreamError{Name: e.Name(), Op: "read", Err: err}
	case closeErr != nil:
		return "", &StreamError{Name: e.Name(), Op: "read", Err: closeErr}
	case len(data) == 0 || !utf8.Valid(data):
		return "", fmt.Errorf("%w: %s", ErrInvalidLinkTarget, e.Name())
	}
	return string(data), nil
}

// checkLinkTarget ensures that the link at rel cannot resolve outside of
// the destination. Parent references are only accepted in front of the
// first named component, as any named component may itself be a symlink.
func checkLinkTarget(rel string, linkTarget string) error {
	if filepath.IsAbs(linkTarget) || strings.HasPrefix(linkTarget, "/") {
		return fmt.Errorf("%w: absolute link target", ErrPathTraversal)
	}

	// number of directories between the destination and the link
	depth := 0
	if parent := filepath.Dir(rel); parent != "." {
		depth = len(strings.Split(parent, string(os.PathSeparator)))
	}

	descended := false
	for _, element := range strings.Split(filepath.ToSlash(linkTarget), "/") {
		switch element {
		case "", ".":
		case "..":
			if descended || depth == 0 {
				return fmt.Errorf("%w: link target leaves destination", ErrPathTraversal)
			}
			depth--
		default:
			descended = true
		}
	}
	return nil
}

// createParent ensures that the parent directory of rel exists. Parents
// that are not part of the archive get the configured default mode.
func (m *materializer) createParent(name string, rel string) error {
	parent := filepath.Dir(rel)
	if parent == "." {
		return nil
	}
	path, err := m.securePath(parent, true)
	if err != nil {
		return err
	}
	if err := m.t.CreateDir(path, m.cfg.CustomCreateDirMode()); err != nil {
		return &StreamError{Name: name, Op: "mkdir", Err: err}
	}
	return nil
}

// securePath joins rel to the destination and checks every existing path
// component for symlinks. The last component is only checked if
// checkLeaf is set.
//
// If symlink traversal is enabled, symlinks in the path are resolved
// within the destination instead.
func (m *materializer) securePath(rel string, checkLeaf bool) (string, error) {
	if m.cfg.TraverseSymlinks() {
		return m.resolvePath(rel, checkLeaf)
	}

	elements := strings.Split(rel, string(os.PathSeparator))
	n := len(elements)
	if !checkLeaf {
		n--
	}

	for i := 0; i < n; i++ {
		checkPath := filepath.Join(m.dst, filepath.Join(elements[:i+1]...))
		stat, err := m.t.Lstat(checkPath)
		if err != nil {
			// nothing below a missing component can exist
			if errors.Is(err, fs.ErrNotExist) {
				break
			}
			return "", fmt.Errorf("invalid path: %w", err)
		}
		if stat.Mode()&fs.ModeSymlink != 0 {
			return "", fmt.Errorf("%w: %s", ErrSymlinkInPath, filepath.Join(elements[:i+1]...))
		}
	}

	return filepath.Join(m.dst, rel), nil
}

// resolvePath resolves symlinks in rel, scoped to the destination.
func (m *materializer) resolvePath(rel string, resolveLeaf bool) (string, error) {
	unresolved := rel
	if !resolveLeaf {
		unresolved = filepath.Dir(rel)
	}

	resolved, err := securejoin.SecureJoinVFS(m.dst, unresolved, m.t)
	if err != nil {
		return "", fmt.Errorf("cannot resolve path: %w", err)
	}
	if lexical := filepath.Join(m.dst, unresolved); resolved != lexical {
		m.cfg.Logger().Warn("traverse symlink", "path", rel, "resolved", resolved)
	}

	if !resolveLeaf {
		resolved = filepath.Join(resolved, filepath.Base(rel))
	}
	return resolved, nil
}

// localName converts the archive-internal name to a platform specific
// relative path and ensures that it does not leave the destination.
func localName(name string) (string, error) {
	if len(name) == 0 {
		return "", fmt.Errorf("cannot extract entry without name")
	}

	parts := strings.Split(name, "/")
	rel := filepath.Join(parts...)
	if strings.HasPrefix(name, "/") || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, name)
	}
	return rel, nil
}

// entryReader remembers the first read error of the decompression stream,
// so that it can be told apart from write errors of the target.
type entryReader struct {
	r   io.Reader
	err error
}

func (er *entryReader) Read(p []byte) (int, error) {
	n, err := er.r.Read(p)
	if err != nil && err != io.EOF && er.err == nil {
		er.err = err
	}
	return n, err
}
