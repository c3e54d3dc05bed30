// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unzip

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
)

// ConfigOption is a function pointer to implement the option pattern
type ConfigOption func(*Config)

// Config provides a configuration struct and options to adjust the configuration.
//
// The configuration struct holds all configuration options for the extraction process.
// The configuration options can be adjusted using the option pattern style.
//
// The default configuration is designed to be secure by default and prevent exhaustion,
// path traversal and symlink attacks.
type Config struct {
	// createDestination creates the destination directory if it does not exist
	createDestination bool

	// customCreateDirMode is the file mode for created directories, that are not defined
	// in the archive or carry no unix permission bits (respecting umask)
	customCreateDirMode fs.FileMode

	// insecureSymlinkTargets allows symlink targets that are absolute or point outside
	// of the destination
	insecureSymlinkTargets bool

	// logger stream for extraction
	logger logger

	// maxExtractionSize is the maximum size over all decompressed files.
	// Set value to -1 to disable the check.
	maxExtractionSize int64

	// maxFiles is the maximum of entries (including folder and symlinks) in an archive.
	// Set value to -1 to disable the check.
	maxFiles int64

	// maxInputSize is the maximum size of the archive file.
	// Set value to -1 to disable the check.
	maxInputSize int64

	// maxLinkTargetLength is the maximum length in bytes of a symlink target.
	maxLinkTargetLength int64

	// overwrite existing files and symlinks in the destination
	overwrite bool

	// preserveFileAttributes applies the modification time of the entries
	preserveFileAttributes bool

	// telemetryHook is a function to consume telemetry data after finished extraction
	// Important: do not adjust this value after extraction started
	telemetryHook TelemetryHook

	// traverseSymlinks traverses symlinks to directories during extraction
	traverseSymlinks bool
}

// CheckMaxFiles checks if counter exceeds the configured maximum. If the maximum is exceeded,
// a [ErrMaxFilesExceeded] error is returned.
func (c *Config) CheckMaxFiles(counter int64) error {

	// check if disabled
	if c.MaxFiles() == -1 {
		return nil
	}

	// check value
	if counter > c.MaxFiles() {
		return ErrMaxFilesExceeded
	}
	return nil
}

// CheckExtractionSize checks if fileSize exceeds configured maximum. If the maximum is exceeded,
// a [ErrMaxExtractionSizeExceeded] error is returned.
func (c *Config) CheckExtractionSize(fileSize int64) error {

	// check if disabled
	if c.MaxExtractionSize() == -1 {
		return nil
	}

	// check value
	if fileSize > c.MaxExtractionSize() {
		return ErrMaxExtractionSizeExceeded
	}
	return nil
}

// CreateDestination returns true if the destination directory should be
// created if it does not exist.
func (c *Config) CreateDestination() bool {
	return c.createDestination
}

// CustomCreateDirMode returns the file mode for created directories,
// that are not defined in the archive. (respecting umask)
func (c *Config) CustomCreateDirMode() fs.FileMode {
	return c.customCreateDirMode
}

// InsecureSymlinkTargets returns true if symlink targets may be absolute or
// point outside of the destination.
func (c *Config) InsecureSymlinkTargets() bool {
	return c.insecureSymlinkTargets
}

// Logger returns the logger.
func (c *Config) Logger() logger {
	return c.logger
}

// MaxExtractionSize returns the maximum size over all decompressed and extracted files.
func (c *Config) MaxExtractionSize() int64 {
	return c.maxExtractionSize
}

// MaxFiles returns the maximum of files (including folder and symlinks) in an archive.
func (c *Config) MaxFiles() int64 {
	return c.maxFiles
}

// MaxInputSize returns the maximum size of the archive file.
func (c *Config) MaxInputSize() int64 {
	return c.maxInputSize
}

// MaxLinkTargetLength returns the maximum length in bytes of a symlink target.
func (c *Config) MaxLinkTargetLength() int64 {
	return c.maxLinkTargetLength
}

// Overwrite returns true if files should be overwritten in the destination.
func (c *Config) Overwrite() bool {
	return c.overwrite
}

// PreserveFileAttributes returns true if the modification times of the
// entries should be applied to the extracted files.
func (c *Config) PreserveFileAttributes() bool {
	return c.preserveFileAttributes
}

// TelemetryHook returns the telemetry hook.
func (c *Config) TelemetryHook() TelemetryHook {
	if c.telemetryHook == nil {
		return defaultTelemetryHook
	}
	return c.telemetryHook
}

// TraverseSymlinks returns true if symlinks should be traversed during extraction.
func (c *Config) TraverseSymlinks() bool {
	return c.traverseSymlinks
}

const (
	defaultCreateDestination      = true          // create destination directory
	defaultCustomCreateDirMode    = 0755          // default directory permissions rwxr-xr-x
	defaultInsecureSymlinkTargets = false         // reject absolute and escaping link targets
	defaultMaxFiles               = 100000        // 100k files
	defaultMaxExtractionSize      = 1 << (10 * 3) // 1 Gb
	defaultMaxInputSize           = 1 << (10 * 3) // 1 Gb
	defaultMaxLinkTargetLength    = 4096          // PATH_MAX on linux
	defaultOverwrite              = true          // replace existing files
	defaultPreserveFileAttributes = false         // don't apply modification times
	defaultTraverseSymlinks       = false         // don't traverse symlinks
)

var (
	// slog to discard
	defaultLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))

	// no operation telemetry hook
	defaultTelemetryHook = func(ctx context.Context, d *TelemetryData) {
		// noop
	}
)

// NewConfig is a generator option that takes opts as adjustments of the
// default configuration in an option pattern style.
func NewConfig(opts ...ConfigOption) *Config {

	// setup default values
	config := &Config{
		createDestination:      defaultCreateDestination,
		customCreateDirMode:    defaultCustomCreateDirMode,
		insecureSymlinkTargets: defaultInsecureSymlinkTargets,
		logger:                 defaultLogger,
		maxFiles:               defaultMaxFiles,
		maxExtractionSize:      defaultMaxExtractionSize,
		maxInputSize:           defaultMaxInputSize,
		maxLinkTargetLength:    defaultMaxLinkTargetLength,
		overwrite:              defaultOverwrite,
		preserveFileAttributes: defaultPreserveFileAttributes,
		telemetryHook:          defaultTelemetryHook,
		traverseSymlinks:       defaultTraverseSymlinks,
	}

	// Loop through each option
	for _, opt := range opts {
		opt(config)
	}

	return config
}

// WithCreateDestination options pattern function to create
// destination directory if it does not exist.
func WithCreateDestination(create bool) ConfigOption {
	return func(c *Config) {
		c.createDestination = create
	}
}

// WithCustomCreateDirMode options pattern function to set the file mode
// for created directories, that are not defined in the archive. (respecting umask)
func WithCustomCreateDirMode(mode fs.FileMode) ConfigOption {
	return func(c *Config) {
		c.customCreateDirMode = mode
	}
}

// WithInsecureSymlinkTargets options pattern function to allow symlink targets
// that are absolute or point outside of the destination.
func WithInsecureSymlinkTargets(allow bool) ConfigOption {
	return func(c *Config) {
		c.insecureSymlinkTargets = allow
	}
}

// WithInsecureTraverseSymlinks options pattern function to traverse symlinks during extraction.
// Paths are still resolved within the destination.
func WithInsecureTraverseSymlinks(traverse bool) ConfigOption {
	return func(c *Config) {
		c.traverseSymlinks = traverse
	}
}

// WithLogger options pattern function to set a custom logger.
func WithLogger(logger logger) ConfigOption {
	return func(c *Config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMaxExtractionSize options pattern function to set maximum size over all decompressed
// and extracted files. (-1 to disable check)
func WithMaxExtractionSize(maxExtractionSize int64) ConfigOption {
	return func(c *Config) {
		c.maxExtractionSize = maxExtractionSize
	}
}

// WithMaxFiles options pattern function to set maximum number of extracted, files, directories
// and symlinks during the extraction. (-1 to disable check)
func WithMaxFiles(maxFiles int64) ConfigOption {
	return func(c *Config) {
		c.maxFiles = maxFiles
	}
}

// WithMaxInputSize options pattern function to set MaxInputSize for the archive file. (-1 to disable check)
func WithMaxInputSize(maxInputSize int64) ConfigOption {
	return func(c *Config) {
		c.maxInputSize = maxInputSize
	}
}

// WithMaxLinkTargetLength options pattern function to set the maximum length
// in bytes of a symlink target. Values below 1 are ignored.
func WithMaxLinkTargetLength(length int64) ConfigOption {
	return func(c *Config) {
		if length > 0 {
			c.maxLinkTargetLength = length
		}
	}
}

// WithOverwrite options pattern function specify if files should be overwritten in the destination.
func WithOverwrite(enable bool) ConfigOption {
	return func(c *Config) {
		c.overwrite = enable
	}
}

// WithPreserveFileAttributes options pattern function to apply the modification
// times stored in the archive to the extracted files, directories and symlinks.
func WithPreserveFileAttributes(preserve bool) ConfigOption {
	return func(c *Config) {
		c.preserveFileAttributes = preserve
	}
}

// WithTelemetryHook options pattern function to set a [TelemetryHook], which is called after extraction.
func WithTelemetryHook(hook TelemetryHook) ConfigOption {
	return func(c *Config) {
		c.telemetryHook = hook
	}
}
