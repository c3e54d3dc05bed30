// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package unzip extracts zip archives into a destination directory.
//
// The central directory is parsed once when the archive is opened. Entries are
// then handed out one at a time, classified as directory, symlink or regular
// file from their external attributes, and created below the destination. The
// content stream of an entry is closed before the next entry is read.
//
// Extraction can target the local disk or any other [Target], for example the
// in-memory [TargetMemory]. Limits, overwrite behavior, logging and the
// [TelemetryHook] are set on the [Config] using the option pattern.
//
// The default configuration is secure: entry names and symlink targets that
// would leave the destination are rejected, and symlinks in the extraction
// path are not followed.
package unzip
