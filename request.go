// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unzip

import "fmt"

// EntryFunc is called for every entry before it is extracted. index starts
// at 1 and total is the number of entries in the central directory. A
// returned error aborts the extraction and is returned by [Extract] as is.
type EntryFunc func(name string, index, total int) error

// Request describes one extraction.
type Request struct {
	// Destination is the directory the archive is extracted into.
	Destination string

	// Source is the path of the zip archive.
	Source string

	// OnEntry is optional.
	OnEntry EntryFunc
}

// validate checks the request fields that do not require any I/O.
func (r Request) validate() error {
	if len(r.Destination) == 0 {
		return fmt.Errorf("%w: destination must not be empty", ErrInvalidArgument)
	}
	if len(r.Source) == 0 {
		return fmt.Errorf("%w: source must not be empty", ErrInvalidArgument)
	}
	return nil
}
