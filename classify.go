// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unzip

import "io/fs"

// EntryKind is the kind of filesystem object an entry materializes to.
type EntryKind int

const (
	// KindRegularFile is a file with content.
	KindRegularFile EntryKind = iota

	// KindDirectory is a directory.
	KindDirectory

	// KindSymlink is a symbolic link; the entry content is the link target.
	KindSymlink
)

// String returns a human-readable name of the kind.
func (k EntryKind) String() string {
	switch k {
	case KindDirectory:
		return "directory"
	case KindSymlink:
		return "symlink"
	default:
		return "file"
	}
}

// unix file type bits, see stat(2)
const (
	sIFMT  = 0xF000
	sIFDIR = 0x4000
	sIFLNK = 0xA000
)

const (
	// hostMSDOS is the high byte of version-made-by written by MS-DOS and
	// Windows packers (FAT file attributes).
	hostMSDOS = 0

	// msdosDirAttribute is the external attribute value that legacy Windows
	// packers write for directories, without any unix mode bits.
	msdosDirAttribute = 0x10

	// defaultFileMode is used if the archive carries no permission bits.
	defaultFileMode fs.FileMode = 0644
)

// Classification is the result of [Classify].
type Classification struct {
	// Kind is the derived kind of the entry.
	Kind EntryKind

	// Mode holds the raw unix mode bits from the upper half of the
	// external attributes. Zero if the packer stored none.
	Mode uint32

	// Perm is the permission to create the entry with.
	Perm fs.FileMode
}

// Classify derives the kind and permission of an entry from its external
// attributes and version-made-by fields. It performs no I/O.
//
// Directories are detected by the unix S_IFDIR bits or, for archives
// created by Windows tools that never set unix bits, by the plain MS-DOS
// directory attribute.
func Classify(externalAttributes uint32, versionMadeBy uint16) Classification {
	mode := (externalAttributes >> 16) & 0xFFFF

	c := Classification{Kind: KindRegularFile, Mode: mode}
	switch {
	case mode&sIFMT == sIFLNK:
		c.Kind = KindSymlink
	case mode&sIFMT == sIFDIR:
		c.Kind = KindDirectory
	case versionMadeBy>>8 == hostMSDOS && externalAttributes == msdosDirAttribute:
		c.Kind = KindDirectory
	}

	c.Perm = fs.FileMode(mode & 0777)
	if c.Perm == 0 {
		c.Perm = defaultFileMode
	}
	return c
}
