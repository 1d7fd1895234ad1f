package stablefs

import (
	"time"
)

type DirectoryAttr uint8

const (
	AttrReadOnly  DirectoryAttr = 0x01
	AttrHidden    DirectoryAttr = 0x02
	AttrSystem    DirectoryAttr = 0x04
	AttrVolumeId  DirectoryAttr = 0x08
	AttrDirectory DirectoryAttr = 0x10
	AttrArchive   DirectoryAttr = 0x20
	AttrLongName                = AttrReadOnly | AttrHidden | AttrSystem | AttrVolumeId
)

// Directory is an entry in a filesystem that stores files.
type Directory interface {
	// Entry returns the entry matching name case-insensitively, or nil.
	Entry(name string) DirectoryEntry

	// Entries returns the live entries in on-disk order. The "." and
	// ".." entries of subdirectories and volume labels are not included.
	Entries() []DirectoryEntry

	AddDirectory(name string) (DirectoryEntry, error)
	AddFile(name string) (DirectoryEntry, error)

	// Remove deletes the named entry and releases its cluster chain.
	// Directories must be empty.
	Remove(name string) error

	// OpenDir resolves a slash separated sub-path below this directory.
	OpenDir(path string) (Directory, error)
}

// DirectoryEntry represents a single entry within a directory,
// which can be either another Directory or a File.
type DirectoryEntry interface {
	Name() string
	ShortName() string
	IsDir() bool
	Size() uint64
	ModTime() time.Time
	Dir() (Directory, error)
	File() (File, error)
	IsVolumeId() bool
	Attr() DirectoryAttr
}
