package stablefs

import (
	"io"
)

// File is an open regular file inside a FileSystem. Writes extend the
// file's cluster chain as needed; Sync persists the directory entry and
// the allocation tables.
type File interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer

	Size() uint64
	Truncate(size int64) error
	Sync() error
}
