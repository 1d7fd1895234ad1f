package stablefs

// PageSize is the growth unit of a StorageBlock.
const PageSize = 64 * 1024

// StorageBlock is a growable, byte addressable persistent region. It is
// the only layer that talks to the backing medium.
//
// Read and Write must stay inside Size()*PageSize bytes; anything past
// the allocated region fails the operation. Grow appends zero filled
// pages and returns the previous page count; pages are never released.
type StorageBlock interface {
	Read(offset uint64, length int) ([]byte, error)
	Write(offset uint64, data []byte) error
	Grow(pages uint64) (uint64, error)
	Size() uint64
	Close() error
}
