// Package storage holds the pieces shared by the StorageBlock backends:
// configuration, page arithmetic and bounds checking. The backends
// themselves live in the subpackages and are selected by name through
// storage/factory.
package storage

import (
	"encoding/binary"

	"github.com/jmgilman/go/errors"
	"github.com/spf13/afero"

	"github.com/rstms/stablefs"
)

// DefaultMaxPages caps growth at 256 MiB unless configured otherwise.
const DefaultMaxPages = 4096

// ErrOutOfBounds is returned for any access past the allocated pages.
var ErrOutOfBounds = errors.New(errors.CodeInternal, "access outside allocated storage")

// ErrClosed is returned by backends used after Close.
var ErrClosed = errors.New(errors.CodeInternal, "storage is closed")

// Config selects where and how large a backend may be.
type Config struct {
	// Directory holds the backend's files; unused by the memory backend.
	Directory string

	// MaxPages bounds Grow; zero means DefaultMaxPages.
	MaxPages uint64

	// Fs is the filesystem used by the file backend; nil means the OS.
	Fs afero.Fs
}

func (c Config) PageLimit() uint64 {
	if c.MaxPages == 0 {
		return DefaultMaxPages
	}
	return c.MaxPages
}

// CheckBounds verifies that [offset, offset+length) lies inside pages.
func CheckBounds(offset uint64, length int, pages uint64) error {
	if length < 0 {
		return errors.Newf(errors.CodeInvalidInput, "negative length %d", length)
	}
	end := offset + uint64(length)
	if end < offset || end > pages*stablefs.PageSize {
		err := stablefs.Errorf(ErrOutOfBounds, "read/write of %d bytes at %d", length, offset)
		return errors.WithContextMap(err, map[string]interface{}{
			"offset": offset,
			"length": length,
			"size":   pages * stablefs.PageSize,
		})
	}
	return nil
}

// CheckGrow returns the page count after growing current by pages, or
// ErrStorageExhausted when that would pass limit.
func CheckGrow(current, pages, limit uint64) (uint64, error) {
	total := current + pages
	if total < current || total > limit {
		return current, stablefs.Errorf(stablefs.ErrStorageExhausted,
			"cannot grow %d pages by %d (limit %d)", current, pages, limit)
	}
	return total, nil
}

// Span is the page-local piece of a byte range. Buffer[Start:End] maps
// onto page bytes [Offset, Offset+End-Start).
type Span struct {
	Page   uint64
	Offset int
	Start  int
	End    int
}

// Spans splits [offset, offset+length) at page boundaries.
func Spans(offset uint64, length int) []Span {
	spans := []Span{}
	pos := 0
	for pos < length {
		abs := offset + uint64(pos)
		page := abs / stablefs.PageSize
		pageOff := int(abs % stablefs.PageSize)
		n := stablefs.PageSize - pageOff
		if n > length-pos {
			n = length - pos
		}
		spans = append(spans, Span{Page: page, Offset: pageOff, Start: pos, End: pos + n})
		pos += n
	}
	return spans
}

// PageKey encodes a page number so that keys sort in page order.
func PageKey(prefix []byte, page uint64) []byte {
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], page)
	return key
}

func EncodeCount(n uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, n)
	return buf
}

func DecodeCount(buf []byte) uint64 {
	if len(buf) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(buf)
}
