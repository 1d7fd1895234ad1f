package fat

import (
	"io"
	"time"

	"github.com/jmgilman/go/errors"

	"github.com/rstms/stablefs"
)

const maxFileSize = 0xFFFFFFFF

// File implements stablefs.File over the cluster chain of one short
// directory entry. The entry's size and write time reach the device
// on Sync or Close.
type File struct {
	chain  *ClusterChain
	dir    *Directory
	entry  *DirectoryClusterEntry
	offset int64
	dirty  bool
}

// ensure File implements stablefs.File
var _ stablefs.File = (*File)(nil)

func (f *File) Size() uint64 {
	return uint64(f.entry.fileSize)
}

func (f *File) Read(p []byte) (int, error) {
	size := int64(f.entry.fileSize)
	if f.offset >= size {
		return 0, io.EOF
	}
	if remain := size - f.offset; int64(len(p)) > remain {
		p = p[:remain]
	}
	n, err := f.chain.ReadAt(p, f.offset)
	f.offset += int64(n)
	return n, err
}

func (f *File) Write(p []byte) (int, error) {
	end := f.offset + int64(len(p))
	if end > maxFileSize {
		return 0, stablefs.Errorf(stablefs.ErrStorageExhausted, "file size %d exceeds %d", end, int64(maxFileSize))
	}
	size := int64(f.entry.fileSize)
	if f.offset > size {
		// the gap may hold stale bytes from an earlier truncate
		gap := make([]byte, f.offset-size)
		if _, err := f.chain.WriteAt(gap, size); err != nil {
			return 0, err
		}
	}
	n, err := f.chain.WriteAt(p, f.offset)
	if err != nil {
		return 0, err
	}
	f.offset += int64(n)
	if f.offset > int64(f.entry.fileSize) {
		f.entry.fileSize = uint32(f.offset)
	}
	f.touch()
	return n, nil
}

func (f *File) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = f.offset
	case io.SeekEnd:
		base = int64(f.entry.fileSize)
	default:
		return f.offset, errors.Newf(errors.CodeInvalidInput, "bad whence %d", whence)
	}
	if base+offset < 0 {
		return f.offset, errors.Newf(errors.CodeInvalidInput, "negative offset %d", base+offset)
	}
	f.offset = base + offset
	return f.offset, nil
}

// Truncate changes the size, zero filling when it grows. The offset is
// left where it was.
func (f *File) Truncate(size int64) error {
	if size < 0 || size > maxFileSize {
		return errors.Newf(errors.CodeInvalidInput, "bad size %d", size)
	}
	old := int64(f.entry.fileSize)
	if size > old {
		if _, err := f.chain.WriteAt(make([]byte, size-old), old); err != nil {
			return err
		}
	} else if err := f.chain.Resize(uint64(size)); err != nil {
		return err
	}
	f.entry.fileSize = uint32(size)
	f.touch()
	return nil
}

func (f *File) touch() {
	now := time.Now()
	f.entry.writeTime = now
	f.entry.accessTime = now
	f.dirty = true
}

// Sync writes the directory holding the entry when it changed.
func (f *File) Sync() error {
	if !f.dirty {
		return nil
	}
	if err := f.dir.dirCluster.WriteToDevice(f.dir.device, f.dir.fat); err != nil {
		return err
	}
	f.dirty = false
	return nil
}

func (f *File) Close() error {
	return f.Sync()
}
