package file

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/rstms/stablefs"
	"github.com/rstms/stablefs/storage"
)

// ImageName is the image file created inside the configured directory.
const ImageName = "stablefs.img"

// fileStorage keeps the pages in a single image file whose length is
// always a whole number of pages.
type fileStorage struct {
	fs    afero.Fs
	file  afero.File
	pages uint64
	limit uint64
}

var _ stablefs.StorageBlock = &fileStorage{}

// Open opens (or creates empty) the image in config.Directory.
func Open(config storage.Config) (stablefs.StorageBlock, error) {
	fs := config.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if config.Directory != "" {
		err := fs.MkdirAll(config.Directory, 0700)
		if err != nil {
			return nil, Fatal(err)
		}
	}
	filename := filepath.Join(config.Directory, ImageName)
	f, err := fs.OpenFile(filename, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, Fatal(err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, Fatal(err)
	}
	if info.Size()%stablefs.PageSize != 0 {
		f.Close()
		return nil, Fatalf("%s: size %d is not a multiple of %d", filename, info.Size(), stablefs.PageSize)
	}
	s := &fileStorage{
		fs:    fs,
		file:  f,
		pages: uint64(info.Size()) / stablefs.PageSize,
		limit: config.PageLimit(),
	}
	log.Printf("file: opened %s (%d pages)\n", filename, s.pages)
	return s, nil
}

func (s *fileStorage) checkOpen(op string) error {
	if s.file == nil {
		return stablefs.Errorf(storage.ErrClosed, "%s on closed %s", op, ImageName)
	}
	return nil
}

func (s *fileStorage) Read(offset uint64, length int) ([]byte, error) {
	if err := s.checkOpen("read"); err != nil {
		return nil, err
	}
	if err := storage.CheckBounds(offset, length, s.pages); err != nil {
		return nil, err
	}
	buf := make([]byte, length)
	n, err := s.file.ReadAt(buf, int64(offset))
	if err != nil && !(err == io.EOF && n == length) {
		return nil, Fatal(err)
	}
	return buf, nil
}

func (s *fileStorage) Write(offset uint64, data []byte) error {
	if err := s.checkOpen("write"); err != nil {
		return err
	}
	if err := storage.CheckBounds(offset, len(data), s.pages); err != nil {
		return err
	}
	_, err := s.file.WriteAt(data, int64(offset))
	if err != nil {
		return Fatal(err)
	}
	return nil
}

func (s *fileStorage) Grow(pages uint64) (uint64, error) {
	previous := s.pages
	if err := s.checkOpen("grow"); err != nil {
		return previous, err
	}
	total, err := storage.CheckGrow(previous, pages, s.limit)
	if err != nil {
		return previous, err
	}
	err = s.file.Truncate(int64(total * stablefs.PageSize))
	if err != nil {
		return previous, Fatal(err)
	}
	err = s.file.Sync()
	if err != nil {
		return previous, Fatal(err)
	}
	s.pages = total
	log.Printf("file: grew %d -> %d pages\n", previous, total)
	return previous, nil
}

func (s *fileStorage) Size() uint64 {
	return s.pages
}

func (s *fileStorage) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Sync()
	if err != nil {
		return Fatal(err)
	}
	err = s.file.Close()
	if err != nil {
		return Fatal(err)
	}
	s.file = nil
	return nil
}
