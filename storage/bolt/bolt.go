package bolt

import (
	"log"
	"os"
	"path/filepath"

	bbolt "go.etcd.io/bbolt"

	"github.com/rstms/stablefs"
	"github.com/rstms/stablefs/storage"
)

const DatabaseName = "stablefs.bolt"

var metaBucket = []byte("meta")
var pageBucket = []byte("pages")
var pageCountKey = []byte("pages")

// boltStorage persists each page as one value keyed by page number.
// Pages that were grown but never written are absent and read as zeros.
//
// - meta/pages -> page count
// - pages/<page number> -> PageSize bytes
type boltStorage struct {
	db    *bbolt.DB
	pages uint64
	limit uint64
}

var _ stablefs.StorageBlock = &boltStorage{}

func Open(config storage.Config) (stablefs.StorageBlock, error) {
	err := os.MkdirAll(config.Directory, 0700)
	if err != nil {
		return nil, Fatal(err)
	}
	filename := filepath.Join(config.Directory, DatabaseName)
	db, err := bbolt.Open(filename, 0600, nil)
	if err != nil {
		return nil, Fatal(err)
	}
	s := &boltStorage{db: db, limit: config.PageLimit()}
	err = db.Update(func(tx *bbolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(metaBucket)
		if err != nil {
			return err
		}
		_, err = tx.CreateBucketIfNotExists(pageBucket)
		if err != nil {
			return err
		}
		s.pages = storage.DecodeCount(meta.Get(pageCountKey))
		return nil
	})
	if err != nil {
		db.Close()
		return nil, Fatal(err)
	}
	log.Printf("bolt: opened %s (%d pages)\n", filename, s.pages)
	return s, nil
}

func (s *boltStorage) Read(offset uint64, length int) ([]byte, error) {
	if err := storage.CheckBounds(offset, length, s.pages); err != nil {
		return nil, err
	}
	buf := make([]byte, length)
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(pageBucket)
		for _, span := range storage.Spans(offset, length) {
			page := b.Get(storage.PageKey(nil, span.Page))
			if page == nil {
				continue
			}
			copy(buf[span.Start:span.End], page[span.Offset:])
		}
		return nil
	})
	if err != nil {
		return nil, Fatal(err)
	}
	return buf, nil
}

func (s *boltStorage) Write(offset uint64, data []byte) error {
	if err := storage.CheckBounds(offset, len(data), s.pages); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(pageBucket)
		for _, span := range storage.Spans(offset, len(data)) {
			key := storage.PageKey(nil, span.Page)
			page := make([]byte, stablefs.PageSize)
			copy(page, b.Get(key))
			copy(page[span.Offset:], data[span.Start:span.End])
			if err := b.Put(key, page); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Fatal(err)
	}
	return nil
}

func (s *boltStorage) Grow(pages uint64) (uint64, error) {
	previous := s.pages
	total, err := storage.CheckGrow(previous, pages, s.limit)
	if err != nil {
		return previous, err
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(metaBucket).Put(pageCountKey, storage.EncodeCount(total))
	})
	if err != nil {
		return previous, Fatal(err)
	}
	s.pages = total
	log.Printf("bolt: grew %d -> %d pages\n", previous, total)
	return previous, nil
}

func (s *boltStorage) Size() uint64 {
	return s.pages
}

func (s *boltStorage) Close() error {
	err := s.db.Close()
	if err != nil {
		return Fatal(err)
	}
	return nil
}
