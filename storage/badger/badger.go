package badger

import (
	"log"
	"os"

	"github.com/dgraph-io/badger"

	"github.com/rstms/stablefs"
	"github.com/rstms/stablefs/storage"
)

var pagePrefix = []byte("p")
var pageCountKey = []byte("m")

// badgerStorage persists pages in a badger key/value store.
//
// - key "m" -> page count
// - key "p" + page number -> PageSize bytes (absent pages read as zeros)
type badgerStorage struct {
	db    *badger.DB
	pages uint64
	limit uint64
}

var _ stablefs.StorageBlock = &badgerStorage{}

func Open(config storage.Config) (stablefs.StorageBlock, error) {
	dir := config.Directory
	err := os.MkdirAll(dir, 0700)
	if err != nil {
		return nil, Fatal(err)
	}
	opts := badger.DefaultOptions
	opts.Dir = dir
	opts.ValueDir = dir
	db, err := badger.Open(opts)
	if err != nil {
		return nil, Fatal(err)
	}
	s := &badgerStorage{db: db, limit: config.PageLimit()}
	v, err := s.get(pageCountKey)
	if err != nil {
		db.Close()
		return nil, Fatal(err)
	}
	s.pages = storage.DecodeCount(v)
	log.Printf("badger: opened %s (%d pages)\n", dir, s.pages)
	return s, nil
}

// get returns nil for a missing key.
func (s *badgerStorage) get(k []byte) (v []byte, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		v, err = item.ValueCopy(nil)
		return err
	})
	return
}

func (s *badgerStorage) Read(offset uint64, length int) ([]byte, error) {
	if err := storage.CheckBounds(offset, length, s.pages); err != nil {
		return nil, err
	}
	buf := make([]byte, length)
	for _, span := range storage.Spans(offset, length) {
		page, err := s.get(storage.PageKey(pagePrefix, span.Page))
		if err != nil {
			return nil, Fatal(err)
		}
		if page == nil {
			continue
		}
		copy(buf[span.Start:span.End], page[span.Offset:])
	}
	return buf, nil
}

func (s *badgerStorage) Write(offset uint64, data []byte) error {
	if err := storage.CheckBounds(offset, len(data), s.pages); err != nil {
		return err
	}
	for _, span := range storage.Spans(offset, len(data)) {
		key := storage.PageKey(pagePrefix, span.Page)
		old, err := s.get(key)
		if err != nil {
			return Fatal(err)
		}
		page := make([]byte, stablefs.PageSize)
		copy(page, old)
		copy(page[span.Offset:], data[span.Start:span.End])
		err = s.db.Update(func(txn *badger.Txn) error {
			return txn.Set(key, page)
		})
		if err != nil {
			return Fatal(err)
		}
	}
	return nil
}

func (s *badgerStorage) Grow(pages uint64) (uint64, error) {
	previous := s.pages
	total, err := storage.CheckGrow(previous, pages, s.limit)
	if err != nil {
		return previous, err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(pageCountKey, storage.EncodeCount(total))
	})
	if err != nil {
		return previous, Fatal(err)
	}
	s.pages = total
	log.Printf("badger: grew %d -> %d pages\n", previous, total)
	return previous, nil
}

func (s *badgerStorage) Size() uint64 {
	return s.pages
}

func (s *badgerStorage) Close() error {
	err := s.db.Close()
	if err != nil {
		return Fatal(err)
	}
	return nil
}
