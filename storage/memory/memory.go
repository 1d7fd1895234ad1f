package memory

import (
	"log"

	"github.com/rstms/stablefs"
	"github.com/rstms/stablefs/storage"
)

// memoryStorage keeps all pages in one byte slice. Contents do not
// survive the process; it serves tests and scratch volumes.
type memoryStorage struct {
	data  []byte
	pages uint64
	limit uint64
}

var _ stablefs.StorageBlock = &memoryStorage{}

func New(config storage.Config) stablefs.StorageBlock {
	return &memoryStorage{limit: config.PageLimit()}
}

func (m *memoryStorage) Read(offset uint64, length int) ([]byte, error) {
	if err := storage.CheckBounds(offset, length, m.pages); err != nil {
		return nil, err
	}
	buf := make([]byte, length)
	copy(buf, m.data[offset:])
	return buf, nil
}

func (m *memoryStorage) Write(offset uint64, data []byte) error {
	if err := storage.CheckBounds(offset, len(data), m.pages); err != nil {
		return err
	}
	copy(m.data[offset:], data)
	return nil
}

func (m *memoryStorage) Grow(pages uint64) (uint64, error) {
	previous := m.pages
	total, err := storage.CheckGrow(previous, pages, m.limit)
	if err != nil {
		return previous, err
	}
	grown := make([]byte, total*stablefs.PageSize)
	copy(grown, m.data)
	m.data = grown
	m.pages = total
	log.Printf("memory: grew %d -> %d pages\n", previous, total)
	return previous, nil
}

func (m *memoryStorage) Size() uint64 {
	return m.pages
}

func (m *memoryStorage) Close() error {
	return nil
}
