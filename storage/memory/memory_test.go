package memory

import (
	"testing"

	"github.com/rstms/stablefs"
	"github.com/rstms/stablefs/storage"
	"github.com/rstms/stablefs/storage/storagetest"
)

func TestMemoryStorage(t *testing.T) {
	storagetest.Run(t, func(t *testing.T, maxPages uint64) stablefs.StorageBlock {
		return New(storage.Config{MaxPages: maxPages})
	})
}
