package factory

import (
	"log"
	"sort"

	"github.com/jmgilman/go/errors"

	"github.com/rstms/stablefs"
	"github.com/rstms/stablefs/storage"
	"github.com/rstms/stablefs/storage/badger"
	"github.com/rstms/stablefs/storage/bolt"
	"github.com/rstms/stablefs/storage/file"
	"github.com/rstms/stablefs/storage/memory"
)

type factoryCallback func(config storage.Config) (stablefs.StorageBlock, error)

var backendFactories = map[string]factoryCallback{
	"memory": func(config storage.Config) (stablefs.StorageBlock, error) {
		return memory.New(config), nil
	},
	"file":   file.Open,
	"bolt":   bolt.Open,
	"badger": badger.Open,
}

// List returns the known backend names in sorted order.
func List() []string {
	keys := make([]string, 0, len(backendFactories))
	for k := range backendFactories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// New opens the named backend.
func New(name string, config storage.Config) (stablefs.StorageBlock, error) {
	callback, ok := backendFactories[name]
	if !ok {
		return nil, errors.Newf(errors.CodeInvalidConfig, "unknown storage backend %q (have %v)", name, List())
	}
	log.Printf("factory: opening %s backend in %q\n", name, config.Directory)
	return callback(config)
}
