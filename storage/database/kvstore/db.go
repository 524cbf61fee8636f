// Package kvrepos implements the domain repositories on top of the key/value Store.
package kvrepos

import (
	"github.com/pkg/errors"

	"github.com/trezcool/lms/core"
	"github.com/trezcool/lms/storage/kv"
	"github.com/trezcool/lms/storage/kv/sqlite"
)

// SchemaVersion is the layout version of the persisted records.
const SchemaVersion = 2

// Open opens the store configured by conf. A sqlite database that cannot be opened degrades to a
// volatile in-memory store; the returned closer is then a no-op.
func Open(conf *core.Config, log core.Logger) (*kv.Store, func() error, error) {
	closer := func() error { return nil }

	var backend kv.Backend
	switch conf.Storage.Driver {
	case core.StorageMemory:
		backend = kv.NewMemoryBackend(conf.Storage.QuotaBytes)
	case core.StorageSQLite:
		db, err := sqlite.NewFromConfig(conf)
		if err != nil {
			log.Error("opening sqlite storage", "path", conf.Storage.Path, "err", err)
		} else {
			backend = db
			closer = db.Close
		}
	default:
		return nil, nil, errors.Errorf("unknown storage driver %q", conf.Storage.Driver)
	}

	store, err := kv.Open(backend, kv.Options{
		Prefix:        conf.Storage.Prefix,
		Version:       SchemaVersion,
		Migrations:    Migrations,
		TempRetention: conf.Storage.TempRetention,
		Volatile:      conf.Storage.Driver == core.StorageMemory,
		Log:           log,
	})
	if err != nil {
		_ = closer()
		return nil, nil, errors.Wrap(err, "opening storage")
	}
	return store, closer, nil
}
