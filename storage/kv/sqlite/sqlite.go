// Package sqlite is the durable kv.Backend: one SQLite file, one kv_entries table.
package sqlite

import (
	"database/sql"
	"embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/trezcool/lms/core"
	"github.com/trezcool/lms/storage/kv"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var gooseMu sync.Mutex // goose keeps its settings in package state

type Backend struct {
	db    *sqlx.DB
	path  string
	quota int64
}

var _ kv.Backend = (*Backend)(nil)

// Open opens (creating it if needed) the database at path and applies pending schema migrations.
// A quota <= 0 disables the byte quota.
func Open(path string, quota int64) (*Backend, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "creating data directory")
		}
	}

	db, err := sqlx.Connect("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	db.SetMaxOpenConns(1) // single writer
	db.SetMaxIdleConns(1)

	if _, err = Migrate(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Backend{db: db, path: path, quota: quota}, nil
}

// NewFromConfig opens the database configured by conf.Storage.
func NewFromConfig(conf *core.Config) (*Backend, error) {
	path := conf.Storage.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(conf.HomeDir, path)
	}
	return Open(path, conf.Storage.QuotaBytes)
}

// Migrate applies the embedded schema migrations and returns the resulting schema version.
func Migrate(db *sql.DB) (int64, error) {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return 0, errors.Wrap(err, "setting migration dialect")
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return 0, errors.Wrap(err, "migrating database")
	}
	version, err := goose.GetDBVersion(db)
	if err != nil {
		return 0, errors.Wrap(err, "reading database version")
	}
	return version, nil
}

// printfLogger prints goose output to w.
type printfLogger struct{ w io.Writer }

func (l printfLogger) Printf(format string, v ...interface{}) { fmt.Fprintf(l.w, format, v...) }
func (l printfLogger) Fatalf(format string, v ...interface{}) { fmt.Fprintf(l.w, format, v...) }

// RunMigrations runs a goose command (up, up-by-one, up-to, down, down-to, redo, reset, status,
// version) against the embedded migrations, printing goose's output to w.
func (b *Backend) RunMigrations(w io.Writer, command string, args ...string) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(printfLogger{w})
	defer goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return errors.Wrap(err, "setting migration dialect")
	}
	return goose.Run(command, b.db.DB, "migrations", args...)
}

// SchemaVersion returns the applied table schema version.
func (b *Backend) SchemaVersion() (int64, error) {
	gooseMu.Lock()
	defer gooseMu.Unlock()
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return 0, err
	}
	return goose.GetDBVersion(b.db.DB)
}

func (b *Backend) Close() error {
	return b.db.Close()
}

func (b *Backend) Path() string { return b.path }

func (b *Backend) Name() string { return "sqlite" }

func (b *Backend) Quota() int64 { return b.quota }

func (b *Backend) Get(key string) ([]byte, bool, error) {
	var val []byte
	err := b.db.Get(&val, `SELECT value FROM kv_entries WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "reading %s", key)
	}
	return val, true, nil
}

func (b *Backend) Set(key string, value []byte) (err error) {
	tx, err := b.db.Beginx()
	if err != nil {
		return errors.Wrap(err, "starting transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if b.quota > 0 {
		var used int64
		q := `SELECT COALESCE(SUM(LENGTH(value)), 0) FROM kv_entries WHERE key <> ?`
		if err = tx.Get(&used, q, key); err != nil {
			return errors.Wrap(err, "computing usage")
		}
		if used+int64(len(value)) > b.quota {
			return kv.ErrQuotaExceeded
		}
	}

	q := `INSERT INTO kv_entries (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	if _, err = tx.Exec(q, key, value, core.NowFunc()); err != nil {
		return errors.Wrapf(err, "writing %s", key)
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "committing transaction")
	}
	return nil
}

func (b *Backend) Delete(key string) error {
	if _, err := b.db.Exec(`DELETE FROM kv_entries WHERE key = ?`, key); err != nil {
		return errors.Wrapf(err, "deleting %s", key)
	}
	return nil
}

func (b *Backend) Keys(prefix string) ([]string, error) {
	keys := make([]string, 0)
	// substr avoids LIKE wildcards in the prefix ("_" is common in keys)
	q := `SELECT key FROM kv_entries WHERE substr(key, 1, ?) = ? ORDER BY key`
	if err := b.db.Select(&keys, q, len(prefix), prefix); err != nil {
		return nil, errors.Wrap(err, "listing keys")
	}
	return keys, nil
}

func (b *Backend) Usage() (int64, error) {
	var used int64
	if err := b.db.Get(&used, `SELECT COALESCE(SUM(LENGTH(value)), 0) FROM kv_entries`); err != nil {
		return 0, errors.Wrap(err, "computing usage")
	}
	return used, nil
}
