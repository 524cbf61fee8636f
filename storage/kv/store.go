package kv

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/lms/core"
)

// Reserved keys, below the store prefix.
const (
	VersionKey   = "version"
	CreatedAtKey = "created_at"
	TempPrefix   = "temp_"

	probeKey = "__lms_test__"
)

// Migration upgrades the stored data from schema version From to From+1.
// Apply must be idempotent: it may run again if the version stamp could not be written.
type Migration struct {
	From  int
	Apply func(s *Store) error
}

type Options struct {
	Prefix        string
	Version       int // current schema version, defaults to 1
	Migrations    []Migration
	TempRetention time.Duration // age after which temp_* entries may be evicted
	Volatile      bool          // durable does not outlive the process
	Log           core.Logger
}

// Info describes the store's footprint.
type Info struct {
	Backend  string `json:"backend"`
	Volatile bool   `json:"volatile"`
	Used     int64  `json:"used"`
	Quota    int64  `json:"quota"` // 0: unlimited
	Keys     int    `json:"keys"`
}

type envelope struct {
	SchemaVersion int             `json:"schemaVersion"`
	StoredAt      time.Time       `json:"storedAt"`
	Payload       json.RawMessage `json:"payload"`
}

// Store persists JSON-encoded values below a key prefix of a Backend.
// Every call is serialized; read-modify-write sequences need their own locking.
type Store struct {
	mu        sync.Mutex
	backend   Backend
	volatile  bool
	prefix    string
	version   int
	retention time.Duration
	log       core.Logger
}

// Open probes durable with a write and a delete, falling back to an in-memory backend for the
// process lifetime when durable is nil or the probe fails. It then stamps or migrates the schema.
func Open(durable Backend, opts Options) (*Store, error) {
	vala.BeginValidation().Validate(
		vala.IsNotNil(opts.Log, "opts.Log"),
	).CheckAndPanic()

	if opts.Version <= 0 {
		opts.Version = 1
	}
	s := &Store{
		backend:   durable,
		volatile:  opts.Volatile,
		prefix:    opts.Prefix,
		version:   opts.Version,
		retention: opts.TempRetention,
		log:       opts.Log,
	}
	if durable == nil {
		s.log.Warn("no durable storage backend, data will not survive a restart")
		s.useMemory()
	} else if err := probe(durable); err != nil {
		s.log.Warn("storage backend unavailable, data will not survive a restart", "backend", durable.Name(), "err", err)
		s.useMemory()
	}

	if _, err := s.Migrate(opts.Migrations); err != nil {
		return nil, err
	}
	return s, nil
}

func probe(b Backend) error {
	if err := b.Set(probeKey, []byte(probeKey)); err != nil {
		return err
	}
	return b.Delete(probeKey)
}

func (s *Store) useMemory() {
	s.backend = NewMemoryBackend(0)
	s.volatile = true
}

// Migrate stamps the schema version on first use, otherwise runs the migrations needed to reach the
// current version, in order. It returns the version found before migrating.
func (s *Store) Migrate(migrations []Migration) (int, error) {
	found := s.SchemaVersion()
	if found == 0 {
		if err := s.Set(VersionKey, s.version); err != nil {
			return 0, err
		}
		if !s.Get(CreatedAtKey, new(time.Time)) {
			if err := s.Set(CreatedAtKey, core.NowFunc()); err != nil {
				return 0, err
			}
		}
		return 0, nil
	}

	byFrom := make(map[int]Migration, len(migrations))
	for _, m := range migrations {
		byFrom[m.From] = m
	}
	for v := found; v < s.version; v++ {
		if m, ok := byFrom[v]; ok {
			s.log.Info("migrating storage", "from", v, "to", v+1)
			if err := m.Apply(s); err != nil {
				return found, errors.Wrapf(err, "migrating storage from version %d", v)
			}
		}
		if err := s.Set(VersionKey, v+1); err != nil {
			return found, err
		}
	}
	return found, nil
}

// SchemaVersion returns the stamped schema version, 0 if none.
func (s *Store) SchemaVersion() int {
	var v int
	if !s.Get(VersionKey, &v) {
		return 0
	}
	return v
}

// IsVolatile reports whether the data lives only in process memory.
func (s *Store) IsVolatile() bool { return s.volatile }

// Backend returns the backend in use, the in-memory fallback included.
func (s *Store) Backend() Backend { return s.backend }

// Get decodes the value stored under key into dst. A missing or undecodable value reports false.
func (s *Store) Get(key string, dst interface{}) bool {
	s.mu.Lock()
	raw, ok, err := s.backend.Get(s.prefix + key)
	s.mu.Unlock()
	if err != nil {
		s.log.Warn("reading storage", "key", key, "err", err)
		return false
	}
	if !ok {
		return false
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.log.Warn("corrupt storage entry", "key", key, "err", err)
		return false
	}
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		s.log.Warn("undecodable storage entry", "key", key, "err", err)
		return false
	}
	return true
}

// Set stores value under key. When the backend is full, expired temp entries are evicted and the
// write is retried once. A failed write leaves the previous value in place and returns a *core.StorageError.
func (s *Store) Set(key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return core.NewStorageError("encode", key, err)
	}
	raw, err := json.Marshal(envelope{SchemaVersion: s.version, StoredAt: core.NowFunc(), Payload: payload})
	if err != nil {
		return core.NewStorageError("encode", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	err = s.backend.Set(s.prefix+key, raw)
	if errors.Is(err, ErrQuotaExceeded) {
		freed := s.cleanup()
		s.log.Warn("storage quota exceeded, retrying after cleanup", "key", key, "evicted", freed)
		err = s.backend.Set(s.prefix+key, raw)
	}
	if err != nil {
		return core.NewStorageError("set", key, err)
	}
	return nil
}

// SetTemp stores a disposable value under temp_<key>.
func (s *Store) SetTemp(key string, value interface{}) error {
	return s.Set(TempPrefix+key, value)
}

func (s *Store) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Delete(s.prefix + key); err != nil {
		return core.NewStorageError("remove", key, err)
	}
	return nil
}

// Clear removes every key below the store prefix. Other keys of the backend are left alone.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys, err := s.backend.Keys(s.prefix)
	if err != nil {
		return core.NewStorageError("clear", "", err)
	}
	for _, key := range keys {
		if err := s.backend.Delete(key); err != nil {
			return core.NewStorageError("clear", strings.TrimPrefix(key, s.prefix), err)
		}
	}
	return nil
}

// Keys returns the keys starting with prefix, without the store prefix.
func (s *Store) Keys(prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys(prefix)
}

func (s *Store) keys(prefix string) ([]string, error) {
	full, err := s.backend.Keys(s.prefix + prefix)
	if err != nil {
		return nil, core.NewStorageError("keys", prefix, err)
	}
	keys := make([]string, 0, len(full))
	for _, key := range full {
		keys = append(keys, strings.TrimPrefix(key, s.prefix))
	}
	return keys, nil
}

// Cleanup evicts temp entries older than the retention window and returns how many were removed.
func (s *Store) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleanup()
}

func (s *Store) cleanup() int {
	keys, err := s.keys(TempPrefix)
	if err != nil {
		s.log.Warn("listing temp entries", "err", err)
		return 0
	}
	cutoff := core.NowFunc().Add(-s.retention)
	var evicted int
	for _, key := range keys {
		raw, ok, err := s.backend.Get(s.prefix + key)
		if err != nil || !ok {
			continue
		}
		var env envelope
		if json.Unmarshal(raw, &env) == nil && env.StoredAt.After(cutoff) {
			continue
		}
		if err := s.backend.Delete(s.prefix + key); err != nil {
			s.log.Warn("evicting temp entry", "key", key, "err", err)
			continue
		}
		evicted++
	}
	return evicted
}

func (s *Store) Info() (Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := Info{Backend: s.backend.Name(), Volatile: s.volatile}
	if q, ok := s.backend.(Quotaer); ok {
		info.Quota = q.Quota()
	}
	used, err := s.backend.Usage()
	if err != nil {
		return info, core.NewStorageError("usage", "", err)
	}
	info.Used = used
	keys, err := s.keys("")
	if err != nil {
		return info, err
	}
	info.Keys = len(keys)
	return info, nil
}
