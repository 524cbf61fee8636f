package kv

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lms/core"
	logsvc "github.com/trezcool/lms/services/logger"
)

type record struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Tags  []string `json:"tags"`
}

// brokenBackend fails every write.
type brokenBackend struct{ *MemoryBackend }

func (brokenBackend) Set(string, []byte) error { return errors.New("disk on fire") }
func (brokenBackend) Name() string             { return "broken" }

func openStore(t *testing.T, b Backend, opts Options) *Store {
	t.Helper()
	if opts.Prefix == "" {
		opts.Prefix = "lms_"
	}
	opts.Log = logsvc.NewNop()
	s, err := Open(b, opts)
	require.NoError(t, err)
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	s := openStore(t, NewMemoryBackend(0), Options{})

	want := record{Name: "ada", Count: 3, Tags: []string{"a", "b"}}
	require.NoError(t, s.Set("rec", want))

	var got record
	assert.True(t, s.Get("rec", &got))
	assert.Equal(t, want, got)

	assert.False(t, s.Get("missing", &got))

	require.NoError(t, s.Remove("rec"))
	assert.False(t, s.Get("rec", &got))
}

func TestStore_GetCorrupt(t *testing.T) {
	b := NewMemoryBackend(0)
	s := openStore(t, b, Options{})

	require.NoError(t, b.Set("lms_bad", []byte("{not json")))
	var got record
	assert.False(t, s.Get("bad", &got))

	require.NoError(t, s.Set("num", 42))
	assert.False(t, s.Get("num", &got), "type mismatch is treated as absent")
}

func TestStore_ClearKeepsForeignKeys(t *testing.T) {
	b := NewMemoryBackend(0)
	require.NoError(t, b.Set("other_app", []byte("keep me")))
	s := openStore(t, b, Options{})
	require.NoError(t, s.Set("a", 1))
	require.NoError(t, s.Set("b", 2))

	require.NoError(t, s.Clear())

	keys, err := s.Keys("")
	require.NoError(t, err)
	assert.Empty(t, keys)
	val, ok, _ := b.Get("other_app")
	assert.True(t, ok)
	assert.Equal(t, "keep me", string(val))
}

func TestStore_VersionStamp(t *testing.T) {
	s := openStore(t, NewMemoryBackend(0), Options{Version: 2})
	assert.Equal(t, 2, s.SchemaVersion())
	var created time.Time
	assert.True(t, s.Get(CreatedAtKey, &created))
}

func TestStore_Migrations(t *testing.T) {
	b := NewMemoryBackend(0)
	s := openStore(t, b, Options{Version: 1})
	require.NoError(t, s.Set("rec", record{Name: "ada"}))

	var runs int
	migrations := []Migration{{
		From: 1,
		Apply: func(s *Store) error {
			runs++
			var r record
			if !s.Get("rec", &r) {
				return nil
			}
			if r.Tags == nil {
				r.Tags = []string{}
			}
			r.Count = 1
			return s.Set("rec", r)
		},
	}}

	s = openStore(t, b, Options{Version: 2, Migrations: migrations})
	assert.Equal(t, 2, s.SchemaVersion())
	var got record
	require.True(t, s.Get("rec", &got))
	assert.Equal(t, record{Name: "ada", Count: 1, Tags: []string{}}, got)

	// reopening at the current version runs nothing
	openStore(t, b, Options{Version: 2, Migrations: migrations})
	assert.Equal(t, 1, runs)
}

func TestStore_MigrationFailure(t *testing.T) {
	b := NewMemoryBackend(0)
	openStore(t, b, Options{Version: 1})

	_, err := Open(b, Options{
		Prefix:     "lms_",
		Version:    2,
		Log:        logsvc.NewNop(),
		Migrations: []Migration{{From: 1, Apply: func(*Store) error { return errors.New("nope") }}},
	})
	assert.Error(t, err)
}

func TestStore_Fallback(t *testing.T) {
	tests := []struct {
		name    string
		backend Backend
	}{
		{name: "nil backend", backend: nil},
		{name: "probe fails", backend: brokenBackend{NewMemoryBackend(0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := openStore(t, tt.backend, Options{})
			assert.True(t, s.IsVolatile())
			require.NoError(t, s.Set("a", 1))
			var got int
			assert.True(t, s.Get("a", &got))
			assert.Equal(t, 1, got)

			info, err := s.Info()
			require.NoError(t, err)
			assert.Equal(t, "memory", info.Backend)
			assert.True(t, info.Volatile)
		})
	}

	s := openStore(t, NewMemoryBackend(0), Options{})
	assert.False(t, s.IsVolatile())
	s = openStore(t, NewMemoryBackend(0), Options{Volatile: true})
	assert.True(t, s.IsVolatile())
}

func TestStore_Quota(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	defer func(orig func() time.Time) { core.NowFunc = orig }(core.NowFunc)
	core.NowFunc = func() time.Time { return now }

	b := NewMemoryBackend(1024)
	s := openStore(t, b, Options{TempRetention: 30 * 24 * time.Hour})
	require.NoError(t, s.Set("rec", record{Name: "ada"}))

	big := make([]byte, 450)
	for i := range big {
		big[i] = 'x'
	}
	require.NoError(t, s.SetTemp("old", string(big)))

	// too big even after cleanup: the prior value stays
	err := s.Set("rec", string(make([]byte, 2048)))
	require.Error(t, err)
	assert.True(t, core.IsStorageFailure(err))
	var got record
	require.True(t, s.Get("rec", &got))
	assert.Equal(t, "ada", got.Name)
	// the temp entry is fresh: not evicted
	keys, _ := s.Keys(TempPrefix)
	assert.Equal(t, []string{"temp_old"}, keys)

	// 31 days later the temp entry is stale: cleanup frees room for the retry
	now = now.Add(31 * 24 * time.Hour)
	require.NoError(t, s.Set("rec2", string(big)))
	keys, _ = s.Keys(TempPrefix)
	assert.Empty(t, keys)

	info, err := s.Info()
	require.NoError(t, err)
	assert.Equal(t, int64(1024), info.Quota)
	assert.LessOrEqual(t, info.Used, int64(1024))
}

func TestStore_Cleanup(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	defer func(orig func() time.Time) { core.NowFunc = orig }(core.NowFunc)
	core.NowFunc = func() time.Time { return now }

	b := NewMemoryBackend(0)
	s := openStore(t, b, Options{TempRetention: time.Hour})
	require.NoError(t, s.SetTemp("stale", "x"))
	now = now.Add(2 * time.Hour)
	require.NoError(t, s.SetTemp("fresh", "y"))
	require.NoError(t, b.Set("lms_temp_garbage", []byte("???")))
	require.NoError(t, s.Set("keep", "z"))

	assert.Equal(t, 2, s.Cleanup())
	keys, err := s.Keys("")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"created_at", "keep", "temp_fresh", "version"}, keys)
}
