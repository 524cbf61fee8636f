package kv

import (
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// ErrQuotaExceeded is returned by a Backend when a write would exceed its byte quota.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// Backend is a flat string -> bytes key space, possibly shared with other applications.
// Writes must be atomic: a failed Set leaves the previous value in place.
type Backend interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Keys(prefix string) ([]string, error)
	// Usage returns the number of value bytes currently stored.
	Usage() (int64, error)
	Name() string
}

// Quotaer is implemented by backends that enforce a byte quota.
type Quotaer interface {
	Quota() int64
}

// MemoryBackend keeps entries in a map. Its content does not survive the process.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string][]byte
	used    int64
	quota   int64
}

var _ Backend = (*MemoryBackend)(nil)

// NewMemoryBackend returns an empty backend. A quota <= 0 disables the quota.
func NewMemoryBackend(quota int64) *MemoryBackend {
	return &MemoryBackend{entries: make(map[string][]byte), quota: quota}
}

func (b *MemoryBackend) Get(key string) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	val, ok := b.entries[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(val))
	copy(cp, val)
	return cp, true, nil
}

func (b *MemoryBackend) Set(key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	used := b.used - int64(len(b.entries[key])) + int64(len(value))
	if b.quota > 0 && used > b.quota {
		return ErrQuotaExceeded
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	b.entries[key] = cp
	b.used = used
	return nil
}

func (b *MemoryBackend) Delete(key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if val, ok := b.entries[key]; ok {
		b.used -= int64(len(val))
		delete(b.entries, key)
	}
	return nil
}

func (b *MemoryBackend) Keys(prefix string) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.entries))
	for key := range b.entries {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (b *MemoryBackend) Usage() (int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.used, nil
}

func (b *MemoryBackend) Quota() int64 { return b.quota }

func (b *MemoryBackend) Name() string { return "memory" }
