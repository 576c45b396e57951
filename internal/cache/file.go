package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Entry file naming inside the cache directory. Temp files use a different
// prefix so a crashed writer never pollutes entry counts.
const (
	entryPrefix = "cache_"
	entrySuffix = ".json"
	tempPattern = ".tmp-cache-*"
)

// ErrNilContext is returned when a cache operation is given a nil context.
var ErrNilContext = errors.New("cache: context cannot be nil")

// fileEntry is the on-disk representation of a cached result. The format is
// private to this backend and carries no cross-version stability promise.
type fileEntry struct {
	ExpiresAt time.Time       `json:"expires_at"`
	Value     json.RawMessage `json:"value"`
}

// FileStore persists one JSON file per key in a shared directory. Independent
// worker processes pointed at the same directory observe the same cache; no
// locking is performed across them, so concurrent writers race and the last
// completed write wins. Writes go to a temp file first and are renamed into
// place, so readers never observe a partially written entry.
//
// A Clear racing a concurrent Set may delete the fresh entry or miss it,
// depending on timing. That is accepted for a best-effort cache.
type FileStore struct {
	now func() time.Time
	dir string
}

// NewFileStore creates a filesystem-backed store rooted at dir, creating the
// directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("cache: directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &FileStore{dir: dir, now: time.Now}, nil
}

// Get looks up the entry for the derived key. Expired entries are deleted on
// the spot and reported as a miss. Corrupt or unreadable entries are a miss
// too; the next Set for the key overwrites them.
func (s *FileStore) Get(ctx context.Context, op string, args []any, kwargs map[string]any) ([]byte, bool, error) {
	if ctx == nil {
		return nil, false, ErrNilContext
	}
	key, err := Key(op, args, kwargs)
	if err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(s.entryPath(key))
	if err != nil {
		return nil, false, nil
	}

	var entry fileEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false, nil
	}

	if !s.now().Before(entry.ExpiresAt) {
		_ = os.Remove(s.entryPath(key))
		return nil, false, nil
	}

	return entry.Value, true, nil
}

// Set persists value for the derived key with an absolute expiry of now+ttl,
// overwriting any existing entry. The value must be a JSON-encoded payload.
func (s *FileStore) Set(ctx context.Context, value []byte, op string, args []any, kwargs map[string]any, ttl time.Duration) error {
	if ctx == nil {
		return ErrNilContext
	}
	key, err := Key(op, args, kwargs)
	if err != nil {
		return err
	}

	entry := fileEntry{
		Value:     value,
		ExpiresAt: s.now().Add(ttl),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0750); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, tempPattern)
	if err != nil {
		return fmt.Errorf("failed to create cache temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache entry: %w", err)
	}

	// Atomic rename keeps readers from ever seeing a partial entry.
	if err := os.Rename(tmp.Name(), s.entryPath(key)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to publish cache entry: %w", err)
	}
	return nil
}

// Clear deletes every entry unconditionally, along with any temp files left
// behind by interrupted writers.
func (s *FileStore) Clear(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read cache directory: %w", err)
	}

	var firstErr error
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || (!isEntryFile(name) && !isTempFile(name)) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return fmt.Errorf("failed to clear cache: %w", firstErr)
	}
	return nil
}

// Stats counts entries and their aggregate size. It never mutates the store:
// entries that have expired but not yet been read are still counted, because
// expiry is swept lazily on Get and nowhere else.
func (s *FileStore) Stats(ctx context.Context) (Stats, error) {
	if ctx == nil {
		return Stats{}, ErrNilContext
	}

	stats := Stats{Backend: BackendFile, Directory: s.dir}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return Stats{}, fmt.Errorf("failed to read cache directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !isEntryFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		stats.Entries++
		stats.TotalBytes += info.Size()
	}
	return stats, nil
}

func (s *FileStore) entryPath(key string) string {
	return filepath.Join(s.dir, entryPrefix+key+entrySuffix)
}

func isEntryFile(name string) bool {
	return strings.HasPrefix(name, entryPrefix) && strings.HasSuffix(name, entrySuffix)
}

func isTempFile(name string) bool {
	return strings.HasPrefix(name, ".tmp-cache-")
}

// Ensure FileStore implements Store.
var _ Store = (*FileStore)(nil)
