// Package cache is a file-backed TTL cache for analysis results.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/AI-Template-SDK/senso-geo/internal/metrics"
)

const (
	entrySuffix = ".json"
	tempSuffix  = ".tmp"

	// staleTempAge is how old a temp file must be before maintenance treats
	// it as left behind by a crashed write
	staleTempAge = 10 * time.Minute
)

type envelope struct {
	Key       string          `json:"key"`
	CachedAt  time.Time       `json:"cached_at"`
	ExpiresAt time.Time       `json:"expires_at"`
	Value     json.RawMessage `json:"value"`
}

// Stats describes what is currently on disk
type Stats struct {
	Dir     string `json:"dir"`
	Entries int    `json:"entries"`
	Expired int    `json:"expired"`
	Bytes   int64  `json:"bytes"`
}

type Store struct {
	dir     string
	ttl     time.Duration
	logger  zerolog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu sync.Mutex
}

func NewStore(dir string, ttl time.Duration, logger zerolog.Logger, m *metrics.Metrics) (*Store, error) {
	if dir == "" {
		return nil, errors.New("cache dir is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive, got %s", ttl)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir %s: %w", dir, err)
	}
	if m == nil {
		m = metrics.Nop()
	}
	return &Store{
		dir:     dir,
		ttl:     ttl,
		logger:  logger.With().Str("component", "cache").Logger(),
		metrics: m,
		now:     time.Now,
	}, nil
}

// Key hashes the JSON encoding of parts. Inputs that encode identically share
// a key.
func Key(parts ...any) (string, error) {
	raw, err := json.Marshal(parts)
	if err != nil {
		return "", fmt.Errorf("failed to encode cache key: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+entrySuffix)
}

// Get decodes the entry for key into dst. Expired and unreadable entries are
// removed and reported as a miss. Reads take no lock; Set renames complete
// files into place.
func (s *Store) Get(key string, dst any) (bool, error) {
	raw, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		s.metrics.CacheRequests.WithLabelValues("miss").Inc()
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Key != key {
		s.logger.Warn().Str("key", key).Msg("Dropping corrupt cache entry")
		s.metrics.CacheRequests.WithLabelValues("corrupt").Inc()
		s.evict(key, time.Time{})
		return false, nil
	}
	if !s.now().Before(env.ExpiresAt) {
		s.metrics.CacheRequests.WithLabelValues("expired").Inc()
		s.evict(key, env.CachedAt)
		return false, nil
	}
	if err := json.Unmarshal(env.Value, dst); err != nil {
		s.logger.Warn().Str("key", key).Err(err).Msg("Dropping undecodable cache value")
		s.metrics.CacheRequests.WithLabelValues("corrupt").Inc()
		s.evict(key, env.CachedAt)
		return false, nil
	}

	s.metrics.CacheRequests.WithLabelValues("hit").Inc()
	return true, nil
}

// evict removes the entry for key unless a concurrent Set has replaced the
// one Get saw (written at seen) with a live entry.
func (s *Store) evict(key string, seen time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.path(key)
	if env, ok := readEnvelope(p); ok && env.Key == key && !env.CachedAt.Equal(seen) && s.now().Before(env.ExpiresAt) {
		return
	}
	_ = os.Remove(p)
}

// Set replaces the entry for key. The write goes through a temp file so a
// reader never sees a partial entry.
func (s *Store) Set(key string, value any) error {
	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}
	now := s.now()
	raw, err := json.Marshal(envelope{
		Key:       key,
		CachedAt:  now.UTC(),
		ExpiresAt: now.Add(s.ttl).UTC(),
		Value:     body,
	})
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, key+".*"+tempSuffix)
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close cache entry: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to commit cache entry: %w", err)
	}
	return nil
}

func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Clear removes every entry and returns how many were deleted
func (s *Store) Clear() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.entries()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, name := range entries {
		if err := os.Remove(filepath.Join(s.dir, name)); err == nil {
			removed++
		}
	}
	swept := s.sweepTemp()
	s.logger.Info().Int("removed", removed).Int("temp_files", swept).Msg("Cache cleared")
	return removed, nil
}

// CleanupExpired removes expired and unreadable entries
func (s *Store) CleanupExpired() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.entries()
	if err != nil {
		return 0, err
	}
	now := s.now()
	removed := 0
	for _, name := range entries {
		p := filepath.Join(s.dir, name)
		env, ok := readEnvelope(p)
		if ok && now.Before(env.ExpiresAt) {
			continue
		}
		if err := os.Remove(p); err == nil {
			removed++
		}
	}
	swept := s.sweepTemp()
	s.logger.Info().Int("removed", removed).Int("temp_files", swept).Msg("Expired cache entries cleaned up")
	return removed, nil
}

func (s *Store) Stats() (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{Dir: s.dir}
	entries, err := s.entries()
	if err != nil {
		return st, err
	}
	now := s.now()
	for _, name := range entries {
		p := filepath.Join(s.dir, name)
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		st.Entries++
		st.Bytes += info.Size()
		if env, ok := readEnvelope(p); !ok || !now.Before(env.ExpiresAt) {
			st.Expired++
		}
	}
	return st, nil
}

func (s *Store) entries() ([]string, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache dir: %w", err)
	}
	var names []string
	for _, e := range dirEntries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), entrySuffix) {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// sweepTemp removes temp files older than staleTempAge. Callers hold s.mu, so
// no write of this store is in flight; the age guard covers other processes
// sharing the directory.
func (s *Store) sweepTemp() int {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0
	}
	now := s.now()
	swept := 0
	for _, e := range dirEntries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), tempSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil || now.Sub(info.ModTime()) < staleTempAge {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err == nil {
			swept++
		}
	}
	return swept
}

func readEnvelope(path string) (envelope, bool) {
	var env envelope
	raw, err := os.ReadFile(path)
	if err != nil {
		return env, false
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, false
	}
	return env, true
}
