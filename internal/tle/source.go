package tle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sebhoos/iss-illumination/internal/clock"
	"github.com/sebhoos/iss-illumination/internal/metrics"
)

// ErrNoDataset is returned when neither the network nor the cache can
// supply TLE data.
var ErrNoDataset = errors.New("no TLE dataset available")

// RawFetcher returns raw TLE text.
type RawFetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// SourceConfig controls dataset refreshes.
type SourceConfig struct {
	SourceURL string
	CacheDir  string
	MaxFiles  int
	MaxAge    time.Duration
}

// Source hands out a reasonably fresh dataset. Refreshes happen lazily in
// the caller's goroutine when the stored dataset is older than MaxAge.
type Source struct {
	fetcher RawFetcher
	cache   *Cache
	store   *Store
	maxAge  time.Duration
	clock   clock.Clock
	logger  *slog.Logger
}

// NewSource wires a Source. cache may be nil to disable the disk cache.
func NewSource(fetcher RawFetcher, cache *Cache, store *Store, maxAge time.Duration, clk clock.Clock, logger *slog.Logger) *Source {
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	return &Source{
		fetcher: fetcher,
		cache:   cache,
		store:   store,
		maxAge:  maxAge,
		clock:   clk,
		logger:  logger,
	}
}

// LoadCache seeds the store from the newest cache file. It is a no-op when
// the store already holds data.
func (s *Source) LoadCache() error {
	if s.store.Get() != nil || s.cache == nil {
		return nil
	}

	data, ts, err := s.cache.LoadLatest()
	if err != nil {
		return err
	}
	entries, err := Parse(bytes.NewReader(data), s.logger)
	if err != nil {
		return fmt.Errorf("parsing cached TLE data: %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("cached TLE file from %s holds no entries", ts.UTC().Format(time.RFC3339))
	}

	s.store.Set(&Dataset{Source: "cache", FetchedAt: ts, Entries: entries})
	s.logger.Info("loaded TLE data from cache", "component", "tle", "count", len(entries), "cached_at", ts.UTC().Format(time.RFC3339))
	return nil
}

// Current returns the stored dataset, refreshing it first when it is
// missing or stale. A failed refresh falls back to whatever is stored, then
// to the disk cache.
func (s *Source) Current(ctx context.Context) (*Dataset, error) {
	now := s.clock.Now()
	if ds := s.store.Get(); ds != nil && s.store.Age(now) < s.maxAge {
		metrics.SetTLEDatasetAge(s.store.Age(now).Seconds())
		return ds, nil
	}

	if err := s.refresh(ctx, now); err != nil {
		s.logger.Warn("TLE refresh failed", "component", "tle", "error", err)

		if s.store.Get() == nil {
			if cerr := s.LoadCache(); cerr != nil {
				return nil, fmt.Errorf("%w: refresh: %v; cache: %v", ErrNoDataset, err, cerr)
			}
		}
	}

	ds := s.store.Get()
	if ds == nil {
		return nil, ErrNoDataset
	}
	metrics.SetTLEDatasetAge(s.store.Age(now).Seconds())
	return ds, nil
}

func (s *Source) refresh(ctx context.Context, now time.Time) error {
	data, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return err
	}

	entries, err := Parse(bytes.NewReader(data), s.logger)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return errors.New("TLE response holds no entries")
	}

	if s.cache != nil {
		if err := s.cache.Write(data, now); err != nil {
			s.logger.Warn("failed to write TLE cache", "component", "tle", "error", err)
		}
	}

	s.store.Set(&Dataset{Source: "network", FetchedAt: now, Entries: entries})
	s.logger.Info("TLE data refreshed", "component", "tle", "count", len(entries))
	return nil
}
