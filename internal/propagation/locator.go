// Package propagation computes the tracked object's sub-satellite point from
// orbital elements. It backs the position feed when the feed is unreachable.
package propagation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sebhoos/iss-illumination/internal/clock"
	"github.com/sebhoos/iss-illumination/internal/feed"
	"github.com/sebhoos/iss-illumination/internal/tle"
	"github.com/sebhoos/iss-illumination/internal/transform"
)

// ISSNoradID is the catalog number of the International Space Station.
const ISSNoradID = 25544

// DatasetSource supplies TLE datasets. *tle.Source satisfies it.
type DatasetSource interface {
	Current(ctx context.Context) (*tle.Dataset, error)
}

// Locator answers feed.Locator queries by propagating the stored elements.
type Locator struct {
	source  DatasetSource
	noradID int
	clock   clock.Clock
	logger  *slog.Logger

	mu         sync.Mutex
	prop       *SGP4Propagator
	builtFrom  time.Time
	builtEpoch time.Time
}

var _ feed.Locator = (*Locator)(nil)

// NewLocator creates a Locator for noradID.
func NewLocator(source DatasetSource, noradID int, clk clock.Clock, logger *slog.Logger) *Locator {
	return &Locator{
		source:  source,
		noradID: noradID,
		clock:   clk,
		logger:  logger,
	}
}

// Locate returns the sub-satellite point at the current time. Any failure is
// reported as *feed.FetchError so callers treat it like an unreachable feed.
func (l *Locator) Locate(ctx context.Context) (transform.GeoPoint, error) {
	prop, err := l.propagator(ctx)
	if err != nil {
		return transform.GeoPoint{}, &feed.FetchError{Source: "sgp4", Err: err}
	}

	now := l.clock.Now()
	teme, err := prop.Propagate(now)
	if err != nil {
		return transform.GeoPoint{}, &feed.FetchError{Source: "sgp4", Err: err}
	}

	ecef := transform.TEMEToECEF(teme, now)
	if !transform.ValidateECEF(ecef) {
		return transform.GeoPoint{}, &feed.FetchError{Source: "sgp4", Err: fmt.Errorf("implausible ECEF position for NORAD %d", l.noradID)}
	}

	sub := transform.ECEFToGeodetic(ecef)
	l.logger.Debug("propagated position",
		"component", "propagation",
		"norad_id", l.noradID,
		"latitude", sub.Latitude,
		"longitude", sub.Longitude,
		"altitude_km", sub.AltitudeM/1000,
	)
	return sub.GeoPoint, nil
}

// propagator returns a propagator for the current dataset, rebuilding it
// only when the dataset or the element epoch changed.
func (l *Locator) propagator(ctx context.Context) (*SGP4Propagator, error) {
	ds, err := l.source.Current(ctx)
	if err != nil {
		return nil, err
	}
	entry, ok := ds.Find(l.noradID)
	if !ok {
		return nil, fmt.Errorf("NORAD %d not in TLE dataset", l.noradID)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.prop != nil && l.builtFrom.Equal(ds.FetchedAt) && l.builtEpoch.Equal(entry.Epoch) {
		return l.prop, nil
	}

	prop, err := NewSGP4Propagator(entry.Line1, entry.Line2, entry.NORADID)
	if err != nil {
		return nil, err
	}
	l.prop = prop
	l.builtFrom = ds.FetchedAt
	l.builtEpoch = entry.Epoch
	l.logger.Info("SGP4 propagator initialised", "component", "propagation", "norad_id", entry.NORADID, "epoch", entry.Epoch.Format(time.RFC3339))
	return prop, nil
}
