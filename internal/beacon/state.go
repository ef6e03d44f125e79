// Package beacon runs the lamp: it polls the position feed on a fixed
// cadence, decides visibility and drives the indicator.
package beacon

import (
	"sync/atomic"
	"time"

	"github.com/sebhoos/iss-illumination/internal/transform"
)

// Config is fixed for the life of the process.
type Config struct {
	// Observer is the ground location; its latitude is also the projection
	// reference for every point.
	Observer transform.GeoPoint
	// VisibilityRadius is the exclusive distance limit in metres.
	VisibilityRadius float64
	// PollSkip is how many ticks reuse the cached verdict between polls.
	PollSkip int
	// TickPeriod is the main cycle period.
	TickPeriod time.Duration
}

// DefaultConfig returns the stock settings for an observer in the lower
// Rhine area.
func DefaultConfig() Config {
	return Config{
		Observer:         transform.GeoPoint{Latitude: 51.0, Longitude: 6.0},
		VisibilityRadius: 1_000_000,
		PollSkip:         3,
		TickPeriod:       10 * time.Second,
	}
}

// State is owned by the cycle goroutine. Nothing else may touch it; other
// goroutines read the Snapshot published on a Board.
type State struct {
	Visible  bool
	Counter  int
	Observer transform.PlanarPoint

	Ticks        uint64
	Polls        uint64
	LastPoll     time.Time
	HasFix       bool
	LastDistance float64
	LastPosition transform.GeoPoint
	LastErr      error
}

// Snapshot is an immutable copy of State for readers outside the cycle.
type Snapshot struct {
	Mode         string              `json:"mode"`
	Visible      bool                `json:"visible"`
	Counter      int                 `json:"counter"`
	Ticks        uint64              `json:"ticks"`
	Polls        uint64              `json:"polls"`
	LastPoll     *time.Time          `json:"last_poll,omitempty"`
	LastDistance *float64            `json:"last_distance_m,omitempty"`
	LastPosition *transform.GeoPoint `json:"last_position,omitempty"`
	LastError    string              `json:"last_error,omitempty"`
	Link         string              `json:"link"`
	Observer     transform.GeoPoint  `json:"observer"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

func (st *State) snapshot(cfg Config, mode, link string, now time.Time) *Snapshot {
	snap := &Snapshot{
		Mode:      mode,
		Visible:   st.Visible,
		Counter:   st.Counter,
		Ticks:     st.Ticks,
		Polls:     st.Polls,
		Link:      link,
		Observer:  cfg.Observer,
		UpdatedAt: now,
	}
	if !st.LastPoll.IsZero() {
		t := st.LastPoll
		snap.LastPoll = &t
	}
	if st.HasFix {
		d, p := st.LastDistance, st.LastPosition
		snap.LastDistance = &d
		snap.LastPosition = &p
	}
	if st.LastErr != nil {
		snap.LastError = st.LastErr.Error()
	}
	return snap
}

// Board publishes snapshots across goroutines.
type Board struct {
	current atomic.Pointer[Snapshot]
}

// NewBoard creates an empty Board.
func NewBoard() *Board {
	return &Board{}
}

// Publish replaces the current snapshot.
func (b *Board) Publish(s *Snapshot) {
	b.current.Store(s)
}

// Load returns the latest snapshot, or nil before the first Publish.
func (b *Board) Load() *Snapshot {
	return b.current.Load()
}

// Ready reports whether a snapshot has been published.
func (b *Board) Ready() bool {
	return b.current.Load() != nil
}
