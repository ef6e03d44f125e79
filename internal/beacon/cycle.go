package beacon

import (
	"context"
	"log/slog"

	"github.com/sebhoos/iss-illumination/internal/clock"
	"github.com/sebhoos/iss-illumination/internal/feed"
	"github.com/sebhoos/iss-illumination/internal/indicator"
	"github.com/sebhoos/iss-illumination/internal/link"
	"github.com/sebhoos/iss-illumination/internal/metrics"
	"github.com/sebhoos/iss-illumination/internal/transform"
)

// Cycle is the lamp's main loop. All of its methods must be called from a
// single goroutine.
type Cycle struct {
	cfg      Config
	gate     *Gate
	poller   *Poller
	renderer Renderer
	board    *Board
	clock    clock.Clock
	logger   *slog.Logger

	state State
}

// NewCycle wires a Cycle. board may be nil when nothing reads snapshots.
func NewCycle(cfg Config, locator feed.Locator, links link.Manager, renderer Renderer, board *Board, clk clock.Clock, logger *slog.Logger) *Cycle {
	if cfg.TickPeriod <= 0 {
		cfg.TickPeriod = DefaultConfig().TickPeriod
	}
	if cfg.PollSkip < 0 {
		cfg.PollSkip = 0
	}
	if board == nil {
		board = NewBoard()
	}

	gate := NewGate(links, renderer, logger)
	return &Cycle{
		cfg:      cfg,
		gate:     gate,
		poller:   NewPoller(cfg, locator, gate, clk, logger),
		renderer: renderer,
		board:    board,
		clock:    clk,
		logger:   logger,
	}
}

// Initialize shows the connecting signal, waits for the link and fixes the
// observer's planar position.
func (c *Cycle) Initialize(ctx context.Context) error {
	c.renderer.Render(ctx, indicator.Connecting)

	if err := c.gate.EnsureConnected(ctx); err != nil {
		return err
	}

	c.state = State{Observer: transform.Project(c.cfg.Observer, c.cfg.Observer.Latitude)}
	c.publish(indicator.Connecting)

	c.logger.Info("beacon initialised",
		"component", "beacon",
		"observer_lat", c.cfg.Observer.Latitude,
		"observer_lon", c.cfg.Observer.Longitude,
		"visibility_radius_m", c.cfg.VisibilityRadius,
		"poll_skip", c.cfg.PollSkip,
		"tick_period", c.cfg.TickPeriod.String(),
	)
	return nil
}

// Step runs one tick: maybe poll, then render the cached verdict.
func (c *Cycle) Step(ctx context.Context) error {
	if err := c.poller.Tick(ctx, &c.state); err != nil {
		return err
	}

	mode := indicator.NotVisible
	if c.state.Visible {
		mode = indicator.Visible
	}
	c.renderer.Render(ctx, mode)

	c.state.Ticks++
	metrics.RecordTick()
	c.publish(mode)
	return ctx.Err()
}

// Run initialises and then steps once per TickPeriod until ctx is done.
// Ticks are scheduled from the previous tick, not from when a step ends,
// so rendering time does not stretch the period.
func (c *Cycle) Run(ctx context.Context) error {
	if err := c.Initialize(ctx); err != nil {
		return err
	}

	next := c.clock.Now()
	for {
		if err := c.Step(ctx); err != nil {
			return err
		}

		next = next.Add(c.cfg.TickPeriod)
		now := c.clock.Now()
		if next.Before(now) {
			c.logger.Debug("tick overran its period", "component", "beacon", "behind", now.Sub(next).String())
			next = now
		}
		if err := c.clock.Sleep(ctx, next.Sub(now)); err != nil {
			return err
		}
	}
}

// State returns a copy of the cycle's state.
func (c *Cycle) State() State {
	return c.state
}

func (c *Cycle) publish(mode indicator.Mode) {
	c.board.Publish(c.state.snapshot(c.cfg, mode.String(), c.gate.Last().String(), c.clock.Now()))
}
