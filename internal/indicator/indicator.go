// Package indicator turns the lamp's logical state into LED frames.
package indicator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sebhoos/iss-illumination/internal/clock"
	"github.com/sebhoos/iss-illumination/internal/metrics"
	"github.com/sebhoos/iss-illumination/internal/pixel"
)

// Mode selects what the strip shows.
type Mode int

const (
	// Connecting fills the strip with the connecting colour.
	Connecting Mode = iota
	// Visible runs one highlight sweep, then settles on idle.
	Visible
	// NotVisible shows the idle colour.
	NotVisible
)

func (m Mode) String() string {
	switch m {
	case Connecting:
		return "connecting"
	case Visible:
		return "visible"
	case NotVisible:
		return "not_visible"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Config holds the palette and timing.
type Config struct {
	ConnectingColor pixel.Color
	HighlightColor  pixel.Color
	IdleColor       pixel.Color
	MaxBrightness   uint8
	FrameDelay      time.Duration
}

// DefaultConfig returns the stock palette: pink while connecting, a warm
// white sweep when the station is overhead, orange otherwise.
func DefaultConfig() Config {
	return Config{
		ConnectingColor: pixel.RGB(237, 26, 255),
		HighlightColor:  pixel.RGB(255, 255, 100),
		IdleColor:       pixel.RGB(255, 60, 0),
		MaxBrightness:   100,
		FrameDelay:      300 * time.Millisecond,
	}
}

// Renderer draws modes onto a pixel.Driver.
type Renderer struct {
	cfg    Config
	driver pixel.Driver
	clock  clock.Clock
	logger *slog.Logger
}

// NewRenderer creates a Renderer.
func NewRenderer(cfg Config, driver pixel.Driver, clk clock.Clock, logger *slog.Logger) *Renderer {
	return &Renderer{cfg: cfg, driver: driver, clock: clk, logger: logger}
}

// Render draws mode. Driver failures are logged and counted, never returned;
// a cancelled ctx cuts a Visible sweep short.
func (r *Renderer) Render(ctx context.Context, mode Mode) {
	switch mode {
	case Connecting:
		r.fill(r.cfg.ConnectingColor, r.cfg.MaxBrightness)
		r.show(mode)
	case Visible:
		r.sweep(ctx)
	default:
		r.fill(r.cfg.IdleColor, r.idleBrightness())
		r.show(mode)
	}
}

// sweep walks the highlight across the strip one pixel per frame.
func (r *Renderer) sweep(ctx context.Context) {
	n := r.driver.Len()
	for i := range n {
		for j := range n {
			if j == i {
				r.driver.SetPixel(j, r.cfg.HighlightColor, r.cfg.MaxBrightness)
			} else {
				r.driver.SetPixel(j, r.cfg.IdleColor, r.idleBrightness())
			}
		}
		r.show(Visible)
		if err := r.clock.Sleep(ctx, r.cfg.FrameDelay); err != nil {
			break
		}
	}

	r.fill(r.cfg.IdleColor, r.idleBrightness())
	r.show(Visible)
}

func (r *Renderer) fill(c pixel.Color, brightness uint8) {
	for i := range r.driver.Len() {
		r.driver.SetPixel(i, c, brightness)
	}
}

func (r *Renderer) show(mode Mode) {
	if err := r.driver.Show(); err != nil {
		metrics.RecordShowError()
		r.logger.Warn("failed to show frame", "component", "indicator", "mode", mode.String(), "error", err)
		return
	}
	metrics.RecordFrame(mode.String())
}

func (r *Renderer) idleBrightness() uint8 {
	return r.cfg.MaxBrightness / 2
}
