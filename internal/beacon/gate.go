package beacon

import (
	"context"
	"log/slog"

	"github.com/sebhoos/iss-illumination/internal/indicator"
	"github.com/sebhoos/iss-illumination/internal/link"
)

// Renderer draws an indicator mode. *indicator.Renderer satisfies it.
type Renderer interface {
	Render(ctx context.Context, mode indicator.Mode)
}

// Gate blocks until the link is up, showing the connecting signal while it
// waits.
type Gate struct {
	links    link.Manager
	renderer Renderer
	logger   *slog.Logger

	last link.Status
}

// NewGate creates a Gate.
func NewGate(links link.Manager, renderer Renderer, logger *slog.Logger) *Gate {
	return &Gate{links: links, renderer: renderer, logger: logger}
}

// EnsureConnected returns once the link reports Connected. There is no
// timeout; the only error is ctx being done.
func (g *Gate) EnsureConnected(ctx context.Context) error {
	if g.last = g.links.Status(ctx); g.last == link.Connected {
		return nil
	}

	g.logger.Warn("link down, reconnecting", "component", "beacon")
	g.renderer.Render(ctx, indicator.Connecting)

	if err := g.links.Reconnect(ctx, func(int) {
		g.renderer.Render(ctx, indicator.Connecting)
	}); err != nil {
		return err
	}
	g.last = link.Connected
	return nil
}

// Last returns the link status seen by the most recent check.
func (g *Gate) Last() link.Status {
	return g.last
}
