package beacon

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/sebhoos/iss-illumination/internal/clock"
	"github.com/sebhoos/iss-illumination/internal/feed"
	"github.com/sebhoos/iss-illumination/internal/metrics"
	"github.com/sebhoos/iss-illumination/internal/transform"
)

const tracerName = "github.com/sebhoos/iss-illumination/internal/beacon"

// Poller decides on each tick whether to query the feed, and updates the
// cached verdict when it does.
type Poller struct {
	cfg     Config
	locator feed.Locator
	gate    *Gate
	clock   clock.Clock
	logger  *slog.Logger
}

// NewPoller creates a Poller.
func NewPoller(cfg Config, locator feed.Locator, gate *Gate, clk clock.Clock, logger *slog.Logger) *Poller {
	return &Poller{cfg: cfg, locator: locator, gate: gate, clock: clk, logger: logger}
}

// Tick advances the poll counter and polls once it passes PollSkip. Feed
// failures leave st.Visible untouched. The only error is ctx ending while
// the gate waits for the link.
func (p *Poller) Tick(ctx context.Context, st *State) error {
	st.Counter++
	if st.Counter <= p.cfg.PollSkip {
		return nil
	}
	st.Counter = 0

	if err := p.gate.EnsureConnected(ctx); err != nil {
		return err
	}
	p.poll(ctx, st)
	return nil
}

func (p *Poller) poll(ctx context.Context, st *State) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "beacon.poll")
	defer span.End()

	start := p.clock.Now()
	pos, err := p.locator.Locate(ctx)
	elapsed := p.clock.Now().Sub(start)

	st.Polls++
	st.LastPoll = start
	st.LastErr = err

	if err != nil {
		result := metrics.PollFetchError
		var pe *feed.ParseError
		if errors.As(err, &pe) {
			result = metrics.PollParseError
		}
		metrics.RecordPoll(result, elapsed)

		span.RecordError(err)
		span.SetStatus(codes.Error, result)
		span.SetAttributes(attribute.String("result", result), attribute.Bool("visible", st.Visible))

		p.logger.Warn("position poll failed, keeping last verdict",
			"component", "beacon",
			"result", result,
			"visible", st.Visible,
			"error", err,
		)
		return
	}

	obj := transform.Project(pos, p.cfg.Observer.Latitude)
	dist := transform.Distance(st.Observer, obj)
	visible := transform.IsWithinRange(st.Observer, obj, p.cfg.VisibilityRadius)

	changed := visible != st.Visible
	st.Visible = visible
	st.HasFix = true
	st.LastDistance = dist
	st.LastPosition = pos

	result := metrics.PollNotVisible
	if visible {
		result = metrics.PollVisible
	}
	metrics.RecordPoll(result, elapsed)
	metrics.SetVisibility(visible, dist)

	span.SetAttributes(
		attribute.String("result", result),
		attribute.Bool("visible", visible),
		attribute.Float64("distance_m", dist),
	)

	level := slog.LevelDebug
	if changed {
		level = slog.LevelInfo
	}
	p.logger.Log(ctx, level, "position polled",
		"component", "beacon",
		"latitude", pos.Latitude,
		"longitude", pos.Longitude,
		"distance_m", dist,
		"visible", visible,
		"changed", changed,
	)
}
