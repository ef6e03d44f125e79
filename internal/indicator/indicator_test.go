package indicator

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/sebhoos/iss-illumination/internal/clock"
	"github.com/sebhoos/iss-illumination/internal/pixel"
)

var (
	testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

	connecting = pixel.RGB(92, 10, 99)
	highlight  = pixel.RGB(99, 99, 39)
	idle       = pixel.RGB(49, 11, 0)
)

func newTestRenderer(n int) (*Renderer, *pixel.Recorder, *clock.Fake) {
	rec := pixel.NewRecorder(n)
	clk := clock.NewFake(time.Unix(0, 0))
	return NewRenderer(DefaultConfig(), rec, clk, testLogger), rec, clk
}

func uniform(n int, c pixel.Color) []pixel.Color {
	out := make([]pixel.Color, n)
	for i := range out {
		out[i] = c
	}
	return out
}

func TestModeString(t *testing.T) {
	for m, want := range map[Mode]string{Connecting: "connecting", Visible: "visible", NotVisible: "not_visible"} {
		if m.String() != want {
			t.Errorf("%d.String() = %q, want %q", int(m), m.String(), want)
		}
	}
}

func TestRenderConnecting(t *testing.T) {
	r, rec, clk := newTestRenderer(4)
	r.Render(context.Background(), Connecting)

	frames := rec.Frames()
	if len(frames) != 1 || !slices.Equal(frames[0], uniform(4, connecting)) {
		t.Errorf("frames = %v", frames)
	}
	if len(clk.Sleeps()) != 0 {
		t.Error("connecting frame should not sleep")
	}
}

func TestRenderNotVisible(t *testing.T) {
	r, rec, _ := newTestRenderer(4)
	r.Render(context.Background(), NotVisible)

	frames := rec.Frames()
	if len(frames) != 1 || !slices.Equal(frames[0], uniform(4, idle)) {
		t.Errorf("frames = %v", frames)
	}
}

func TestRenderVisibleSweep(t *testing.T) {
	r, rec, clk := newTestRenderer(4)
	r.Render(context.Background(), Visible)

	frames := rec.Frames()
	if len(frames) != 5 {
		t.Fatalf("got %d frames, want 5", len(frames))
	}
	for i := range 4 {
		want := uniform(4, idle)
		want[i] = highlight
		if !slices.Equal(frames[i], want) {
			t.Errorf("frame %d = %v, want %v", i, frames[i], want)
		}
	}
	if !slices.Equal(frames[4], uniform(4, idle)) {
		t.Errorf("final frame = %v", frames[4])
	}

	want := slices.Repeat([]time.Duration{300 * time.Millisecond}, 4)
	if got := clk.Sleeps(); !slices.Equal(got, want) {
		t.Errorf("sleeps = %v, want %v", got, want)
	}
}

func TestRenderVisibleCancelled(t *testing.T) {
	r, rec, _ := newTestRenderer(4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r.Render(ctx, Visible)

	frames := rec.Frames()
	// First highlight frame, then straight to idle.
	if len(frames) != 2 || !slices.Equal(frames[1], uniform(4, idle)) {
		t.Errorf("frames = %v", frames)
	}
}

func TestRenderSurvivesShowErrors(t *testing.T) {
	r, rec, _ := newTestRenderer(2)
	rec.FailNext(1)

	r.Render(context.Background(), NotVisible)
	r.Render(context.Background(), NotVisible)

	if got := len(rec.Frames()); got != 1 {
		t.Errorf("recorded %d frames, want 1", got)
	}
}
