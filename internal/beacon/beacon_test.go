package beacon

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/sebhoos/iss-illumination/internal/clock"
	"github.com/sebhoos/iss-illumination/internal/feed"
	"github.com/sebhoos/iss-illumination/internal/indicator"
	"github.com/sebhoos/iss-illumination/internal/link"
	"github.com/sebhoos/iss-illumination/internal/pixel"
	"github.com/sebhoos/iss-illumination/internal/transform"
)

var (
	testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

	observer = transform.GeoPoint{Latitude: 51.0, Longitude: 6.0}
	farAway  = transform.GeoPoint{Latitude: 0, Longitude: 0}

	connectingPx = pixel.RGB(92, 10, 99)
	idlePx       = pixel.RGB(49, 11, 0)
)

// journal records the order of collaborator calls across fakes.
type journal struct {
	events []string
}

func (j *journal) add(e string) { j.events = append(j.events, e) }

type fakeLinks struct {
	j        *journal
	statuses []link.Status
	attempts int
}

func (f *fakeLinks) Status(context.Context) link.Status {
	s := link.Connected
	if len(f.statuses) > 0 {
		s, f.statuses = f.statuses[0], f.statuses[1:]
	}
	f.j.add("status:" + s.String())
	return s
}

func (f *fakeLinks) Reconnect(ctx context.Context, onAttempt func(int)) error {
	f.j.add("reconnect")
	for n := 1; n <= f.attempts; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		onAttempt(n)
	}
	f.j.add("connected")
	return ctx.Err()
}

type result struct {
	pos transform.GeoPoint
	err error
}

type fakeLocator struct {
	j       *journal
	results []result
	calls   int
}

func (f *fakeLocator) Locate(context.Context) (transform.GeoPoint, error) {
	f.j.add("locate")
	r := f.results[min(f.calls, len(f.results)-1)]
	f.calls++
	return r.pos, r.err
}

type recordingRenderer struct {
	inner *indicator.Renderer
	j     *journal
}

func (r *recordingRenderer) Render(ctx context.Context, mode indicator.Mode) {
	r.j.add("render:" + mode.String())
	r.inner.Render(ctx, mode)
}

type harness struct {
	j      *journal
	links  *fakeLinks
	loc    *fakeLocator
	pixels *pixel.Recorder
	clock  *clock.Fake
	board  *Board
	cycle  *Cycle
}

func newHarness(t *testing.T, cfg Config, results ...result) *harness {
	t.Helper()
	j := &journal{}
	h := &harness{
		j:      j,
		links:  &fakeLinks{j: j},
		loc:    &fakeLocator{j: j, results: results},
		pixels: pixel.NewRecorder(4),
		clock:  clock.NewFake(time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)),
		board:  NewBoard(),
	}
	rend := &recordingRenderer{
		inner: indicator.NewRenderer(indicator.DefaultConfig(), h.pixels, h.clock, testLogger),
		j:     j,
	}
	h.cycle = NewCycle(cfg, h.loc, h.links, rend, h.board, h.clock, testLogger)
	return h
}

func (h *harness) init(t *testing.T) {
	t.Helper()
	if err := h.cycle.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
}

func (h *harness) step(t *testing.T, n int) {
	t.Helper()
	for range n {
		if err := h.cycle.Step(context.Background()); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}
}

func uniform(c pixel.Color) []pixel.Color {
	return []pixel.Color{c, c, c, c}
}

func TestPollCadence(t *testing.T) {
	h := newHarness(t, DefaultConfig(), result{pos: observer})
	h.init(t)

	var visibleAt []bool
	for i := 1; i <= 12; i++ {
		h.step(t, 1)
		visibleAt = append(visibleAt, h.cycle.State().Visible)

		// Every window of PollSkip+1 ticks holds exactly one poll.
		if want := i / 4; h.loc.calls != want {
			t.Fatalf("after tick %d: %d polls, want %d", i, h.loc.calls, want)
		}
	}

	want := []bool{false, false, false, true, true, true, true, true, true, true, true, true}
	if !slices.Equal(visibleAt, want) {
		t.Errorf("visible per tick = %v, want %v", visibleAt, want)
	}
	if st := h.cycle.State(); st.Counter != 0 || st.Ticks != 12 || st.Polls != 3 {
		t.Errorf("state = %+v", st)
	}
}

func TestPollEveryTickWhenSkipZero(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PollSkip = 0
	h := newHarness(t, cfg, result{pos: farAway})
	h.init(t)
	h.step(t, 3)

	if h.loc.calls != 3 {
		t.Errorf("polls = %d, want 3", h.loc.calls)
	}
}

func TestFailSafeKeepsVerdict(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"fetch error", &feed.FetchError{Source: "feed", Err: errors.New("timeout")}},
		{"parse error", &feed.ParseError{Field: "iss_position", Err: errors.New("missing")}},
		{"untyped error", errors.New("boom")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.PollSkip = 0
			h := newHarness(t, cfg, result{pos: observer}, result{err: tt.err})
			h.init(t)

			h.step(t, 1)
			if !h.cycle.State().Visible {
				t.Fatal("first poll should be visible")
			}

			h.step(t, 1)
			st := h.cycle.State()
			if !st.Visible {
				t.Error("failed poll changed the verdict")
			}
			if !errors.Is(st.LastErr, tt.err) {
				t.Errorf("LastErr = %v, want %v", st.LastErr, tt.err)
			}
			if st.LastPosition != observer {
				t.Errorf("LastPosition = %+v, want last good fix", st.LastPosition)
			}
		})
	}
}

func TestFailSafeBeforeFirstFix(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PollSkip = 0
	h := newHarness(t, cfg, result{err: &feed.FetchError{Source: "feed", Err: errors.New("down")}})
	h.init(t)
	h.step(t, 2)

	if h.cycle.State().Visible {
		t.Error("verdict should stay false")
	}
	snap := h.board.Load()
	if snap.LastPosition != nil || snap.LastDistance != nil {
		t.Errorf("snapshot reports a fix: %+v", snap)
	}
	if snap.LastError == "" {
		t.Error("snapshot should carry the last error")
	}
}

func TestScenarioObjectOverhead(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PollSkip = 0
	h := newHarness(t, cfg, result{pos: observer})
	h.init(t)
	h.pixels.Reset()

	h.step(t, 1)

	st := h.cycle.State()
	if !st.Visible || st.LastDistance != 0 {
		t.Errorf("state = %+v, want visible at distance 0", st)
	}
	// Sweep of four highlight frames then idle.
	frames := h.pixels.Frames()
	if len(frames) != 5 || !slices.Equal(frames[4], uniform(idlePx)) {
		t.Errorf("frames = %v", frames)
	}
}

func TestScenarioObjectFarAway(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PollSkip = 0
	h := newHarness(t, cfg, result{pos: farAway})
	h.init(t)
	h.pixels.Reset()

	h.step(t, 1)

	st := h.cycle.State()
	if st.Visible {
		t.Error("object at 0,0 should not be visible")
	}
	if st.LastDistance < 1_500_000 {
		t.Errorf("distance = %.0f, want far beyond the radius", st.LastDistance)
	}
	if frames := h.pixels.Frames(); len(frames) != 1 || !slices.Equal(frames[0], uniform(idlePx)) {
		t.Errorf("frames = %v", frames)
	}
}

func TestScenarioLinkDownBeforePoll(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PollSkip = 0
	h := newHarness(t, cfg, result{pos: observer})
	h.init(t)

	h.links.statuses = []link.Status{link.Disconnected}
	h.links.attempts = 2
	h.j.events = nil
	h.pixels.Reset()

	h.step(t, 1)

	want := []string{
		"status:disconnected",
		"render:connecting",
		"reconnect",
		"render:connecting",
		"render:connecting",
		"connected",
		"locate",
		"render:visible",
	}
	if !slices.Equal(h.j.events, want) {
		t.Errorf("events = %v\nwant     %v", h.j.events, want)
	}
	if frames := h.pixels.Frames(); !slices.Equal(frames[0], uniform(connectingPx)) {
		t.Errorf("first frame = %v, want connecting", frames[0])
	}
	if snap := h.board.Load(); snap.Link != "connected" {
		t.Errorf("snapshot link = %q", snap.Link)
	}
}

func TestScenarioMalformedPayload(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PollSkip = 0
	h := newHarness(t, cfg, result{pos: observer})
	h.init(t)
	h.step(t, 1)

	// Swap in a real feed serving a document without iss_position.
	h.cycle.poller.locator = feed.NewFeed(staticFetcher(`{"message":"success","timestamp":1700000000}`))
	h.step(t, 1)

	st := h.cycle.State()
	if !st.Visible {
		t.Error("malformed payload changed the verdict")
	}
	var pe *feed.ParseError
	if !errors.As(st.LastErr, &pe) || pe.Field != "iss_position" {
		t.Errorf("LastErr = %v, want ParseError on iss_position", st.LastErr)
	}
}

type staticFetcher string

func (s staticFetcher) Fetch(context.Context) ([]byte, error) { return []byte(s), nil }

func TestInitialize(t *testing.T) {
	h := newHarness(t, DefaultConfig(), result{pos: observer})
	h.links.statuses = []link.Status{link.Disconnected}
	h.links.attempts = 1

	if h.board.Ready() {
		t.Fatal("board ready before Initialize")
	}
	h.init(t)

	if h.j.events[0] != "render:connecting" {
		t.Errorf("first event = %q, want connecting render", h.j.events[0])
	}
	if want := transform.Project(observer, observer.Latitude); h.cycle.State().Observer != want {
		t.Errorf("observer = %+v, want %+v", h.cycle.State().Observer, want)
	}

	snap := h.board.Load()
	if snap == nil || snap.Mode != "connecting" || snap.Visible || snap.Ticks != 0 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestInitializeCancelledWhileReconnecting(t *testing.T) {
	h := newHarness(t, DefaultConfig(), result{pos: observer})
	h.links.statuses = []link.Status{link.Disconnected}
	h.links.attempts = 3

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := h.cycle.Initialize(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if h.board.Ready() {
		t.Error("board should not be ready")
	}
}

func TestRunKeepsFixedPeriod(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PollSkip = 0
	h := newHarness(t, cfg, result{pos: observer})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	long := 0
	h.clock.OnSleep(func(d time.Duration) {
		if d > time.Second {
			long++
			if long == 2 {
				cancel()
			}
		}
	})

	if err := h.cycle.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run err = %v, want context.Canceled", err)
	}

	frame := 300 * time.Millisecond
	want := []time.Duration{frame, frame, frame, frame, 8800 * time.Millisecond, frame, frame, frame, frame, 8800 * time.Millisecond}
	if got := h.clock.Sleeps(); !slices.Equal(got, want) {
		t.Errorf("sleeps = %v\nwant    %v", got, want)
	}
	if snap := h.board.Load(); snap.Ticks != 2 || snap.Mode != "visible" {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestRunClampsOverrun(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PollSkip = 0
	cfg.TickPeriod = time.Second
	h := newHarness(t, cfg, result{pos: observer})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	count := 0
	h.clock.OnSleep(func(d time.Duration) {
		if d == 0 {
			count++
			if count == 2 {
				cancel()
			}
		}
	})

	// A 1.2 s sweep on a 1 s period never leaves time to wait.
	if err := h.cycle.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run err = %v", err)
	}
	if st := h.cycle.State(); st.Ticks != 2 {
		t.Errorf("ticks = %d, want 2", st.Ticks)
	}
}
