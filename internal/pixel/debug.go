package pixel

import (
	"errors"
	"log/slog"
	"slices"
	"sync"
)

// LogDriver renders frames to the log. It stands in for real LEDs on
// machines without GPIO access.
type LogDriver struct {
	mu     sync.Mutex
	pixels []Color
	logger *slog.Logger
}

var _ Driver = (*LogDriver)(nil)

// NewLogDriver creates a LogDriver of n pixels.
func NewLogDriver(n int, logger *slog.Logger) *LogDriver {
	return &LogDriver{pixels: make([]Color, n), logger: logger}
}

// Len implements Driver.
func (d *LogDriver) Len() int { return len(d.pixels) }

// SetPixel implements Driver.
func (d *LogDriver) SetPixel(i int, c Color, brightness uint8) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i >= 0 && i < len(d.pixels) {
		d.pixels[i] = c.Scaled(brightness)
	}
}

// Show implements Driver.
func (d *LogDriver) Show() error {
	d.mu.Lock()
	hex := make([]string, len(d.pixels))
	for i, c := range d.pixels {
		hex[i] = c.Hex()
	}
	d.mu.Unlock()

	d.logger.Info("frame", "component", "pixel", "pixels", hex)
	return nil
}

// Recorder keeps a copy of every shown frame.
type Recorder struct {
	mu      sync.Mutex
	pending []Color
	frames  [][]Color
	failN   int
}

var _ Driver = (*Recorder)(nil)

// ErrInjected is returned by a Recorder told to fail.
var ErrInjected = errors.New("injected show failure")

// NewRecorder creates a Recorder of n pixels.
func NewRecorder(n int) *Recorder {
	return &Recorder{pending: make([]Color, n)}
}

// Len implements Driver.
func (r *Recorder) Len() int { return len(r.pending) }

// SetPixel implements Driver.
func (r *Recorder) SetPixel(i int, c Color, brightness uint8) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i >= 0 && i < len(r.pending) {
		r.pending[i] = c.Scaled(brightness)
	}
}

// Show implements Driver. A failed Show records nothing.
func (r *Recorder) Show() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failN > 0 {
		r.failN--
		return ErrInjected
	}
	r.frames = append(r.frames, slices.Clone(r.pending))
	return nil
}

// FailNext makes the next n calls to Show return ErrInjected.
func (r *Recorder) FailNext(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failN = n
}

// Frames returns every recorded frame, oldest first.
func (r *Recorder) Frames() [][]Color {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]Color, len(r.frames))
	for i, f := range r.frames {
		out[i] = slices.Clone(f)
	}
	return out
}

// Last returns the newest frame, or nil.
func (r *Recorder) Last() []Color {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		return nil
	}
	return slices.Clone(r.frames[len(r.frames)-1])
}

// Reset discards recorded frames.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = nil
}
