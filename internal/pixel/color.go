// Package pixel drives a short strip of APA102 RGB LEDs.
package pixel

import "fmt"

// Color is an 8-bit RGB triple.
type Color struct {
	R, G, B uint8
}

// Black is every channel off.
var Black = Color{}

// RGB builds a Color.
func RGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b}
}

// Scaled rescales c so its brightest channel lands near limit while keeping
// the channel ratios, matching FastLED's maximizeBrightness with integer
// truncation. A black colour stays black.
func (c Color) Scaled(limit uint8) Color {
	peak := max(c.R, c.G, c.B)
	if peak == 0 {
		return Black
	}
	factor := uint32(limit) * 256 / uint32(peak)
	scale := func(v uint8) uint8 {
		return uint8(uint32(v) * factor / 256)
	}
	return Color{R: scale(c.R), G: scale(c.G), B: scale(c.B)}
}

// Hex formats c as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
