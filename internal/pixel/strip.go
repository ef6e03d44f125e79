package pixel

import (
	"fmt"
	"sync"
)

// Driver is a fixed-length addressable strip. SetPixel only stages a colour;
// Show pushes every staged colour to the hardware.
type Driver interface {
	Len() int
	SetPixel(i int, c Color, brightness uint8)
	Show() error
}

// Transport moves an encoded frame to the LEDs.
type Transport interface {
	Transmit(frame []byte) error
	Close() error
}

// Strip encodes staged pixels as APA102 frames and hands them to a Transport.
type Strip struct {
	mu        sync.Mutex
	pixels    []Color
	transport Transport
}

var _ Driver = (*Strip)(nil)

// NewStrip creates a Strip of n pixels, all black.
func NewStrip(n int, transport Transport) *Strip {
	return &Strip{pixels: make([]Color, n), transport: transport}
}

// Len implements Driver.
func (s *Strip) Len() int { return len(s.pixels) }

// SetPixel implements Driver. Out-of-range indices are ignored.
func (s *Strip) SetPixel(i int, c Color, brightness uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.pixels) {
		return
	}
	s.pixels[i] = c.Scaled(brightness)
}

// Show implements Driver.
func (s *Strip) Show() error {
	s.mu.Lock()
	frame := Encode(s.pixels)
	s.mu.Unlock()

	if err := s.transport.Transmit(frame); err != nil {
		return fmt.Errorf("transmitting %d-pixel frame: %w", len(s.pixels), err)
	}
	return nil
}

// Close releases the transport.
func (s *Strip) Close() error {
	return s.transport.Close()
}

// globalBrightness is the 5-bit APA102 current setting; colour already
// carries the brightness so it stays at full.
const globalBrightness = 31

// Encode builds an APA102 frame: a 4-byte zero start frame, one
// 0xE0|brightness,B,G,R quad per pixel and an end frame of 0xFF bytes long
// enough to clock data through every pixel (n/2 bits, at least 32).
func Encode(pixels []Color) []byte {
	endLen := max(4, (len(pixels)+15)/16)
	frame := make([]byte, 0, 4+4*len(pixels)+endLen)

	frame = append(frame, 0x00, 0x00, 0x00, 0x00)
	for _, c := range pixels {
		frame = append(frame, 0xE0|globalBrightness, c.B, c.G, c.R)
	}
	for range endLen {
		frame = append(frame, 0xFF)
	}
	return frame
}
