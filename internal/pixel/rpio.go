package pixel

import (
	"fmt"

	"github.com/stianeikeland/go-rpio/v4"
)

// SPITransport writes frames to hardware SPI0 (MOSI/SCLK) on a Raspberry Pi.
type SPITransport struct{}

// OpenSPI maps GPIO memory and starts SPI0 at speedHz.
func OpenSPI(speedHz int) (*SPITransport, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("opening gpio memory: %w", err)
	}
	if err := rpio.SpiBegin(rpio.Spi0); err != nil {
		rpio.Close()
		return nil, fmt.Errorf("starting spi0: %w", err)
	}
	rpio.SpiSpeed(speedHz)
	rpio.SpiChipSelect(0)
	return &SPITransport{}, nil
}

// Transmit implements Transport.
func (*SPITransport) Transmit(frame []byte) error {
	rpio.SpiTransmit(frame...)
	return nil
}

// Close implements Transport.
func (*SPITransport) Close() error {
	rpio.SpiEnd(rpio.Spi0)
	return rpio.Close()
}

// outputPin is the subset of rpio.Pin the bit-banger uses.
type outputPin interface {
	High()
	Low()
}

// GPIOTransport bit-bangs frames MSB first over two GPIO pins.
type GPIOTransport struct {
	data  outputPin
	clock outputPin
	close func() error
}

// OpenGPIO maps GPIO memory and configures dataPin and clockPin (BCM numbers)
// as outputs.
func OpenGPIO(dataPin, clockPin int) (*GPIOTransport, error) {
	if dataPin == clockPin {
		return nil, fmt.Errorf("data and clock pins must differ (both %d)", dataPin)
	}
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("opening gpio memory: %w", err)
	}

	data := rpio.Pin(dataPin)
	clk := rpio.Pin(clockPin)
	data.Output()
	clk.Output()
	clk.Low()

	return &GPIOTransport{data: data, clock: clk, close: rpio.Close}, nil
}

// Transmit implements Transport.
func (t *GPIOTransport) Transmit(frame []byte) error {
	for _, b := range frame {
		for bit := 7; bit >= 0; bit-- {
			if b&(1<<bit) != 0 {
				t.data.High()
			} else {
				t.data.Low()
			}
			t.clock.High()
			t.clock.Low()
		}
	}
	return nil
}

// Close implements Transport.
func (t *GPIOTransport) Close() error {
	if t.close == nil {
		return nil
	}
	return t.close()
}
