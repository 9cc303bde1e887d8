package present

import (
	"image/color"

	"github.com/tinygo-org/pioscope/capture"
)

// Indicator is a single RGB status light.
type Indicator interface {
	SetColor(c color.RGBA) error
}

// Default blink colors: red for a low sample, blue for a high one.
var (
	DefaultZero = RGB(0xff0000)
	DefaultOne  = RGB(0x0000ff)
)

// RGB converts a packed 0xRRGGBB value into an opaque color.
func RGB(packed uint32) color.RGBA {
	return color.RGBA{R: uint8(packed >> 16), G: uint8(packed >> 8), B: uint8(packed), A: 0xff}
}

// Blinker shows every decoded sample on an indicator, in scan order.
type Blinker struct {
	Indicator Indicator
	Zero, One color.RGBA
}

// NewBlinker returns a blinker with the default colors.
func NewBlinker(ind Indicator) *Blinker {
	return &Blinker{Indicator: ind, Zero: DefaultZero, One: DefaultOne}
}

// Present sets the indicator once per sample and returns how many times it
// did so.
func (b *Blinker) Present(w capture.Waveform) (int, error) {
	n := 0
	for it := w.Iter(); it.Next(); {
		_, _, v := it.Sample()
		c := b.Zero
		if v {
			c = b.One
		}
		if err := b.Indicator.SetColor(c); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
