//go:build rp2040

package rp2

import (
	"image/color"
	"machine"

	"tinygo.org/x/drivers/ws2812"
)

// Indicator is a single WS2812 RGB LED with a switched power supply, as
// fitted to the QT Py RP2040.
type Indicator struct {
	dev   ws2812.Device
	power machine.Pin
	buf   [1]color.RGBA
}

// NewIndicator configures data as the LED data line and turns the LED supply
// on through power. Pass machine.NoPin if the LED is always powered.
func NewIndicator(data, power machine.Pin) *Indicator {
	if power != machine.NoPin {
		power.Configure(machine.PinConfig{Mode: machine.PinOutput})
		power.High()
	}
	data.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return &Indicator{dev: ws2812.New(data), power: power}
}

// SetColor shows c on the LED.
func (ind *Indicator) SetColor(c color.RGBA) error {
	if ind.power != machine.NoPin {
		ind.power.High()
	}
	ind.buf[0] = c
	return ind.dev.WriteColors(ind.buf[:])
}
