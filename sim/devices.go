package sim

import (
	"image/color"
	"time"
)

// Clock is a manually driven monotonic clock. Every Now call advances it by
// Tick, so busy loops that read the clock make progress.
type Clock struct {
	Tick time.Duration
	now  time.Duration
}

func (c *Clock) Now() time.Duration {
	c.now += c.Tick
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) { c.now += d }

// Sleep advances the clock by d without blocking.
func (c *Clock) Sleep(d time.Duration) { c.Advance(d) }

// Pin is a GPIO line held at Level.
type Pin struct {
	Level bool
}

func (p *Pin) Get() bool     { return p.Level }
func (p *Pin) Set(high bool) { p.Level = high }

// Indicator records every color it is set to.
type Indicator struct {
	Colors []color.RGBA
	// Err is returned by SetColor when set.
	Err error
}

func (ind *Indicator) SetColor(c color.RGBA) error {
	if ind.Err != nil {
		return ind.Err
	}
	ind.Colors = append(ind.Colors, c)
	return nil
}
