package analyzer

import (
	"fmt"
	"strings"
	"time"

	"github.com/tinygo-org/pioscope/capture"
	"github.com/tinygo-org/pioscope/present"
)

// Presenter names accepted in Config.Presenters.
const (
	PresentEdges = "edges"
	PresentBlink = "blink"
)

// Config describes one capture setup. The zero value is not usable; start
// from DefaultConfig.
type Config struct {
	// PinBase is the first sampled GPIO and Channels the number of
	// consecutive GPIOs sampled from there.
	PinBase  uint8 `mapstructure:"pin_base"`
	Channels uint8 `mapstructure:"channels"`
	// Samples per channel per capture.
	Samples int `mapstructure:"samples"`

	// ClkDiv and ClkDivFrac set the state machine clock divider directly.
	// They are ignored when SampleRate is set.
	ClkDiv     uint16 `mapstructure:"clkdiv"`
	ClkDivFrac uint8  `mapstructure:"clkdiv_frac"`
	// SampleRate in Hz, derived from CPUFreq when non-zero.
	SampleRate uint32 `mapstructure:"sample_rate"`
	CPUFreq    uint32 `mapstructure:"cpu_freq"`

	// Trigger gates each capture on TriggerPin reading TriggerLevel.
	Trigger      bool  `mapstructure:"trigger"`
	TriggerPin   uint8 `mapstructure:"trigger_pin"`
	TriggerLevel bool  `mapstructure:"trigger_level"`

	// Timeout bounds the wait for a capture to fill. Zero waits forever.
	Timeout time.Duration `mapstructure:"timeout"`

	EdgeMode   string   `mapstructure:"edge_mode"`
	Presenters []string `mapstructure:"presenters"`

	// RearmDelay is the pause after every capture cycle.
	RearmDelay time.Duration `mapstructure:"rearm_delay"`

	// ButtonPin starts a cycle while held at its active level.
	ButtonPin       uint8 `mapstructure:"button_pin"`
	ButtonActiveLow bool  `mapstructure:"button_active_low"`

	// BufferLimit is the most words the capture buffer may use. Zero means
	// no limit.
	BufferLimit int `mapstructure:"buffer_limit"`
}

// DefaultConfig returns the setup of the QT Py RP2040 board: two channels on
// GPIO22 and GPIO23, 960 samples at a divider of 64, started by the BOOT
// button on GPIO21.
func DefaultConfig() Config {
	return Config{
		PinBase:         22,
		Channels:        2,
		Samples:         960,
		ClkDiv:          64,
		CPUFreq:         125_000_000,
		TriggerPin:      21,
		TriggerLevel:    true,
		EdgeMode:        present.CarryOver.String(),
		Presenters:      []string{PresentEdges, PresentBlink},
		RearmDelay:      500 * time.Millisecond,
		ButtonPin:       21,
		ButtonActiveLow: true,
		BufferLimit:     16 * 1024,
	}
}

// Validate checks the configuration without touching hardware.
func (c Config) Validate() error {
	cs := capture.ChannelSet{Base: c.PinBase, Count: c.Channels}
	if err := cs.Validate(); err != nil {
		return err
	}
	if _, err := capture.BufferUnits(c.Samples, int(c.Channels), capture.UnitWidth); err != nil {
		return err
	}
	if _, err := c.Divider(); err != nil {
		return err
	}
	if c.Trigger && c.TriggerPin >= 32 {
		return fmt.Errorf("%w: trigger pin %d", capture.ErrInvalidConfiguration, c.TriggerPin)
	}
	if c.Timeout < 0 || c.RearmDelay < 0 || c.BufferLimit < 0 {
		return fmt.Errorf("%w: negative duration or limit", capture.ErrInvalidConfiguration)
	}
	if _, err := present.ParseEdgeMode(c.EdgeMode); err != nil {
		return fmt.Errorf("%w: %v", capture.ErrInvalidConfiguration, err)
	}
	for _, p := range c.Presenters {
		switch strings.ToLower(p) {
		case PresentEdges, PresentBlink:
		default:
			return fmt.Errorf("%w: unknown presenter %q", capture.ErrInvalidConfiguration, p)
		}
	}
	return nil
}

// Divider returns the state machine clock divider.
func (c Config) Divider() (capture.ClkDiv, error) {
	if c.SampleRate != 0 {
		div, err := capture.ClkDivFromFrequency(c.SampleRate, c.CPUFreq)
		if err != nil {
			return div, fmt.Errorf("%w: %v", capture.ErrInvalidConfiguration, err)
		}
		return div, nil
	}
	if c.ClkDiv == 0 {
		return capture.ClkDiv{}, fmt.Errorf("%w: zero clock divider", capture.ErrInvalidConfiguration)
	}
	return capture.ClkDiv{Whole: c.ClkDiv, Frac: c.ClkDivFrac}, nil
}

// Units returns the capture buffer size in words.
func (c Config) Units() (int, error) {
	return capture.BufferUnits(c.Samples, int(c.Channels), capture.UnitWidth)
}

// TriggerPolicy returns the trigger every capture is armed with.
func (c Config) TriggerPolicy() capture.Trigger {
	if !c.Trigger {
		return capture.ImmediateStart{}
	}
	return capture.WaitForLevel{Pin: c.TriggerPin, Level: c.TriggerLevel}
}
