package present

import (
	"fmt"
	"io"
	"strings"

	"github.com/tinygo-org/pioscope/capture"
)

// EdgeMode selects how long remembered channel values live.
type EdgeMode uint8

const (
	// CarryOver keeps the last value of every channel across passes. Before
	// the first pass every channel is assumed low.
	CarryOver EdgeMode = iota
	// ResetPerPass forgets all values at the start of each pass. The first
	// sample of every channel seeds its value and is not reported.
	ResetPerPass
)

func (m EdgeMode) String() string {
	switch m {
	case CarryOver:
		return "carry-over"
	case ResetPerPass:
		return "reset-per-pass"
	}
	return fmt.Sprintf("EdgeMode(%d)", uint8(m))
}

// ParseEdgeMode parses the String form of an EdgeMode.
func ParseEdgeMode(s string) (EdgeMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "carry-over", "carryover":
		return CarryOver, nil
	case "reset-per-pass", "resetperpass", "reset":
		return ResetPerPass, nil
	}
	return 0, fmt.Errorf("present: unknown edge mode %q", s)
}

// PreviousValues remembers the last reported value of every channel.
type PreviousValues struct {
	values []bool
	known  []bool
}

// NewPreviousValues returns state for channels channels, all unknown.
func NewPreviousValues(channels int) *PreviousValues {
	return &PreviousValues{values: make([]bool, channels), known: make([]bool, channels)}
}

// Get returns the remembered value of ch and whether there is one.
func (p *PreviousValues) Get(ch int) (v, known bool) {
	if ch >= len(p.values) {
		return false, false
	}
	return p.values[ch], p.known[ch]
}

// Set remembers v for ch, growing the state if needed.
func (p *PreviousValues) Set(ch int, v bool) {
	for ch >= len(p.values) {
		p.values = append(p.values, false)
		p.known = append(p.known, false)
	}
	p.values[ch], p.known[ch] = v, true
}

// Reset forgets every channel.
func (p *PreviousValues) Reset() {
	for i := range p.known {
		p.values[i], p.known[i] = false, false
	}
}

// EdgeLogger writes one Record for every change of a channel's value.
// Channels are walked in order, each in increasing sample order, and every
// record is stamped with Clock at the moment it is decoded.
type EdgeLogger struct {
	Output io.Writer
	Clock  capture.Clock
	// State is created on first use when nil.
	State *PreviousValues
	Mode  EdgeMode

	buf []byte
}

// NewEdgeLogger returns a logger writing to out with fresh state.
func NewEdgeLogger(out io.Writer, clock capture.Clock, mode EdgeMode) *EdgeLogger {
	return &EdgeLogger{Output: out, Clock: clock, Mode: mode}
}

// Present logs the changes in w and returns the number of records written.
func (l *EdgeLogger) Present(w capture.Waveform) (int, error) {
	if l.State == nil {
		l.State = NewPreviousValues(w.Channels())
	}
	if l.Mode == ResetPerPass {
		l.State.Reset()
	}
	n := 0
	for it := w.Iter(); it.Next(); {
		ch, _, v := it.Sample()
		prev, known := l.State.Get(ch)
		if !known && l.Mode == ResetPerPass {
			l.State.Set(ch, v)
			continue
		}
		if v == prev {
			if !known {
				l.State.Set(ch, v)
			}
			continue
		}
		l.State.Set(ch, v)
		rec := Record{Timestamp: l.Clock.Now(), Channel: ch, Value: v}
		l.buf = rec.AppendText(l.buf[:0])
		if _, err := l.Output.Write(l.buf); err != nil {
			return n, fmt.Errorf("present: write record: %w", err)
		}
		n++
	}
	return n, nil
}
