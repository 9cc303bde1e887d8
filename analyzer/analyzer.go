// Package analyzer runs the capture loop: wait for the start button, capture,
// decode and present, pause, repeat.
package analyzer

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tinygo-org/pioscope/capture"
	"github.com/tinygo-org/pioscope/present"
)

// idlePoll is the pause between two button reads while no cycle runs.
const idlePoll = 10 * time.Millisecond

// Logger is satisfied by *log.Logger.
type Logger interface {
	Printf(format string, v ...any)
}

// Presenter renders one decoded capture.
type Presenter interface {
	Present(w capture.Waveform) (int, error)
}

// Hardware bundles the devices the analyzer drives.
type Hardware struct {
	Sampler  capture.Sampler
	Transfer capture.Transfer
	Clock    capture.Clock
	// Button starts a cycle while at its active level. Nil runs continuously.
	Button capture.Pin
	// Output receives the edge log.
	Output io.Writer
	// Indicator shows the blink pattern. Nil disables the blink presenter.
	Indicator present.Indicator
	// Sleep pauses the loop. Defaults to time.Sleep.
	Sleep  func(time.Duration)
	Logger Logger
}

// Analyzer owns the capture buffer and runs capture cycles.
type Analyzer struct {
	hw         Hardware
	cfg        Config
	buf        []uint32
	units      int
	trigger    capture.Trigger
	ctrl       *capture.Controller
	presenters []Presenter
	cycles     int
}

// New validates cfg, allocates the capture buffer and installs the sampling
// program. An error wrapping capture.ErrAllocationFailure must be treated
// as fatal.
func New(hw Hardware, cfg Config) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if hw.Sampler == nil || hw.Transfer == nil || hw.Clock == nil {
		return nil, fmt.Errorf("%w: missing sampler, transfer or clock", capture.ErrInvalidConfiguration)
	}
	if hw.Sleep == nil {
		hw.Sleep = time.Sleep
	}
	if hw.Logger == nil {
		hw.Logger = nopLogger{}
	}
	units, err := cfg.Units()
	if err != nil {
		return nil, err
	}
	buf, err := capture.NewBuffer(units, cfg.BufferLimit)
	if err != nil {
		return nil, err
	}
	div, err := cfg.Divider()
	if err != nil {
		return nil, err
	}
	prog, err := capture.Synthesize(hw.Sampler, capture.ChannelSet{Base: cfg.PinBase, Count: cfg.Channels}, div)
	if err != nil {
		return nil, err
	}
	a := &Analyzer{
		hw:      hw,
		cfg:     cfg,
		buf:     buf,
		units:   units,
		trigger: cfg.TriggerPolicy(),
	}
	a.ctrl = capture.NewController(hw.Sampler, hw.Transfer, hw.Clock, prog, capture.ControllerOptions{
		Timeout: cfg.Timeout,
		Trigger: a.trigger,
	})
	// Validate already rejected unknown edge modes.
	mode, _ := present.ParseEdgeMode(cfg.EdgeMode)
	for _, name := range cfg.Presenters {
		switch strings.ToLower(name) {
		case PresentEdges:
			if hw.Output == nil {
				hw.Logger.Printf("analyzer: no output, edge log disabled")
				continue
			}
			a.presenters = append(a.presenters, present.NewEdgeLogger(hw.Output, hw.Clock, mode))
		case PresentBlink:
			if hw.Indicator == nil {
				hw.Logger.Printf("analyzer: no indicator, blink disabled")
				continue
			}
			a.presenters = append(a.presenters, present.NewBlinker(hw.Indicator))
		}
	}
	hw.Logger.Printf("analyzer: %d channels from GPIO%d, %d samples in %d words, program at %d",
		cfg.Channels, cfg.PinBase, cfg.Samples, units, prog.Offset)
	return a, nil
}

// Controller returns the capture controller.
func (a *Analyzer) Controller() *capture.Controller { return a.ctrl }

// Cycles returns the number of completed capture cycles.
func (a *Analyzer) Cycles() int { return a.cycles }

// Poll runs one cycle if the start button is held, then pauses for the
// re-arm delay. It reports whether a cycle was attempted.
func (a *Analyzer) Poll() (bool, error) {
	if !a.buttonActive() {
		return false, nil
	}
	err := a.Cycle()
	a.hw.Sleep(a.cfg.RearmDelay)
	return true, err
}

func (a *Analyzer) buttonActive() bool {
	if a.hw.Button == nil {
		return true
	}
	return a.hw.Button.Get() != a.cfg.ButtonActiveLow
}

// Cycle arms a capture, waits for it, decodes it and hands it to every
// presenter.
func (a *Analyzer) Cycle() error {
	if err := a.ctrl.Arm(a.buf, a.units, a.trigger); err != nil {
		return err
	}
	if err := a.ctrl.Wait(); err != nil {
		return err
	}
	buf, err := a.ctrl.Buffer()
	if err != nil {
		return err
	}
	if r, ok := a.hw.Sampler.(capture.OverflowReporter); ok && r.RxOverflowed() {
		a.hw.Logger.Printf("analyzer: cycle %d: RX FIFO overflowed, samples were dropped", a.cycles)
	}
	dec, err := capture.NewDecoder(buf, a.ctrl.Program().Layout, int(a.cfg.Channels), a.cfg.Samples)
	if err != nil {
		return err
	}
	for _, p := range a.presenters {
		if _, err := p.Present(dec); err != nil {
			return err
		}
	}
	a.cycles++
	return nil
}

// Run polls until ctx is done. Failed cycles are logged and skipped.
func (a *Analyzer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		ran, err := a.Poll()
		if err != nil {
			a.hw.Logger.Printf("analyzer: cycle %d: %v", a.cycles, err)
		}
		if !ran {
			a.hw.Sleep(idlePoll)
		}
	}
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}
