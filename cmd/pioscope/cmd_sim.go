//go:build !tinygo

package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinygo-org/pioscope/analyzer"
	"github.com/tinygo-org/pioscope/internal/config"
	"github.com/tinygo-org/pioscope/sim"
)

func newSimCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sim",
		Short: "Run capture cycles against a simulated RP2040",
		Long: `Runs the capture pipeline on a cycle-level model of a PIO state machine and a
DMA channel. Every channel is driven by a square wave whose half period is set
with --half-periods; the edge log is written to --output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSim(cmd, a.cfg)
		},
	}
	f := cmd.Flags()
	f.Int("cycles", 1, "capture cycles to run")
	f.Int("samples", 960, "samples per channel per capture")
	f.Uint8("channels", 2, "number of channels")
	f.Uint8("pin-base", 22, "first sampled GPIO")
	f.IntSlice("half-periods", []int{1, 2}, "per-channel square wave half period in sampler cycles")
	f.String("edge-mode", "carry-over", "edge state across captures: carry-over or reset-per-pass")
	f.Bool("trigger", false, "wait for the trigger pin before sampling")
	f.Duration("timeout", 0, "capture timeout (0 waits forever)")
	f.StringP("output", "o", "", "edge log file (default stdout)")
	a.bind(cmd, "cycles", "sim.cycles")
	a.bind(cmd, "samples", "capture.samples")
	a.bind(cmd, "channels", "capture.channels")
	a.bind(cmd, "pin-base", "capture.pin_base")
	a.bind(cmd, "half-periods", "sim.half_periods")
	a.bind(cmd, "edge-mode", "capture.edge_mode")
	a.bind(cmd, "trigger", "capture.trigger")
	a.bind(cmd, "timeout", "capture.timeout")
	a.bind(cmd, "output", "sim.output")
	return cmd
}

// simSignal drives every channel with its own square wave and the trigger pin
// to its level at TriggerAt.
func simSignal(cfg *config.Config) sim.Signal {
	c := cfg.Capture
	signals := make([]sim.Signal, 0, int(c.Channels)+1)
	for i := 0; i < int(c.Channels); i++ {
		hp := 1
		if n := len(cfg.Sim.HalfPeriods); n > 0 {
			hp = cfg.Sim.HalfPeriods[i%n]
		}
		signals = append(signals, sim.Square(c.PinBase+uint8(i), uint64(hp)))
	}
	if c.Trigger && c.TriggerLevel {
		signals = append(signals, sim.Rise(c.TriggerPin, cfg.Sim.TriggerAt))
	}
	return sim.Merge(signals...)
}

func runSim(cmd *cobra.Command, cfg *config.Config) (err error) {
	var out io.Writer = cmd.OutOrStdout()
	if name := cfg.Sim.Output; name != "" && name != "-" {
		f, cerr := os.Create(name)
		if cerr != nil {
			return cerr
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("close %s: %w", name, cerr)
			}
		}()
		out = f
	}
	logger := log.New(cmd.ErrOrStderr(), "pioscope: ", log.LstdFlags)

	sampler := sim.NewSampler(0, simSignal(cfg))
	dma := sim.NewDMA(sampler)
	dma.CyclesPerPoll = cfg.Sim.CyclesPerPoll
	clock := &sim.Clock{Tick: cfg.Sim.Tick}
	indicator := &sim.Indicator{}

	an, err := analyzer.New(analyzer.Hardware{
		Sampler:   sampler,
		Transfer:  dma,
		Clock:     clock,
		Output:    out,
		Indicator: indicator,
		Sleep:     clock.Sleep,
		Logger:    logger,
	}, cfg.Capture)
	if err != nil {
		return err
	}
	for i := 0; i < cfg.Sim.Cycles; i++ {
		if err := an.Cycle(); err != nil {
			return fmt.Errorf("cycle %d: %w", i, err)
		}
		clock.Sleep(cfg.Capture.RearmDelay)
	}
	if err := sampler.Err(); err != nil {
		return err
	}
	logger.Printf("%d cycles, %d sampler cycles, %d indicator updates",
		an.Cycles(), sampler.Cycle(), len(indicator.Colors))
	return nil
}
