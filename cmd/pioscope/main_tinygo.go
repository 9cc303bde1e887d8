//go:build tinygo && rp2040

package main

import (
	"context"
	"errors"
	"log"
	"machine"
	"time"

	"github.com/tinygo-org/pioscope/analyzer"
	"github.com/tinygo-org/pioscope/capture"
	"github.com/tinygo-org/pioscope/rp2"
)

// QT Py RP2040 wiring.
const (
	neopixelPin      = machine.GPIO12
	neopixelPowerPin = machine.GPIO11
	// DMA channel 0 is left to the runtime.
	dmaChannel = 1
)

func main() {
	logger := log.New(machine.Serial, "", 0)
	cfg := analyzer.DefaultConfig()
	cfg.CPUFreq = machine.CPUFrequency()

	button := machine.Pin(cfg.ButtonPin)
	button.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	for i := uint8(0); i < cfg.Channels; i++ {
		machine.Pin(cfg.PinBase + i).Configure(machine.PinConfig{Mode: machine.PinInput})
	}

	// Let the DMA shove the processors out of the way on the bus.
	rp2.SetDMABusPriority()

	sm, err := rp2.PIO1.Claim()
	if err != nil {
		halt(logger, err)
	}
	dma := rp2.DMA(dmaChannel)
	if !dma.TryClaim() {
		halt(logger, errors.New("DMA channel in use"))
	}
	dma.SetTimeout(time.Second)
	logger.Printf("pioscope: capturing through %s", dma)

	an, err := analyzer.New(analyzer.Hardware{
		Sampler:   sm,
		Transfer:  dma,
		Clock:     capture.NewSystemClock(),
		Button:    button,
		Output:    machine.Serial,
		Indicator: rp2.NewIndicator(neopixelPin, neopixelPowerPin),
		Logger:    logger,
	}, cfg)
	if err != nil {
		halt(logger, err)
	}
	an.Run(context.Background())
}

// halt reports a startup failure forever. There is no way to continue
// without a capture buffer or program.
func halt(logger *log.Logger, err error) {
	for {
		logger.Printf("pioscope: fatal: %v", err)
		time.Sleep(time.Second)
	}
}
