// Package monitor reads the edge log a capture device prints over its USB
// serial port.
package monitor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"go.bug.st/serial"

	"github.com/tinygo-org/pioscope/present"
)

// PortOptions describes the serial connection parameters. USB CDC ignores
// them but USB-serial bridges do not.
type PortOptions struct {
	BaudRate int    `mapstructure:"baud_rate"`
	DataBits int    `mapstructure:"data_bits"`
	StopBits int    `mapstructure:"stop_bits"`
	Parity   string `mapstructure:"parity"`
}

// parities maps every accepted spelling of a parity setting to its canonical
// letter.
var parities = map[string]string{
	"": "N", "N": "N", "NONE": "N",
	"E": "E", "EVEN": "E",
	"O": "O", "ODD": "O",
}

var serialParity = map[string]serial.Parity{
	"N": serial.NoParity,
	"E": serial.EvenParity,
	"O": serial.OddParity,
}

var serialStopBits = map[int]serial.StopBits{
	1: serial.OneStopBit,
	2: serial.TwoStopBits,
}

// Normalize fills unset fields with 115200 8N1 and rejects settings a port
// cannot be opened with.
func (o PortOptions) Normalize() (PortOptions, error) {
	if o.BaudRate <= 0 {
		o.BaudRate = 115200
	}
	if o.DataBits == 0 {
		o.DataBits = 8
	}
	if o.StopBits == 0 {
		o.StopBits = 1
	}
	parity, knownParity := parities[strings.ToUpper(strings.TrimSpace(o.Parity))]
	_, knownStop := serialStopBits[o.StopBits]
	switch {
	case o.DataBits < 5 || o.DataBits > 8:
		return o, fmt.Errorf("monitor: %d data bits, want 5 to 8", o.DataBits)
	case !knownStop:
		return o, fmt.Errorf("monitor: %d stop bits, want 1 or 2", o.StopBits)
	case !knownParity:
		return o, fmt.Errorf("monitor: parity %q, want N, E or O", o.Parity)
	}
	o.Parity = parity
	return o, nil
}

// SerialMode returns the go.bug.st/serial mode for the normalized options.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	n, err := o.Normalize()
	if err != nil {
		return nil, err
	}
	return &serial.Mode{
		BaudRate: n.BaudRate,
		DataBits: n.DataBits,
		StopBits: serialStopBits[n.StopBits],
		Parity:   serialParity[n.Parity],
	}, nil
}

// Open opens the serial port at path.
func Open(path string, opts PortOptions) (serial.Port, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return port, nil
}

// Ports lists the serial ports present on the host.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}

// Monitor parses edge records from a line-oriented stream.
type Monitor struct {
	Source io.Reader
	// Logger reports lines that are not records. Nil discards them.
	Logger *log.Logger

	records int
	skipped int
}

// Records returns how many records were delivered.
func (m *Monitor) Records() int { return m.records }

// Skipped returns how many non-empty lines were not records.
func (m *Monitor) Skipped() int { return m.skipped }

// Run calls fn for every record read until the source ends, fn fails or ctx
// is done. If the source is an io.Closer it is closed when ctx is done to
// unblock a pending read.
func (m *Monitor) Run(ctx context.Context, fn func(present.Record) error) error {
	if c, ok := m.Source.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() { c.Close() })
		defer stop()
	}
	scan := bufio.NewScanner(m.Source)
	for scan.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scan.Text())
		if line == "" {
			continue
		}
		rec, err := present.ParseRecord(line)
		if err != nil {
			m.skipped++
			if m.Logger != nil {
				m.Logger.Printf("skipping line %q: %v", line, err)
			}
			continue
		}
		m.records++
		if err := fn(rec); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return scan.Err()
}
