package sim

import (
	"fmt"

	"github.com/tinygo-org/pioscope/capture"
)

// DefaultCyclesPerPoll is how many state machine cycles elapse between two
// Busy polls when DMA.CyclesPerPoll is zero.
const DefaultCyclesPerPoll = 64

// DMA models a DMA channel paced by a simulated state machine's RX DREQ.
// Hardware runs concurrently with the CPU; the model instead clocks the
// state machine every time software polls Busy, which keeps runs
// deterministic. It implements capture.Transfer.
type DMA struct {
	Source *Sampler
	// CyclesPerPoll is the number of state machine cycles per Busy call.
	CyclesPerPoll int

	dst     []uint32
	n       int
	running bool
	aborts  int
}

var _ capture.Transfer = (*DMA)(nil)

// NewDMA returns a channel that can read from src's RX FIFO.
func NewDMA(src *Sampler) *DMA {
	return &DMA{Source: src}
}

// Configure prepares a transfer from the queue src into dst.
func (d *DMA) Configure(src capture.Queue, dst []uint32) error {
	if d.running {
		return ErrBusy
	}
	if d.Source == nil || src != d.Source.RxQueue() {
		return fmt.Errorf("%w: %#x", ErrUnknownQueue, src.Addr)
	}
	d.dst = dst
	d.n = 0
	return nil
}

func (d *DMA) Start() {
	d.n = 0
	d.running = len(d.dst) > 0
}

// Busy runs the model for one poll interval and reports whether words are
// still outstanding.
func (d *DMA) Busy() bool {
	if !d.running {
		return false
	}
	cycles := d.CyclesPerPoll
	if cycles <= 0 {
		cycles = DefaultCyclesPerPoll
	}
	for i := 0; i < cycles && d.running; i++ {
		d.Source.Step()
		d.drain()
	}
	return d.running
}

func (d *DMA) drain() {
	for d.n < len(d.dst) {
		w, ok := d.Source.Pop()
		if !ok {
			return
		}
		d.dst[d.n] = w
		d.n++
	}
	d.running = false
}

func (d *DMA) Remaining() int { return len(d.dst) - d.n }

func (d *DMA) Abort() {
	d.running = false
	d.aborts++
}

// Aborts returns how many times a transfer was aborted.
func (d *DMA) Aborts() int { return d.aborts }
