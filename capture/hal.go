package capture

import "time"

// Sampler is a PIO state machine able to run the sampling program.
type Sampler interface {
	// LoadProgram copies instructions into program memory and returns the
	// offset they were loaded at. origin is the required offset or -1 if the
	// program is relocatable.
	LoadProgram(instructions []uint16, origin int8) (offset uint8, err error)
	// Init halts the state machine, applies cfg and points it at initialPC.
	Init(initialPC uint8, cfg SamplerConfig)
	SetEnabled(enabled bool)
	// ClearFIFOs discards the contents of both FIFOs.
	ClearFIFOs()
	// Restart clears internal state such as the ISR shift counter.
	Restart()
	// Exec immediately executes instr. If instr stalls, the state machine
	// stays on it until it completes.
	Exec(instr uint16)
	// RxQueue describes the RX FIFO register captured words are read from.
	RxQueue() Queue
}

// Queue identifies a fixed peripheral register and the data request signal
// that fires while it holds data.
type Queue struct {
	Addr uintptr
	DREQ uint32
}

// Transfer is a bulk transfer engine channel, e.g. a DMA channel.
type Transfer interface {
	// Configure prepares a transfer of len(dst) words from the fixed
	// register src into dst, paced by src.DREQ. It does not start it.
	Configure(src Queue, dst []uint32) error
	// Start launches the configured transfer.
	Start()
	// Busy reports whether the transfer still has words outstanding.
	Busy() bool
	// Remaining returns the number of words still to be transferred.
	Remaining() int
	// Abort stops the transfer and waits for in-flight words to drain.
	Abort()
}

// Pin is a digital input or output line. machine.Pin satisfies it.
type Pin interface {
	Get() bool
	Set(high bool)
}

// Clock is a monotonic time source, e.g. time since boot.
type Clock interface {
	Now() time.Duration
}

// SystemClock reports the time elapsed since it was created.
type SystemClock struct {
	epoch time.Time
}

// NewSystemClock returns a clock whose epoch is the current instant.
func NewSystemClock() SystemClock { return SystemClock{epoch: time.Now()} }

func (c SystemClock) Now() time.Duration { return time.Since(c.epoch) }

// OverflowReporter is implemented by samplers that can tell whether their RX
// FIFO filled up since the last call. A capture that overflowed is missing
// samples.
type OverflowReporter interface {
	RxOverflowed() bool
}
