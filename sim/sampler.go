// Package sim is a software model of the RP2040 capture hardware: one PIO state
// machine running from its instruction memory, a DMA channel draining its RX
// FIFO, GPIO lines, a clock and a status light. It runs the same programs
// and register images as the silicon, one state machine cycle at a time.
package sim

import (
	"errors"
	"math/bits"

	"github.com/tinygo-org/pioscope/capture"
)

// Simulator errors.
var (
	ErrOutOfProgramSpace = errors.New("sim: out of program space")
	ErrUnknownQueue      = errors.New("sim: transfer source is not a simulated FIFO")
	ErrUnsupported       = errors.New("sim: unsupported instruction")
	ErrBusy              = errors.New("sim: channel busy")
)

const (
	// Register addresses of PIO1 as on the RP2040, used to identify queues.
	pio1Base    = 0x50300000
	pioRXF0     = 0x20
	dreqPIO1RX0 = 12

	fifoDepth = 4
)

// Signal returns the level of all 32 GPIO inputs, one bit per pin, at a
// given state machine cycle.
type Signal func(cycle uint64) uint32

// Sampler models one PIO state machine. It implements capture.Sampler.
type Sampler struct {
	// Input drives the GPIO levels seen by the state machine. Nil reads all low.
	Input Signal

	index   uint8
	mem     [32]uint16
	space   capture.ProgramMemory
	cfg     capture.SamplerConfig
	enabled bool
	pc      uint8

	isr        uint32
	shiftCount uint8
	fifo       []uint32
	// Instruction written by Exec and not yet completed.
	pending    uint16
	hasPending bool
	rxStall    bool

	cycle uint64
	err   error
}

var (
	_ capture.Sampler          = (*Sampler)(nil)
	_ capture.OverflowReporter = (*Sampler)(nil)
)

// NewSampler returns the model of state machine index of PIO1.
func NewSampler(index uint8, input Signal) *Sampler {
	if index > 3 {
		panic("sim: invalid state machine index")
	}
	return &Sampler{index: index, Input: input, cfg: capture.DefaultSamplerConfig()}
}

// LoadProgram writes instructions into the model's instruction memory.
func (s *Sampler) LoadProgram(instructions []uint16, origin int8) (uint8, error) {
	offset, relocated, ok := s.space.Reserve(instructions, origin)
	if !ok {
		return 0, ErrOutOfProgramSpace
	}
	copy(s.mem[offset:], relocated)
	return offset, nil
}

// Init resets the state machine to the configuration cfg and jumps to initialPC.
func (s *Sampler) Init(initialPC uint8, cfg capture.SamplerConfig) {
	s.SetEnabled(false)
	s.cfg = cfg
	s.ClearFIFOs()
	s.Restart()
	s.pc = initialPC & 0x1f
}

func (s *Sampler) SetEnabled(enabled bool) { s.enabled = enabled }

// Enabled reports whether the state machine is running.
func (s *Sampler) Enabled() bool { return s.enabled }

func (s *Sampler) ClearFIFOs() { s.fifo = s.fifo[:0] }

// Restart clears the input shift register, its counter and any stalled
// instruction.
func (s *Sampler) Restart() {
	s.isr = 0
	s.shiftCount = 0
	s.hasPending = false
}

// Exec executes instr immediately. Jumps take effect at once; any other
// instruction runs on the next cycle and holds the state machine while it
// stalls.
func (s *Sampler) Exec(instr uint16) {
	major, _, arg2 := capture.DecodeInstr(instr)
	if major == 0 {
		s.pc = arg2
		s.hasPending = false
		return
	}
	s.pending, s.hasPending = instr, true
}

// RxQueue returns the RXF register of the state machine and its DREQ.
func (s *Sampler) RxQueue() capture.Queue {
	return capture.Queue{
		Addr: pio1Base + pioRXF0 + 4*uintptr(s.index),
		DREQ: dreqPIO1RX0 + uint32(s.index),
	}
}

// PC returns the program counter.
func (s *Sampler) PC() uint8 { return s.pc }

// Cycle returns the number of cycles the state machine has been clocked.
func (s *Sampler) Cycle() uint64 { return s.cycle }

// Stalled reports whether an executed instruction is holding the state machine.
func (s *Sampler) Stalled() bool { return s.hasPending }

// Err returns the first execution error, e.g. an unsupported instruction.
func (s *Sampler) Err() error { return s.err }

// Pop removes the oldest word from the RX FIFO.
func (s *Sampler) Pop() (uint32, bool) {
	if len(s.fifo) == 0 {
		return 0, false
	}
	w := s.fifo[0]
	s.fifo = append(s.fifo[:0], s.fifo[1:]...)
	return w, true
}

// RxOverflowed reports whether the state machine stalled on a full RX FIFO
// since the last call.
func (s *Sampler) RxOverflowed() bool {
	stalled := s.rxStall
	s.rxStall = false
	return stalled
}

// RxLevel returns the number of words in the RX FIFO.
func (s *Sampler) RxLevel() int { return len(s.fifo) }

// Step clocks the state machine once. It does nothing while disabled.
func (s *Sampler) Step() {
	if !s.enabled || s.err != nil {
		return
	}
	pins := s.pins()
	s.cycle++
	if s.hasPending {
		if s.execute(s.pending, pins) != stall {
			s.hasPending = false
		}
		return
	}
	if s.execute(s.mem[s.pc], pins) == next {
		s.advance()
	}
}

func (s *Sampler) pins() uint32 {
	if s.Input == nil {
		return 0
	}
	return s.Input(s.cycle)
}

func (s *Sampler) advance() {
	_, wrap := s.cfg.Wrap()
	if s.pc == wrap {
		s.pc, _ = s.cfg.Wrap()
		return
	}
	s.pc = (s.pc + 1) & 0x1f
}

type outcome uint8

const (
	stall outcome = iota
	next
	jumped
)

// execute runs instr and reports how the program counter moves on.
func (s *Sampler) execute(instr uint16, pins uint32) outcome {
	major, arg1, arg2 := capture.DecodeInstr(instr)
	switch major {
	case 0x0000: // jmp
		if arg1 != uint8(capture.JmpAlways) {
			s.err = ErrUnsupported
			return stall
		}
		s.pc = arg2
		return jumped
	case 0x2000: // wait
		if arg1&0b11 != 0 {
			s.err = ErrUnsupported
			return stall
		}
		level := (pins>>arg2)&1 != 0
		if level != (arg1&0b100 != 0) {
			return stall
		}
		return next
	case 0x4000: // in
		if capture.InSrc(arg1) != capture.InSrcPins {
			s.err = ErrUnsupported
			return stall
		}
		if !s.in(pins, arg2) {
			return stall
		}
		return next
	}
	s.err = ErrUnsupported
	return stall
}

func (s *Sampler) in(pins uint32, bitCount uint8) bool {
	shiftRight, autoPush, threshold := s.cfg.InShift()
	// A full ISR from an earlier cycle is pushed before shifting.
	if autoPush && uint16(s.shiftCount) >= threshold && !s.push() {
		s.rxStall = true
		return false
	}
	n := uint(bitCount)
	if n == 0 {
		n = 32
	}
	data := bits.RotateLeft32(pins, -int(s.cfg.InBase())) & uint32(uint64(1)<<n-1)
	if shiftRight {
		s.isr = s.isr>>n | data<<(32-n)
	} else {
		s.isr = s.isr<<n | data
	}
	s.shiftCount += uint8(n)
	if s.shiftCount > 32 {
		s.shiftCount = 32
	}
	if autoPush && uint16(s.shiftCount) >= threshold {
		s.push()
	}
	return true
}

func (s *Sampler) push() bool {
	depth := fifoDepth
	if s.cfg.FIFOJoin() == capture.FifoJoinRx {
		depth *= 2
	}
	if len(s.fifo) >= depth {
		return false
	}
	s.fifo = append(s.fifo, s.isr)
	s.isr = 0
	s.shiftCount = 0
	return true
}
