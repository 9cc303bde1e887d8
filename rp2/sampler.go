//go:build rp2040

package rp2

import (
	"device/rp"
	"unsafe"

	"github.com/tinygo-org/pioscope/capture"
)

// DREQ of PIO0 RX FIFO 0. Each block has four TX then four RX requests.
const (
	dreqPIO0RX0   = 4
	dreqsPerBlock = 8
)

// Sampler is a claimed PIO state machine. It implements capture.Sampler.
type Sampler struct {
	block *Block
	idx   uint8
	regs  *smRegs
}

var _ capture.Sampler = (*Sampler)(nil)

// Release returns the state machine to its block. The program it loaded
// stays in instruction memory.
func (s *Sampler) Release() {
	s.SetEnabled(false)
	s.block.claimed &^= 1 << s.idx
}

func (s *Sampler) LoadProgram(instrs []uint16, origin int8) (uint8, error) {
	return s.block.load(instrs, origin)
}

// Init halts the state machine, writes the configuration registers, clears
// the FIFOs, shift counters and stall flags, and jumps to initialPC.
func (s *Sampler) Init(initialPC uint8, cfg capture.SamplerConfig) {
	s.SetEnabled(false)
	s.regs.clkdiv.Set(cfg.ClkDiv)
	s.regs.execctrl.Set(cfg.ExecCtrl)
	s.regs.shiftctrl.Set(cfg.ShiftCtrl)
	s.regs.pinctrl.Set(cfg.PinCtrl)
	s.ClearFIFOs()

	// FDEBUG flags are write-one-to-clear, one bit per state machine.
	const sticky = 1<<rp.PIO0_FDEBUG_TXOVER_Pos | 1<<rp.PIO0_FDEBUG_RXUNDER_Pos |
		1<<rp.PIO0_FDEBUG_TXSTALL_Pos | 1<<rp.PIO0_FDEBUG_RXSTALL_Pos
	s.block.regs.FDEBUG.Set(sticky << s.idx)

	s.Restart()
	alias(&s.block.regs.CTRL, aliasSet).Set(1 << (rp.PIO0_CTRL_CLKDIV_RESTART_Pos + s.idx))
	s.Exec(capture.EncodeJmp(initialPC, capture.JmpAlways))
}

func (s *Sampler) SetEnabled(enabled bool) {
	bit := uint32(1) << (rp.PIO0_CTRL_SM_ENABLE_Pos + s.idx)
	if enabled {
		alias(&s.block.regs.CTRL, aliasSet).Set(bit)
	} else {
		alias(&s.block.regs.CTRL, aliasClear).Set(bit)
	}
}

// ClearFIFOs flushes both FIFOs. Any change of FJOIN_RX flushes them, so the
// bit is toggled twice.
func (s *Sampler) ClearFIFOs() {
	toggle := alias(&s.regs.shiftctrl, aliasXOR)
	toggle.Set(rp.PIO0_SM0_SHIFTCTRL_FJOIN_RX_Msk)
	toggle.Set(rp.PIO0_SM0_SHIFTCTRL_FJOIN_RX_Msk)
}

// Restart clears the shift counters and any stalled instruction.
func (s *Sampler) Restart() {
	alias(&s.block.regs.CTRL, aliasSet).Set(1 << (rp.PIO0_CTRL_SM_RESTART_Pos + s.idx))
}

func (s *Sampler) Exec(instr uint16) {
	s.regs.instr.Set(uint32(instr))
}

// RxQueue returns the address of RXFn and the DREQ raised while it has data.
func (s *Sampler) RxQueue() capture.Queue {
	rxf := uintptr(unsafe.Pointer(&s.block.regs.RXF0)) + 4*uintptr(s.idx)
	return capture.Queue{
		Addr: rxf,
		DREQ: dreqPIO0RX0 + s.block.index()*dreqsPerBlock + uint32(s.idx),
	}
}

// RxOverflowed reports whether the state machine stalled on a full RX FIFO
// since the last call, i.e. samples were dropped.
func (s *Sampler) RxOverflowed() bool {
	bit := uint32(1) << (rp.PIO0_FDEBUG_RXSTALL_Pos + s.idx)
	stalled := s.block.regs.FDEBUG.Get()&bit != 0
	s.block.regs.FDEBUG.Set(bit)
	return stalled
}
