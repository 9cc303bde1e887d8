//go:build rp2040

// Package rp2 drives the RP2040 peripherals used for capture: PIO state
// machines, DMA channels, the bus fabric priority and the WS2812 status LED.
package rp2

import (
	"device/rp"
	"errors"
	"runtime/volatile"
	"unsafe"

	"github.com/tinygo-org/pioscope/capture"
)

// The two PIO blocks.
var (
	PIO0 = &Block{regs: rp.PIO0}
	PIO1 = &Block{regs: rp.PIO1}
)

var (
	ErrOutOfProgramSpace = errors.New("rp2: out of program space")
	ErrNoFreeSampler     = errors.New("rp2: all state machines claimed")
)

// Block is one PIO block: 32 words of shared instruction memory and four
// state machines.
type Block struct {
	regs *rp.PIO0_Type
	mem  capture.ProgramMemory
	// one bit per claimed state machine
	claimed uint8
}

// smRegs is the register window of one state machine, starting at SMx_CLKDIV.
type smRegs struct {
	clkdiv    volatile.Register32
	execctrl  volatile.Register32
	shiftctrl volatile.Register32
	addr      volatile.Register32
	instr     volatile.Register32
	pinctrl   volatile.Register32
}

func (b *Block) index() uint32 {
	if b.regs == rp.PIO1 {
		return 1
	}
	return 0
}

// Claim reserves the first free state machine of b.
func (b *Block) Claim() (*Sampler, error) {
	for i := uint8(0); i < 4; i++ {
		if b.claimed&(1<<i) == 0 {
			b.claimed |= 1 << i
			return b.sampler(i), nil
		}
	}
	return nil, ErrNoFreeSampler
}

func (b *Block) sampler(i uint8) *Sampler {
	window := (*[4]smRegs)(unsafe.Pointer(&b.regs.SM0_CLKDIV))
	return &Sampler{block: b, idx: i, regs: &window[i]}
}

// load reserves room for instrs and writes them, relocated, to instruction
// memory.
func (b *Block) load(instrs []uint16, origin int8) (uint8, error) {
	offset, relocated, ok := b.mem.Reserve(instrs, origin)
	if !ok {
		return 0, ErrOutOfProgramSpace
	}
	// INSTR_MEMn are 32-bit write-only registers; only the low half is used.
	imem := (*[32]volatile.Register32)(unsafe.Pointer(&b.regs.INSTR_MEM0))
	for i, instr := range relocated {
		imem[int(offset)+i].Set(uint32(instr))
	}
	return offset, nil
}

// Peripheral registers have atomic aliases 4kB apart: XOR, set, then clear
// on write.
const (
	aliasXOR   = 0x1000
	aliasSet   = 0x2000
	aliasClear = 0x3000
)

func alias(reg *volatile.Register32, offset uintptr) *volatile.Register32 {
	return (*volatile.Register32)(unsafe.Pointer(uintptr(unsafe.Pointer(reg)) | offset))
}
