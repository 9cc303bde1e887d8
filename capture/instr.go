package capture

import (
	"errors"
	"math"
)

// This file contains the primitives for encoding the PIO instructions the
// sampler runs. Encodings are bit-identical to pioasm output.
const (
	_INSTR_BITS_JMP  = 0x0000
	_INSTR_BITS_WAIT = 0x2000
	_INSTR_BITS_IN   = 0x4000

	// Bit mask for instruction code
	_INSTR_BITS_Msk = 0xe000
)

// InSrc is the source operand of an `in` instruction.
type InSrc uint8

const (
	InSrcPins InSrc = 0
	InSrcX    InSrc = 1
	InSrcY    InSrc = 2
	InSrcNull InSrc = 3
	InSrcISR  InSrc = 6
	InSrcOSR  InSrc = 7
)

type JmpCond uint8

const (
	// No condition, always jumps.
	JmpAlways JmpCond = iota
	// Jump if X is zero.
	JmpXZero
	// Jump if X is not zero, prior to decrement of X.
	JmpXNZeroDec
	// Jump if Y is zero.
	JmpYZero
	// Jump if Y is not zero, prior to decrement of Y.
	JmpYNZeroDec
	// Jump if X is not equal to Y.
	JmpXNotEqualY
	// Jump if EXECCTRL_JMP_PIN (state machine configured) is high.
	JmpPinInput
	// Jump if there are remaining bits to shift out of the OSR.
	JmpOSRNotEmpty
)

func encodeInstrAndArgs(instr uint16, arg1 uint8, arg2 uint8) uint16 {
	return instr | (uint16(arg1) << 5) | uint16(arg2&0x1f)
}

// EncodeIn encodes `in src, bitCount`. A bit count of 32 is encoded as 0.
func EncodeIn(src InSrc, bitCount uint8) uint16 {
	return encodeInstrAndArgs(_INSTR_BITS_IN, uint8(src)&7, bitCount)
}

// EncodeJmp encodes `jmp cond, addr` with an absolute address.
func EncodeJmp(addr uint8, cond JmpCond) uint16 {
	return encodeInstrAndArgs(_INSTR_BITS_JMP, uint8(cond&0b111), addr)
}

// EncodeWaitGPIO encodes `wait polarity gpio pin`, which stalls the state
// machine until the absolute GPIO pin reads polarity.
func EncodeWaitGPIO(polarity bool, pin uint8) uint16 {
	flag := boolAsU8(polarity) << 2
	return encodeInstrAndArgs(_INSTR_BITS_WAIT, 0|flag, pin)
}

// DecodeInstr splits an instruction into its major opcode bits and its two
// argument fields. Delay and side-set bits are discarded.
func DecodeInstr(instr uint16) (major uint16, arg1, arg2 uint8) {
	return instr & _INSTR_BITS_Msk, uint8(instr>>5) & 0b111, uint8(instr & 0x1f)
}

// ClkDiv is a 16.8 fixed point PIO clock divider.
//
//	Frequency = clock freq / (Whole + Frac/256)
type ClkDiv struct {
	Whole uint16
	Frac  uint8
}

// ClkDivFromPeriod calculates the divider that gives the state machine a
// cycle period of period nanoseconds with a CPU frequency of cpuFreq Hz.
//
// Prefer using ClkDivFromFrequency if possible for speed and accuracy.
func ClkDivFromPeriod(period, cpuFreq uint32) (ClkDiv, error) {
	//  256*whole + frac = 256*clockfreq*period/1e9
	return splitClkdiv(256 * uint64(period) * uint64(cpuFreq) / uint64(1e9))
}

// ClkDivFromFrequency calculates the divider that gives the state machine a
// cycle frequency of freq Hz with a CPU frequency of cpuFreq Hz.
func ClkDivFromFrequency(freq, cpuFreq uint32) (ClkDiv, error) {
	if freq == 0 {
		return ClkDiv{}, errors.New("ClkDiv: zero frequency")
	}
	//  256*whole + frac = 256*clockfreq / freq
	return splitClkdiv(256 * uint64(cpuFreq) / uint64(freq))
}

func splitClkdiv(clkdiv uint64) (ClkDiv, error) {
	if clkdiv > 256*math.MaxUint16 {
		return ClkDiv{}, errors.New("ClkDiv: too large period or CPU frequency")
	} else if clkdiv < 256 {
		return ClkDiv{}, errors.New("ClkDiv: too small period or CPU frequency")
	}
	return ClkDiv{Whole: uint16(clkdiv / 256), Frac: uint8(clkdiv % 256)}, nil
}

func boolAsU8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
