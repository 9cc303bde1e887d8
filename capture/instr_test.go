package capture

import (
	"errors"
	"testing"
)

func TestEncode(t *testing.T) {
	var program = []uint16{
		EncodeIn(InSrcPins, 2),         // in     pins, 2
		EncodeIn(InSrcPins, 32),        // in     pins, 32
		EncodeIn(InSrcX, 5),            // in     x, 5
		EncodeJmp(7, JmpAlways),        // jmp    7
		EncodeJmp(0, JmpXNZeroDec),     // jmp    x--, 0
		EncodeWaitGPIO(true, 21),       // wait   1 gpio, 21
		EncodeWaitGPIO(false, 3),       // wait   0 gpio, 3
		EncodeIn(InSrcNull, 31),        // in     null, 31
		EncodeJmp(31, JmpPinInput),     // jmp    pin, 31
		EncodeWaitGPIO(true, 0),        // wait   1 gpio, 0
		EncodeJmp(12, JmpOSRNotEmpty),  // jmp    !osre, 12
		EncodeIn(InSrcPins, 1),         // in     pins, 1
	}
	var expectedProgram = []uint16{
		0x4002,
		0x4000,
		0x4025,
		0x0007,
		0x0040,
		0x2095,
		0x2003,
		0x407f,
		0x00df,
		0x2080,
		0x00ec,
		0x4001,
	}
	for i := range program {
		if program[i] != expectedProgram[i] {
			t.Errorf("instr %d mismatch got!=expected: %#x != %#x", i, program[i], expectedProgram[i])
		}
	}
}

func TestDecodeInstr(t *testing.T) {
	major, arg1, arg2 := DecodeInstr(EncodeWaitGPIO(true, 21))
	if major != _INSTR_BITS_WAIT || arg1 != 0b100 || arg2 != 21 {
		t.Errorf("wait decode got %#x %#b %d", major, arg1, arg2)
	}
	major, arg1, arg2 = DecodeInstr(EncodeIn(InSrcPins, 3))
	if major != _INSTR_BITS_IN || arg1 != uint8(InSrcPins) || arg2 != 3 {
		t.Errorf("in decode got %#x %d %d", major, arg1, arg2)
	}
}

func TestClkDivFromFrequency(t *testing.T) {
	for _, tc := range []struct {
		freq, cpu uint32
		want      ClkDiv
		wantErr   bool
	}{
		{freq: 125_000_000, cpu: 125_000_000, want: ClkDiv{Whole: 1}},
		{freq: 1_953_125, cpu: 125_000_000, want: ClkDiv{Whole: 64}},
		{freq: 50_000_000, cpu: 125_000_000, want: ClkDiv{Whole: 2, Frac: 128}},
		{freq: 1000, cpu: 125_000_000, wantErr: true},
		{freq: 250_000_000, cpu: 125_000_000, wantErr: true},
		{freq: 0, cpu: 125_000_000, wantErr: true},
	} {
		got, err := ClkDivFromFrequency(tc.freq, tc.cpu)
		if (err != nil) != tc.wantErr {
			t.Errorf("ClkDivFromFrequency(%d, %d) err=%v, wantErr %v", tc.freq, tc.cpu, err, tc.wantErr)
			continue
		}
		if !tc.wantErr && got != tc.want {
			t.Errorf("ClkDivFromFrequency(%d, %d) got!=expected: %+v != %+v", tc.freq, tc.cpu, got, tc.want)
		}
	}
}

func TestClkDivFromPeriod(t *testing.T) {
	// 512ns at 125MHz is 64 cycles.
	got, err := ClkDivFromPeriod(512, 125_000_000)
	if err != nil {
		t.Fatal(err)
	}
	if got != (ClkDiv{Whole: 64}) {
		t.Errorf("got!=expected: %+v != %+v", got, ClkDiv{Whole: 64})
	}
}

func TestProgramMemory(t *testing.T) {
	var m ProgramMemory
	prog := []uint16{EncodeIn(InSrcPins, 2), EncodeJmp(0, JmpAlways)}
	off, relocated, ok := m.Reserve(prog, -1)
	if !ok || off != 30 {
		t.Fatalf("first program at %d ok=%v, want 30", off, ok)
	}
	if relocated[0] != prog[0] || relocated[1] != EncodeJmp(30, JmpAlways) {
		t.Errorf("relocation got %#x", relocated)
	}
	if m.Used() != 0b11<<30 {
		t.Errorf("used mask %#x", m.Used())
	}
	if _, _, ok := m.Reserve(prog, 30); ok {
		t.Error("reserved occupied origin")
	}
	off, _, ok = m.Reserve(prog, 0)
	if !ok || off != 0 {
		t.Errorf("fixed origin got %d ok=%v", off, ok)
	}
	m.Release(30, 2)
	if m.Used() != 0b11 {
		t.Errorf("used mask after release %#x", m.Used())
	}

	// Fill the rest one instruction at a time.
	one := []uint16{EncodeIn(InSrcPins, 1)}
	for i := 0; i < 30; i++ {
		if _, _, ok := m.Reserve(one, -1); !ok {
			t.Fatalf("slot %d: out of space early", i)
		}
	}
	if _, _, ok := m.Reserve(one, -1); ok {
		t.Error("reserved beyond 32 instructions")
	}
}

func TestSynthesizeOutOfSpace(t *testing.T) {
	sm := &fakeSampler{full: true}
	_, err := Synthesize(sm, ChannelSet{Base: 0, Count: 2}, ClkDiv{Whole: 1})
	if !errors.Is(err, ErrProgramMemoryExhausted) {
		t.Errorf("got %v, want ErrProgramMemoryExhausted", err)
	}
}
