package sim

import (
	"errors"
	"testing"

	"github.com/tinygo-org/pioscope/capture"
)

// noise is a deterministic pseudo-random level for every pin.
func noise(cycle uint64) uint32 {
	x := uint32(cycle+1) * 2654435761
	return x ^ x>>13 ^ x<<7
}

func TestPackingMatchesDecoder(t *testing.T) {
	const samples = 97
	for count := uint8(1); count <= 32; count++ {
		base := uint8(0)
		if count < 32 {
			base = (count * 5) % (33 - count)
		}
		cs := capture.ChannelSet{Base: base, Count: count}
		sm := NewSampler(2, noise)
		prog, err := capture.Synthesize(sm, cs, capture.ClkDiv{Whole: 1})
		if err != nil {
			t.Fatal(err)
		}
		units, _ := capture.BufferUnits(samples, int(count), capture.UnitWidth)
		buf := make([]uint32, units)
		dma := NewDMA(sm)
		dma.CyclesPerPoll = 1
		if err := dma.Configure(sm.RxQueue(), buf); err != nil {
			t.Fatal(err)
		}
		dma.Start()
		sm.SetEnabled(true)
		for n := 0; dma.Busy(); n++ {
			if n > 100000 {
				t.Fatalf("%d channels: transfer never completed", count)
			}
		}
		if sm.Err() != nil {
			t.Fatal(sm.Err())
		}
		d, err := capture.NewDecoder(buf, prog.Layout, int(count), samples)
		if err != nil {
			t.Fatal(err)
		}
		for ch := 0; ch < int(count); ch++ {
			for i := 0; i < samples; i++ {
				want := noise(uint64(i))>>(int(base)+ch)&1 != 0
				if d.Bit(ch, i) != want {
					t.Fatalf("%d channels from pin %d: bit(%d, %d) got!=expected", count, base, ch, i)
				}
			}
		}
		if pad := prog.Layout.Padding(); pad > 0 {
			for u, w := range buf {
				if w&(1<<pad-1) != 0 {
					t.Errorf("%d channels: unit %d has padding bits set: %#x", count, u, w)
				}
			}
		}
	}
}

func TestFIFOStall(t *testing.T) {
	sm := NewSampler(0, Constant(0xffffffff))
	if _, err := capture.Synthesize(sm, capture.ChannelSet{Count: 32}, capture.ClkDiv{Whole: 1}); err != nil {
		t.Fatal(err)
	}
	sm.SetEnabled(true)
	for i := 0; i < 20; i++ {
		sm.Step()
	}
	// Joined FIFO holds 8 words, plus one full ISR waiting to be pushed.
	if sm.RxLevel() != 8 {
		t.Fatalf("RX level %d, expected 8", sm.RxLevel())
	}
	if sm.Cycle() != 20 {
		t.Errorf("cycle %d", sm.Cycle())
	}
	if !sm.RxOverflowed() || sm.RxOverflowed() {
		t.Error("overflow flag not raised once")
	}
	if w, ok := sm.Pop(); !ok || w != 0xffffffff {
		t.Errorf("Pop() = %#x, %v", w, ok)
	}
	sm.Step()
	if sm.RxLevel() != 8 {
		t.Errorf("RX level %d after draining one word", sm.RxLevel())
	}
}

func TestUnjoinedFIFODepth(t *testing.T) {
	sm := NewSampler(0, Constant(0))
	cfg := capture.SamplerConfigFor(0, capture.ChannelSet{Count: 32}, capture.Layout{UnitWidth: 32, BitsPerUnit: 32}, capture.ClkDiv{Whole: 1})
	cfg.SetFIFOJoin(capture.FifoJoinNone)
	offset, err := sm.LoadProgram([]uint16{capture.EncodeIn(capture.InSrcPins, 32)}, 0)
	if err != nil || offset != 0 {
		t.Fatalf("LoadProgram = %d, %v", offset, err)
	}
	sm.Init(0, cfg)
	sm.SetEnabled(true)
	for i := 0; i < 10; i++ {
		sm.Step()
	}
	if sm.RxLevel() != 4 {
		t.Errorf("RX level %d, expected 4", sm.RxLevel())
	}
}

func TestExecWait(t *testing.T) {
	level := uint32(0)
	sm := NewSampler(0, func(uint64) uint32 { return level })
	prog, err := capture.Synthesize(sm, capture.ChannelSet{Base: 22, Count: 2}, capture.ClkDiv{Whole: 1})
	if err != nil {
		t.Fatal(err)
	}
	sm.Exec(capture.EncodeWaitGPIO(true, 21))
	if !sm.Stalled() {
		t.Fatal("wait is not pending")
	}
	sm.Step()
	if sm.Cycle() != 0 {
		t.Error("disabled state machine was clocked")
	}
	sm.SetEnabled(true)
	for i := 0; i < 50; i++ {
		sm.Step()
	}
	if !sm.Stalled() || sm.RxLevel() != 0 || sm.PC() != prog.Offset {
		t.Fatalf("stalled=%v level=%d pc=%d", sm.Stalled(), sm.RxLevel(), sm.PC())
	}
	level = 1 << 21
	sm.Step()
	if sm.Stalled() {
		t.Error("wait did not complete on a high pin")
	}
	for i := 0; i < 16; i++ {
		sm.Step()
	}
	if sm.RxLevel() != 1 {
		t.Errorf("RX level %d after 16 samples", sm.RxLevel())
	}
}

func TestExecJmp(t *testing.T) {
	sm := NewSampler(0, nil)
	sm.Exec(capture.EncodeWaitGPIO(false, 3))
	sm.Exec(capture.EncodeJmp(7, capture.JmpAlways))
	if sm.PC() != 7 || sm.Stalled() {
		t.Errorf("pc=%d stalled=%v", sm.PC(), sm.Stalled())
	}
}

func TestLoadProgramFull(t *testing.T) {
	sm := NewSampler(0, nil)
	for i := 0; i < 32; i++ {
		if _, err := sm.LoadProgram([]uint16{capture.EncodeIn(capture.InSrcPins, 1)}, -1); err != nil {
			t.Fatalf("load %d: %v", i, err)
		}
	}
	if _, err := sm.LoadProgram([]uint16{capture.EncodeIn(capture.InSrcPins, 1)}, -1); !errors.Is(err, ErrOutOfProgramSpace) {
		t.Errorf("err=%v, expected ErrOutOfProgramSpace", err)
	}
	_, err := capture.Synthesize(sm, capture.ChannelSet{Count: 1}, capture.ClkDiv{Whole: 1})
	if !errors.Is(err, capture.ErrProgramMemoryExhausted) {
		t.Errorf("Synthesize err=%v", err)
	}
}

func TestUnsupportedInstruction(t *testing.T) {
	sm := NewSampler(0, nil)
	// out pins, 1
	if _, err := sm.LoadProgram([]uint16{0x6001}, 0); err != nil {
		t.Fatal(err)
	}
	sm.Init(0, capture.DefaultSamplerConfig())
	sm.SetEnabled(true)
	sm.Step()
	if !errors.Is(sm.Err(), ErrUnsupported) {
		t.Errorf("err=%v", sm.Err())
	}
	c := sm.Cycle()
	sm.Step()
	if sm.Cycle() != c {
		t.Error("faulted state machine kept running")
	}
}

func TestRxQueue(t *testing.T) {
	q := NewSampler(1, nil).RxQueue()
	if q.Addr != 0x50300024 || q.DREQ != 13 {
		t.Errorf("queue %#x dreq %d", q.Addr, q.DREQ)
	}
}

func TestDMAConfigure(t *testing.T) {
	a, b := NewSampler(0, nil), NewSampler(1, nil)
	dma := NewDMA(a)
	if err := dma.Configure(b.RxQueue(), make([]uint32, 4)); !errors.Is(err, ErrUnknownQueue) {
		t.Errorf("foreign queue err=%v", err)
	}
	if err := dma.Configure(a.RxQueue(), make([]uint32, 4)); err != nil {
		t.Fatal(err)
	}
	dma.Start()
	if err := dma.Configure(a.RxQueue(), make([]uint32, 4)); !errors.Is(err, ErrBusy) {
		t.Errorf("configure while running err=%v", err)
	}
	if dma.Remaining() != 4 {
		t.Errorf("remaining %d", dma.Remaining())
	}
	dma.Abort()
	if dma.Busy() || dma.Aborts() != 1 {
		t.Errorf("aborted transfer busy=%v aborts=%d", dma.Busy(), dma.Aborts())
	}
}

func TestSignals(t *testing.T) {
	sq := Square(3, 2)
	for cycle, want := range []uint32{0, 0, 8, 8, 0} {
		if got := sq(uint64(cycle)); got != want {
			t.Errorf("square at %d = %#x", cycle, got)
		}
	}
	m := Merge(Rise(0, 5), Constant(0x10))
	if m(4) != 0x10 || m(5) != 0x11 {
		t.Errorf("merge = %#x, %#x", m(4), m(5))
	}
}

func TestClock(t *testing.T) {
	c := &Clock{Tick: 3}
	c.Sleep(10)
	if c.Now() != 13 || c.Now() != 16 {
		t.Error("clock did not advance by tick")
	}
}
