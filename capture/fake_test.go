package capture

import (
	"errors"
	"time"
)

// fakeSampler records the calls made to it.
type fakeSampler struct {
	full    bool
	calls   []string
	execs   []uint16
	cfg     SamplerConfig
	pc      uint8
	enabled bool
}

func (f *fakeSampler) LoadProgram(instructions []uint16, origin int8) (uint8, error) {
	f.calls = append(f.calls, "load")
	if f.full {
		return 0, errors.New("fake: full")
	}
	return 32 - uint8(len(instructions)), nil
}

func (f *fakeSampler) Init(initialPC uint8, cfg SamplerConfig) {
	f.calls = append(f.calls, "init")
	f.pc, f.cfg = initialPC, cfg
}

func (f *fakeSampler) SetEnabled(enabled bool) {
	if enabled {
		f.calls = append(f.calls, "enable")
	} else {
		f.calls = append(f.calls, "disable")
	}
	f.enabled = enabled
}

func (f *fakeSampler) ClearFIFOs() { f.calls = append(f.calls, "clear") }
func (f *fakeSampler) Restart()    { f.calls = append(f.calls, "restart") }

func (f *fakeSampler) Exec(instr uint16) {
	f.calls = append(f.calls, "exec")
	f.execs = append(f.execs, instr)
}

func (f *fakeSampler) RxQueue() Queue { return Queue{Addr: 0x50300020, DREQ: 12} }

// fakeTransfer completes after busyPolls calls to Busy. A negative count
// never completes.
type fakeTransfer struct {
	busyPolls int
	src       Queue
	dst       []uint32
	started   bool
	aborted   bool
	calls     []string
}

func (f *fakeTransfer) Configure(src Queue, dst []uint32) error {
	f.calls = append(f.calls, "configure")
	f.src, f.dst = src, dst
	return nil
}

func (f *fakeTransfer) Start() {
	f.calls = append(f.calls, "start")
	f.started = true
}

func (f *fakeTransfer) Busy() bool {
	if !f.started || f.aborted {
		return false
	}
	if f.busyPolls == 0 {
		return false
	}
	if f.busyPolls > 0 {
		f.busyPolls--
	}
	return true
}

func (f *fakeTransfer) Remaining() int {
	if f.busyPolls < 0 {
		return len(f.dst)
	}
	return f.busyPolls
}

func (f *fakeTransfer) Abort() {
	f.calls = append(f.calls, "abort")
	f.aborted = true
}

// stepClock advances by step on every read.
type stepClock struct {
	now, step time.Duration
}

func (c *stepClock) Now() time.Duration {
	c.now += c.step
	return c.now
}
