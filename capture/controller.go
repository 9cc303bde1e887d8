package capture

import (
	"fmt"
	"runtime"
	"strconv"
	"time"
)

// State is the lifecycle state of a Controller.
type State uint8

const (
	Idle State = iota
	Armed
	Running
	Complete
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Running:
		return "running"
	case Complete:
		return "complete"
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

// ControllerOptions tunes a Controller.
type ControllerOptions struct {
	// Timeout bounds Wait. Zero waits forever.
	Timeout time.Duration
	// Trigger is used by Arm when it is passed a nil trigger. Defaults to
	// ImmediateStart.
	Trigger Trigger
}

// Controller runs capture cycles of a synthesized sampling program: it arms
// the state machine and the transfer channel, waits for the transfer to
// complete and hands out the filled buffer.
//
// A Controller is not safe for concurrent use.
type Controller struct {
	sm    Sampler
	dma   Transfer
	clock Clock
	prog  Program
	opts  ControllerOptions

	state State
	buf   []uint32
}

// NewController returns an idle controller for prog, which must have been
// synthesized on sm.
func NewController(sm Sampler, dma Transfer, clock Clock, prog Program, opts ControllerOptions) *Controller {
	if opts.Trigger == nil {
		opts.Trigger = ImmediateStart{}
	}
	return &Controller{
		sm:    sm,
		dma:   dma,
		clock: clock,
		prog:  prog,
		opts:  opts,
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State { return c.state }

// Program returns the sampling program the controller runs.
func (c *Controller) Program() Program { return c.prog }

// Arm starts a capture of units words into dst and returns immediately.
// The controller must be idle or have completed its previous capture.
// A nil trig selects the default trigger.
func (c *Controller) Arm(dst []uint32, units int, trig Trigger) error {
	if c.state != Idle && c.state != Complete {
		return fmt.Errorf("%w: arm while %s", ErrInvalidState, c.state)
	}
	if units <= 0 || units > len(dst) {
		return fmt.Errorf("%w: %d units into a %d word buffer", ErrInvalidConfiguration, units, len(dst))
	}
	if trig == nil {
		trig = c.opts.Trigger
	}

	// Partial ISR contents and the shift counter survive a disable, so they
	// are cleared along with the FIFO.
	c.sm.SetEnabled(false)
	c.sm.ClearFIFOs()
	c.sm.Restart()
	c.sm.Exec(EncodeJmp(c.prog.Offset, JmpAlways))
	c.buf = nil
	c.state = Armed

	dst = dst[:units]
	if err := c.dma.Configure(c.sm.RxQueue(), dst); err != nil {
		c.state = Idle
		return err
	}
	c.dma.Start()
	trig.Apply(c.sm)
	c.sm.SetEnabled(true)
	c.buf = dst
	c.state = Running
	return nil
}

// Wait blocks until the running transfer completes. If the controller has a
// timeout and it expires first, the capture is abandoned, the controller
// returns to Idle and the error wraps ErrTransferTimeout.
func (c *Controller) Wait() error {
	if c.state != Running {
		return fmt.Errorf("%w: wait while %s", ErrInvalidState, c.state)
	}
	var deadline time.Duration
	if c.opts.Timeout > 0 {
		deadline = c.clock.Now() + c.opts.Timeout
	}
	for c.dma.Busy() {
		if deadline != 0 && c.clock.Now() >= deadline {
			remaining, total := c.dma.Remaining(), len(c.buf)
			c.dma.Abort()
			c.sm.SetEnabled(false)
			c.buf = nil
			c.state = Idle
			return fmt.Errorf("%w: %d of %d words outstanding after %s",
				ErrTransferTimeout, remaining, total, c.opts.Timeout)
		}
		gosched()
	}
	c.sm.SetEnabled(false)
	c.state = Complete
	return nil
}

// Buffer returns the words filled by the last completed capture.
func (c *Controller) Buffer() ([]uint32, error) {
	if c.state != Complete {
		return nil, fmt.Errorf("%w: buffer read while %s", ErrInvalidState, c.state)
	}
	return c.buf, nil
}

func gosched() {
	runtime.Gosched()
}
