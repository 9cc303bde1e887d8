package capture

// Trigger decides when a started capture begins filling the buffer. Apply is
// called on the stopped state machine after the transfer has been started
// and before the state machine is enabled.
type Trigger interface {
	Apply(sm Sampler)
}

// ImmediateStart begins sampling as soon as the state machine is enabled.
type ImmediateStart struct{}

func (ImmediateStart) Apply(Sampler) {}

// WaitForLevel stalls the state machine on `wait Level gpio Pin` until the
// pin reads Level, then falls through into the sampling loop.
type WaitForLevel struct {
	Pin   uint8
	Level bool
}

func (t WaitForLevel) Apply(sm Sampler) {
	sm.Exec(EncodeWaitGPIO(t.Level, t.Pin))
}
