package capture

import "fmt"

// ChannelSet is a contiguous range of GPIO inputs sampled together.
type ChannelSet struct {
	Base  uint8
	Count uint8
}

// Validate checks the channel range fits in the 32 PIO input pins.
func (cs ChannelSet) Validate() error {
	if cs.Count == 0 || cs.Count > UnitWidth || int(cs.Base)+int(cs.Count) > 32 {
		return fmt.Errorf("%w: channels %d..%d", ErrInvalidConfiguration, cs.Base, int(cs.Base)+int(cs.Count)-1)
	}
	return nil
}

// Program is a sampling program installed on a state machine.
type Program struct {
	// Offset of the `in pins` instruction in program memory.
	Offset   uint8
	Channels ChannelSet
	Layout   Layout
	Config   SamplerConfig
}

// Instructions returns the sampling program: a single `in pins, count`
// instruction that wraps onto itself.
func (cs ChannelSet) Instructions() []uint16 {
	return []uint16{EncodeIn(InSrcPins, cs.Count)}
}

// SamplerConfigFor returns the state machine configuration that runs the
// sampling program loaded at offset.
//
// The ISR shifts right and autopushes every BitsPerUnit bits, so when Count
// does not divide 32 each word is pushed early: sample data ends up
// left-justified with zeroes in the low bits. The FIFOs are joined as an 8
// entry RX FIFO since nothing is ever sent to the state machine.
func SamplerConfigFor(offset uint8, cs ChannelSet, layout Layout, div ClkDiv) SamplerConfig {
	cfg := DefaultSamplerConfig()
	cfg.SetInPins(cs.Base)
	cfg.SetWrap(offset, offset)
	cfg.SetClkDiv(div)
	cfg.SetInShift(true, true, uint16(layout.BitsPerUnit))
	cfg.SetFIFOJoin(FifoJoinRx)
	return cfg
}

// Synthesize loads the sampling program for cs into sm and initialises sm
// to loop over it forever. The state machine is left disabled.
func Synthesize(sm Sampler, cs ChannelSet, div ClkDiv) (Program, error) {
	if err := cs.Validate(); err != nil {
		return Program{}, err
	}
	layout, err := NewLayout(int(cs.Count))
	if err != nil {
		return Program{}, err
	}
	offset, err := sm.LoadProgram(cs.Instructions(), -1)
	if err != nil {
		return Program{}, fmt.Errorf("%w: %v", ErrProgramMemoryExhausted, err)
	}
	cfg := SamplerConfigFor(offset, cs, layout, div)
	sm.Init(offset, cfg)
	return Program{
		Offset:   offset,
		Channels: cs,
		Layout:   layout,
		Config:   cfg,
	}, nil
}
