package capture

// Register field positions of a PIO state machine (RP2040 datasheet 3.7).
// They are duplicated here so sampler configurations can be built and
// checked without the device package.
const (
	clkdivFracPos = 8
	clkdivIntPos  = 16

	execctrlWrapBottomPos = 7
	execctrlWrapBottomMsk = 0x1f << execctrlWrapBottomPos
	execctrlWrapTopPos    = 12
	execctrlWrapTopMsk    = 0x1f << execctrlWrapTopPos

	shiftctrlAutopushPos    = 16
	shiftctrlAutopushMsk    = 1 << shiftctrlAutopushPos
	shiftctrlAutopullPos    = 17
	shiftctrlAutopullMsk    = 1 << shiftctrlAutopullPos
	shiftctrlInShiftdirPos  = 18
	shiftctrlInShiftdirMsk  = 1 << shiftctrlInShiftdirPos
	shiftctrlOutShiftdirPos = 19
	shiftctrlOutShiftdirMsk = 1 << shiftctrlOutShiftdirPos
	shiftctrlPushThreshPos  = 20
	shiftctrlPushThreshMsk  = 0x1f << shiftctrlPushThreshPos
	shiftctrlPullThreshPos  = 25
	shiftctrlPullThreshMsk  = 0x1f << shiftctrlPullThreshPos
	shiftctrlFjoinTxPos     = 30
	shiftctrlFjoinTxMsk     = 1 << shiftctrlFjoinTxPos
	shiftctrlFjoinRxMsk     = 1 << 31

	pinctrlInBasePos = 15
	pinctrlInBaseMsk = 0x1f << pinctrlInBasePos
)

// SamplerConfig holds the register images for one PIO state machine. The field
// layout matches the CLKDIV, EXECCTRL, SHIFTCTRL and PINCTRL registers so a
// backend can copy it into hardware as is.
type SamplerConfig struct {
	// Clock divisor register.
	//  Frequency = clock freq / (CLKDIV_INT + CLKDIV_FRAC / 256)
	ClkDiv uint32
	// Execution/behavioural settings.
	ExecCtrl uint32
	// Control behaviour of the input/output shift registers.
	ShiftCtrl uint32
	// State machine pin control.
	PinCtrl uint32
}

// DefaultSamplerConfig returns the reset configuration of a state machine,
// mirroring pio_get_default_sm_config in the c-sdk.
func DefaultSamplerConfig() SamplerConfig {
	cfg := SamplerConfig{}
	cfg.SetClkDivIntFrac(1, 0)
	cfg.SetWrap(0, 31)
	cfg.SetInShift(true, false, 32)
	cfg.SetOutShift(true, false, 32)
	return cfg
}

// SetClkDivIntFrac sets the clock divider from a whole and fractional part.
func (cfg *SamplerConfig) SetClkDivIntFrac(whole uint16, frac uint8) {
	cfg.ClkDiv = uint32(frac)<<clkdivFracPos | uint32(whole)<<clkdivIntPos
}

// SetClkDiv sets the clock divider.
func (cfg *SamplerConfig) SetClkDiv(div ClkDiv) { cfg.SetClkDivIntFrac(div.Whole, div.Frac) }

// ClkDivider returns the configured clock divider.
func (cfg SamplerConfig) ClkDivider() ClkDiv {
	return ClkDiv{Whole: uint16(cfg.ClkDiv >> clkdivIntPos), Frac: uint8(cfg.ClkDiv >> clkdivFracPos)}
}

// SetWrap sets the wrapping configuration: after executing the instruction at
// wrap the program counter continues at wrapTarget.
func (cfg *SamplerConfig) SetWrap(wrapTarget uint8, wrap uint8) {
	cfg.ExecCtrl = (cfg.ExecCtrl &^ uint32(execctrlWrapTopMsk|execctrlWrapBottomMsk)) |
		uint32(wrapTarget&0x1f)<<execctrlWrapBottomPos |
		uint32(wrap&0x1f)<<execctrlWrapTopPos
}

// Wrap returns the wrap target and wrap source.
func (cfg SamplerConfig) Wrap() (wrapTarget, wrap uint8) {
	return uint8(cfg.ExecCtrl>>execctrlWrapBottomPos) & 0x1f, uint8(cfg.ExecCtrl>>execctrlWrapTopPos) & 0x1f
}

// SetInShift sets the 'in' shifting parameters.
//   - shiftRight is true if ISR shift direction is right, false if left.
//   - autoPush pushes the ISR to the RX FIFO once pushThreshold bits were shifted in.
//   - pushThreshold is in 1..32; 32 is encoded as 0.
func (cfg *SamplerConfig) SetInShift(shiftRight bool, autoPush bool, pushThreshold uint16) {
	cfg.ShiftCtrl = cfg.ShiftCtrl&^uint32(shiftctrlInShiftdirMsk|shiftctrlAutopushMsk|shiftctrlPushThreshMsk) |
		boolToBit(shiftRight)<<shiftctrlInShiftdirPos |
		boolToBit(autoPush)<<shiftctrlAutopushPos |
		uint32(pushThreshold&0x1f)<<shiftctrlPushThreshPos
}

// InShift returns the 'in' shifting parameters. The threshold is decoded to 1..32.
func (cfg SamplerConfig) InShift() (shiftRight, autoPush bool, pushThreshold uint16) {
	pushThreshold = uint16(cfg.ShiftCtrl>>shiftctrlPushThreshPos) & 0x1f
	if pushThreshold == 0 {
		pushThreshold = 32
	}
	return cfg.ShiftCtrl&shiftctrlInShiftdirMsk != 0, cfg.ShiftCtrl&shiftctrlAutopushMsk != 0, pushThreshold
}

// SetOutShift sets the 'out' shifting parameters. The sampler never shifts
// out; this only exists to reproduce the reset configuration.
func (cfg *SamplerConfig) SetOutShift(shiftRight bool, autoPull bool, pullThreshold uint16) {
	cfg.ShiftCtrl = cfg.ShiftCtrl&^uint32(shiftctrlOutShiftdirMsk|shiftctrlAutopullMsk|shiftctrlPullThreshMsk) |
		boolToBit(shiftRight)<<shiftctrlOutShiftdirPos |
		boolToBit(autoPull)<<shiftctrlAutopullPos |
		uint32(pullThreshold&0x1f)<<shiftctrlPullThreshPos
}

// SetInPins sets the lowest-numbered pin an `in pins` instruction reads.
func (cfg *SamplerConfig) SetInPins(base uint8) {
	if base >= 32 {
		panic("capture:bad pin")
	}
	cfg.PinCtrl = cfg.PinCtrl&^uint32(pinctrlInBaseMsk) | uint32(base)<<pinctrlInBasePos
}

// InBase returns the configured `in pins` base.
func (cfg SamplerConfig) InBase() uint8 { return uint8(cfg.PinCtrl>>pinctrlInBasePos) & 0x1f }

type FifoJoin uint8

const (
	// FifoJoinNone is the default FIFO joining configuration. The RX and TX FIFOs are separate and of length 4 each.
	FifoJoinNone FifoJoin = iota
	// FifoJoinTx joins the RX and TX FIFOs into a single TX FIFO of depth 8.
	FifoJoinTx
	// FifoJoinRx joins the RX and TX FIFOs into a single RX FIFO of depth 8.
	FifoJoinRx
)

// SetFIFOJoin sets up the FIFO joining.
func (cfg *SamplerConfig) SetFIFOJoin(join FifoJoin) {
	if join > FifoJoinRx {
		panic("SetFIFOJoin: join")
	}
	cfg.ShiftCtrl = cfg.ShiftCtrl&^uint32(shiftctrlFjoinTxMsk|shiftctrlFjoinRxMsk) |
		uint32(join)<<shiftctrlFjoinTxPos
}

// FIFOJoin returns the FIFO joining configuration.
func (cfg SamplerConfig) FIFOJoin() FifoJoin {
	return FifoJoin(cfg.ShiftCtrl>>shiftctrlFjoinTxPos) & 0b11
}

func boolToBit(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
