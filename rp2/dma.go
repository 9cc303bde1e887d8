//go:build rp2040

package rp2

import (
	"device/rp"
	"errors"
	"fmt"
	"runtime"
	"runtime/volatile"
	"time"
	"unsafe"

	"github.com/tinygo-org/pioscope/capture"
)

var (
	errContentionTimeout = errors.New("rp2: DMA contention timeout")
	errEmptyTransfer     = errors.New("rp2: empty DMA transfer")
)

var _DMA = &dmaArbiter{}

type dmaArbiter struct {
	claimedChannels uint16
}

// DMA returns a DMA channel by index, claimed or not.
func DMA(channel uint8) DMAChannel {
	if channel > 11 {
		panic("invalid DMA channel")
	}
	// DMA channels usable on the RP2040. 12 in total.
	var dmaChannels = (*[12]dmaChannelHW)(unsafe.Pointer(rp.DMA))
	return DMAChannel{
		hw:  &dmaChannels[channel],
		arb: _DMA,
		idx: channel,
	}
}

// DMAChannel is one of the 12 RP2040 DMA channels. It implements
// capture.Transfer for peripheral-to-memory word transfers.
type DMAChannel struct {
	hw  *dmaChannelHW
	arb *dmaArbiter
	dl  deadliner
	idx uint8
}

var _ capture.Transfer = DMAChannel{}

// Single DMA channel. See rp.DMA_Type.
type dmaChannelHW struct {
	READ_ADDR   volatile.Register32
	WRITE_ADDR  volatile.Register32
	TRANS_COUNT volatile.Register32
	CTRL_TRIG   volatile.Register32
	_           [12]volatile.Register32 // aliases
}

// TryClaim claims the DMA channel and returns if it succeeded in claiming the channel.
func (ch DMAChannel) TryClaim() bool {
	ch.mustValid()
	if ch.IsClaimed() {
		return false
	}
	ch.arb.claimedChannels |= 1 << ch.idx
	return true
}

// IsClaimed returns true if the DMA channel is currently claimed through software.
func (ch DMAChannel) IsClaimed() bool {
	ch.mustValid()
	return ch.arb.claimedChannels&(1<<ch.idx) != 0
}

// SetTimeout bounds how long Configure waits for a previous transfer and
// how long Abort waits for in-flight words. Zero waits forever.
func (ch *DMAChannel) SetTimeout(timeout time.Duration) { ch.dl.setTimeout(timeout) }

func (ch DMAChannel) mustValid() {
	if ch.hw == nil || ch.arb != _DMA {
		panic("use of uninitialized DMA channel")
	}
}

// Configure points the channel at the fixed register src.Addr and the
// incrementing buffer dst, paced by src.DREQ. The channel is left disabled.
func (ch DMAChannel) Configure(src capture.Queue, dst []uint32) error {
	if len(dst) == 0 {
		return errEmptyTransfer
	}
	// If currently busy we wait until safe to edit hardware registers.
	deadline := ch.dl.newDeadline()
	for ch.Busy() {
		if deadline.expired() {
			return errContentionTimeout
		}
		gosched()
	}

	hw := ch.hw
	hw.CTRL_TRIG.ClearBits(rp.DMA_CH0_CTRL_TRIG_EN_Msk)
	hw.READ_ADDR.Set(uint32(src.Addr))
	hw.WRITE_ADDR.Set(uint32(uintptr(unsafe.Pointer(&dst[0]))))
	hw.TRANS_COUNT.Set(uint32(len(dst)))

	cc := defaultDMAConfig(ch.idx)
	cc.setTREQ_SEL(src.DREQ)
	cc.setReadIncrement(false)
	cc.setWriteIncrement(true)
	// Written through the non-triggering alias so the transfer waits for Start.
	ch.alias1Ctrl().Set(cc.CTRL)
	return nil
}

// Start enables the channel. Any write to CTRL_TRIG with EN set begins the
// configured transfer.
func (ch DMAChannel) Start() {
	ch.hw.CTRL_TRIG.Set(ch.alias1Ctrl().Get() | rp.DMA_CH0_CTRL_TRIG_EN_Msk)
}

func (ch DMAChannel) Busy() bool {
	return ch.hw.CTRL_TRIG.Get()&rp.DMA_CH0_CTRL_TRIG_BUSY != 0
}

// Remaining returns the number of words the channel has yet to transfer.
func (ch DMAChannel) Remaining() int {
	return int(ch.hw.TRANS_COUNT.Get())
}

// Abort aborts the current transfer sequence on the channel and blocks until
// all in-flight transfers have been flushed through the address and data FIFOs.
// After this, it is safe to restart the channel.
func (ch DMAChannel) Abort() {
	// Each bit corresponds to a channel. Writing a 1 aborts whatever transfer
	// sequence is in progress on that channel. The bit will remain high until
	// any in-flight transfers have been flushed through the address and data FIFOs.
	chMask := uint32(1 << ch.idx)
	rp.DMA.CHAN_ABORT.Set(chMask)

	deadline := ch.dl.newDeadline()
	for rp.DMA.CHAN_ABORT.Get()&chMask != 0 {
		if deadline.expired() {
			println("DMA abort timeout")
			break
		}
		gosched()
	}
	ch.hw.CTRL_TRIG.ClearBits(rp.DMA_CH0_CTRL_TRIG_EN_Msk)
}

// AL1_CTRL is CTRL_TRIG without the trigger, at this offset within one
// channel's 64-byte block.
const dmaAL1Ctrl = 0x10

func (ch DMAChannel) alias1Ctrl() *volatile.Register32 {
	return (*volatile.Register32)(unsafe.Pointer(uintptr(unsafe.Pointer(ch.hw)) + dmaAL1Ctrl))
}

type dmaTxSize uint32

const (
	dmaTxSize8 dmaTxSize = iota
	dmaTxSize16
	dmaTxSize32
)

type dmaChannelConfig struct {
	CTRL uint32
}

func defaultDMAConfig(channel uint8) (cc dmaChannelConfig) {
	cc.setChainTo(channel)
	cc.setTREQ_SEL(rp.DMA_CH0_CTRL_TRIG_TREQ_SEL_PERMANENT)
	cc.setReadIncrement(true)
	cc.setTransferDataSize(dmaTxSize32)
	cc.setEnable(false)
	return cc
}

// Select a Transfer Request signal. The channel uses the transfer request signal
// to pace its data transfer rate. 0x0 to 0x3a -> select DREQ n as TREQ
func (cc *dmaChannelConfig) setTREQ_SEL(dreq uint32) {
	cc.CTRL = (cc.CTRL & ^uint32(rp.DMA_CH0_CTRL_TRIG_TREQ_SEL_Msk)) | (uint32(dreq) << rp.DMA_CH0_CTRL_TRIG_TREQ_SEL_Pos)
}

func (cc *dmaChannelConfig) setChainTo(chainTo uint8) {
	cc.CTRL = (cc.CTRL & ^uint32(rp.DMA_CH0_CTRL_TRIG_CHAIN_TO_Msk)) | (uint32(chainTo) << rp.DMA_CH0_CTRL_TRIG_CHAIN_TO_Pos)
}

func (cc *dmaChannelConfig) setTransferDataSize(size dmaTxSize) {
	cc.CTRL = (cc.CTRL & ^uint32(rp.DMA_CH0_CTRL_TRIG_DATA_SIZE_Msk)) | (uint32(size) << rp.DMA_CH0_CTRL_TRIG_DATA_SIZE_Pos)
}

func (cc *dmaChannelConfig) setReadIncrement(incr bool) {
	setBitPos(&cc.CTRL, rp.DMA_CH0_CTRL_TRIG_INCR_READ_Pos, incr)
}

func (cc *dmaChannelConfig) setWriteIncrement(incr bool) {
	setBitPos(&cc.CTRL, rp.DMA_CH0_CTRL_TRIG_INCR_WRITE_Pos, incr)
}

func (cc *dmaChannelConfig) setEnable(enable bool) {
	setBitPos(&cc.CTRL, rp.DMA_CH0_CTRL_TRIG_EN_Pos, enable)
}

func setBitPos(cc *uint32, pos uint32, bit bool) {
	if bit {
		*cc = *cc | (1 << pos)
	} else {
		*cc = *cc & ^(1 << pos) // unset bit.
	}
}

// SetDMABusPriority gives DMA reads and writes priority on the bus fabric so
// captures keep up when the processors are busy.
func SetDMABusPriority() {
	rp.BUSCTRL.BUS_PRIORITY.Set(rp.BUSCTRL_BUS_PRIORITY_DMA_W_Msk | rp.BUSCTRL_BUS_PRIORITY_DMA_R_Msk)
}

func gosched() {
	runtime.Gosched()
}

type deadline struct {
	t time.Time
}

func (dl deadline) expired() bool {
	if dl.t.IsZero() {
		return false
	}
	return time.Since(dl.t) > 0
}

type deadliner struct {
	// timeout is a bitshift value for the timeout.
	timeout uint8
}

func (ch deadliner) newDeadline() deadline {
	var t time.Time
	if ch.timeout != 0 {
		calc := time.Duration(1 << ch.timeout)
		t = time.Now().Add(calc)
	}
	return deadline{t: t}
}

func (ch *deadliner) setTimeout(timeout time.Duration) {
	if timeout <= 0 {
		ch.timeout = 0
		return // No timeout.
	}
	for i := uint8(0); i < 64; i++ {
		calc := time.Duration(1 << i)
		if calc > timeout {
			ch.timeout = i
			return
		}
	}
}

func (ch DMAChannel) String() string {
	return fmt.Sprintf("DMA%d", ch.idx)
}
