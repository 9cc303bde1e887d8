package capture

import (
	"fmt"
	"math"
)

// UnitWidth is the width in bits of the PIO input shift register, the RX FIFO
// entries and therefore of every capture buffer unit.
const UnitWidth = 32

// Layout describes how samples are packed into buffer units.
//
// Each unit holds BitsPerUnit meaningful bits left-justified. When the channel
// count does not divide UnitWidth the low UnitWidth-BitsPerUnit bits are zero padding.
type Layout struct {
	UnitWidth   int
	BitsPerUnit int
}

// Padding returns the number of zero padding bits at the low end of every unit.
func (l Layout) Padding() int { return l.UnitWidth - l.BitsPerUnit }

// BitsPerUnit returns how many bits of a unitWidth-bit word are used when
// sampling channels pins per shift. If channels divides unitWidth the whole
// word is used, otherwise the push happens early and the remainder is wasted.
func BitsPerUnit(channels, unitWidth int) (int, error) {
	if unitWidth <= 0 || channels <= 0 || channels > unitWidth {
		return 0, fmt.Errorf("%w: %d channels in a %d-bit unit", ErrInvalidConfiguration, channels, unitWidth)
	}
	return unitWidth - unitWidth%channels, nil
}

// BufferUnits returns the number of units needed to hold samples samples of
// channels channels each. The last unit may be only partially filled.
func BufferUnits(samples, channels, unitWidth int) (int, error) {
	bpu, err := BitsPerUnit(channels, unitWidth)
	if err != nil {
		return 0, err
	}
	if samples <= 0 {
		return 0, fmt.Errorf("%w: sample count %d", ErrInvalidConfiguration, samples)
	}
	if samples > (math.MaxInt32-bpu)/channels {
		return 0, fmt.Errorf("%w: %d samples overflow", ErrInvalidConfiguration, samples)
	}
	totalBits := samples * channels
	return (totalBits + bpu - 1) / bpu, nil
}

// NewLayout returns the packing layout for channels channels in UnitWidth-bit units.
func NewLayout(channels int) (Layout, error) {
	bpu, err := BitsPerUnit(channels, UnitWidth)
	if err != nil {
		return Layout{}, err
	}
	return Layout{UnitWidth: UnitWidth, BitsPerUnit: bpu}, nil
}

// NewBuffer allocates a capture buffer of units words. limit is the largest
// buffer the caller is willing to dedicate to capture; zero means no limit.
func NewBuffer(units, limit int) ([]uint32, error) {
	if units <= 0 {
		return nil, fmt.Errorf("%w: %d units requested", ErrAllocationFailure, units)
	}
	if limit > 0 && units > limit {
		return nil, fmt.Errorf("%w: %d units exceeds budget of %d", ErrAllocationFailure, units, limit)
	}
	return make([]uint32, units), nil
}
