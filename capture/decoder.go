package capture

import "fmt"

// Waveform is a read-only matrix of decoded samples, indexed by channel and
// sample number.
type Waveform interface {
	Channels() int
	Samples() int
	// Bit returns the value of channel ch at sample i.
	Bit(ch, i int) bool
	// Iter returns a fresh channel-major iterator over every sample.
	Iter() *Iterator
}

// Decoder reads samples back out of a packed capture buffer. It never
// modifies the buffer.
type Decoder struct {
	buf      []uint32
	layout   Layout
	channels int
	samples  int
}

var _ Waveform = (*Decoder)(nil)

// NewDecoder returns a decoder of samples samples of channels channels
// packed in buf with the given layout.
func NewDecoder(buf []uint32, layout Layout, channels, samples int) (*Decoder, error) {
	if layout.UnitWidth <= 0 || layout.UnitWidth > UnitWidth {
		return nil, fmt.Errorf("%w: unit width %d", ErrInvalidConfiguration, layout.UnitWidth)
	}
	// Bit indexes with the layout's BitsPerUnit and the length check below
	// sizes with the packing rule, so the two must agree.
	if bpu, err := BitsPerUnit(channels, layout.UnitWidth); err != nil || bpu != layout.BitsPerUnit {
		return nil, fmt.Errorf("%w: layout %+v for %d channels", ErrInvalidConfiguration, layout, channels)
	}
	units, err := BufferUnits(samples, channels, layout.UnitWidth)
	if err != nil {
		return nil, err
	}
	if len(buf) < units {
		return nil, fmt.Errorf("%w: %d samples need %d units, buffer has %d",
			ErrInvalidConfiguration, samples, units, len(buf))
	}
	return &Decoder{buf: buf, layout: layout, channels: channels, samples: samples}, nil
}

func (d *Decoder) Channels() int { return d.channels }

func (d *Decoder) Samples() int { return d.samples }

// Bit returns the value of channel ch at sample i. Data is left-justified in
// each unit so every bit is offset by the unit's padding.
func (d *Decoder) Bit(ch, i int) bool {
	bitIndex := ch + i*d.channels
	unit := bitIndex / d.layout.BitsPerUnit
	pos := bitIndex%d.layout.BitsPerUnit + d.layout.Padding()
	return (d.buf[unit]>>pos)&1 != 0
}

// Iter returns an iterator over all channels, each in increasing sample order.
func (d *Decoder) Iter() *Iterator { return NewIterator(d) }

// Channel returns an iterator over the samples of a single channel.
func (d *Decoder) Channel(ch int) *ChannelIter {
	return &ChannelIter{w: d, ch: ch, i: -1}
}

// Iterator walks a Waveform channel by channel. The zero position is before
// the first sample; call Next before reading.
type Iterator struct {
	w  Waveform
	ch int
	i  int
}

// NewIterator returns an iterator positioned before the first sample of w.
func NewIterator(w Waveform) *Iterator {
	return &Iterator{w: w, i: -1}
}

// Next advances to the next sample and reports whether there is one.
func (it *Iterator) Next() bool {
	if it.ch >= it.w.Channels() {
		return false
	}
	it.i++
	if it.i >= it.w.Samples() {
		it.ch++
		it.i = 0
		if it.ch >= it.w.Channels() || it.w.Samples() == 0 {
			it.ch = it.w.Channels()
			return false
		}
	}
	return true
}

// Sample returns the current channel, sample index and value.
func (it *Iterator) Sample() (ch, i int, v bool) {
	return it.ch, it.i, it.w.Bit(it.ch, it.i)
}

// Reset rewinds the iterator to before the first sample.
func (it *Iterator) Reset() {
	it.ch, it.i = 0, -1
}

// ChannelIter walks the samples of one channel in order.
type ChannelIter struct {
	w  Waveform
	ch int
	i  int
}

func (it *ChannelIter) Next() bool {
	if it.i+1 >= it.w.Samples() {
		it.i = it.w.Samples()
		return false
	}
	it.i++
	return true
}

// Sample returns the current sample index and value.
func (it *ChannelIter) Sample() (i int, v bool) {
	return it.i, it.w.Bit(it.ch, it.i)
}

func (it *ChannelIter) Reset() { it.i = -1 }
