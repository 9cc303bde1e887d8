// Package present renders decoded captures: as a text log of level changes or
// as a blink sequence on an RGB indicator light.
package present

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrMalformedRecord = errors.New("present: malformed record")

// Record is one level change of one channel.
type Record struct {
	// Timestamp is the time since boot at which the change was decoded.
	Timestamp time.Duration
	Channel   int
	Value     bool
}

// AppendText appends the text form "<µs>, <channel>, <value>\r\n".
func (r Record) AppendText(b []byte) []byte {
	b = strconv.AppendInt(b, r.Timestamp.Microseconds(), 10)
	b = append(b, ", "...)
	b = strconv.AppendInt(b, int64(r.Channel), 10)
	b = append(b, ", "...)
	if r.Value {
		b = append(b, '1')
	} else {
		b = append(b, '0')
	}
	return append(b, "\r\n"...)
}

func (r Record) String() string {
	return strings.TrimRight(string(r.AppendText(nil)), "\r\n")
}

// ParseRecord parses one line of an edge log. Both the "<µs>, <channel>,
// <value>" form and the older "<µs>, <value>" form, which has no channel
// and is reported as channel 0, are accepted.
func ParseRecord(line string) (Record, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	var ts, ch, val string
	switch len(fields) {
	case 2:
		ts, ch, val = fields[0], "0", fields[1]
	case 3:
		ts, ch, val = fields[0], fields[1], fields[2]
	default:
		return Record{}, fmt.Errorf("%w: %q", ErrMalformedRecord, line)
	}
	us, err := strconv.ParseInt(strings.TrimSpace(ts), 10, 64)
	if err != nil || us < 0 {
		return Record{}, fmt.Errorf("%w: timestamp in %q", ErrMalformedRecord, line)
	}
	channel, err := strconv.Atoi(strings.TrimSpace(ch))
	if err != nil || channel < 0 {
		return Record{}, fmt.Errorf("%w: channel in %q", ErrMalformedRecord, line)
	}
	var value bool
	switch strings.TrimSpace(val) {
	case "0":
	case "1":
		value = true
	default:
		return Record{}, fmt.Errorf("%w: value in %q", ErrMalformedRecord, line)
	}
	return Record{Timestamp: time.Duration(us) * time.Microsecond, Channel: channel, Value: value}, nil
}
