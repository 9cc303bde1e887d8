package present

import (
	"bytes"
	"errors"
	"image/color"
	"strings"
	"testing"
	"time"

	"github.com/tinygo-org/pioscope/capture"
	"github.com/tinygo-org/pioscope/sim"
)

// matrix is a Waveform backed by one string of '0' and '1' per channel.
type matrix []string

func (m matrix) Channels() int           { return len(m) }
func (m matrix) Samples() int            { return len(m[0]) }
func (m matrix) Bit(ch, i int) bool      { return m[ch][i] == '1' }
func (m matrix) Iter() *capture.Iterator { return capture.NewIterator(m) }

var testWave = matrix{
	"00110",
	"11111",
	"00000",
}

func parseLog(t *testing.T, log string) []Record {
	t.Helper()
	var recs []Record
	for _, line := range strings.SplitAfter(log, "\r\n") {
		if line == "" {
			continue
		}
		if !strings.HasSuffix(line, "\r\n") {
			t.Fatalf("unterminated line %q", line)
		}
		r, err := ParseRecord(line)
		if err != nil {
			t.Fatal(err)
		}
		recs = append(recs, r)
	}
	return recs
}

func TestEdgeLoggerCarryOver(t *testing.T) {
	var out bytes.Buffer
	l := NewEdgeLogger(&out, &sim.Clock{Tick: time.Microsecond}, CarryOver)
	n, err := l.Present(testWave)
	if err != nil {
		t.Fatal(err)
	}
	const expected = "1, 0, 1\r\n2, 0, 0\r\n3, 1, 1\r\n"
	if n != 3 || out.String() != expected {
		t.Errorf("log got!=expected (%d records):\n%q\n%q", n, out.String(), expected)
	}

	// Values carry into the next pass: channel 1 stays high.
	out.Reset()
	n, err = l.Present(testWave)
	if err != nil {
		t.Fatal(err)
	}
	recs := parseLog(t, out.String())
	if n != 2 || len(recs) != 2 {
		t.Fatalf("second pass wrote %d records", n)
	}
	for _, r := range recs {
		if r.Channel != 0 {
			t.Errorf("unexpected record %v", r)
		}
	}
	if !recs[0].Value || recs[1].Value || recs[0].Timestamp > recs[1].Timestamp {
		t.Errorf("records %v", recs)
	}
}

func TestEdgeLoggerResetPerPass(t *testing.T) {
	var out bytes.Buffer
	l := NewEdgeLogger(&out, &sim.Clock{Tick: time.Microsecond}, ResetPerPass)
	for pass := 0; pass < 2; pass++ {
		out.Reset()
		n, err := l.Present(testWave)
		if err != nil {
			t.Fatal(err)
		}
		recs := parseLog(t, out.String())
		if n != 2 || len(recs) != 2 {
			t.Fatalf("pass %d wrote %d records: %q", pass, n, out.String())
		}
		if recs[0].Channel != 0 || !recs[0].Value || recs[1].Channel != 0 || recs[1].Value {
			t.Errorf("pass %d records %v", pass, recs)
		}
	}
}

func TestEdgeLoggerRecordPerChange(t *testing.T) {
	w := matrix{
		"0101010101",
		"0011001100",
		"1111111111",
		"0000000000",
	}
	var out bytes.Buffer
	l := NewEdgeLogger(&out, &sim.Clock{Tick: time.Microsecond}, ResetPerPass)
	if _, err := l.Present(w); err != nil {
		t.Fatal(err)
	}
	counts := map[int]int{}
	var last time.Duration
	for _, r := range parseLog(t, out.String()) {
		counts[r.Channel]++
		if r.Timestamp < last {
			t.Errorf("timestamp went backwards at %v", r)
		}
		last = r.Timestamp
	}
	want := map[int]int{0: 9, 1: 4}
	if len(counts) != len(want) || counts[0] != want[0] || counts[1] != want[1] {
		t.Errorf("records per channel got!=expected: %v != %v", counts, want)
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("gone") }

func TestEdgeLoggerWriteError(t *testing.T) {
	l := NewEdgeLogger(failWriter{}, &sim.Clock{}, CarryOver)
	if _, err := l.Present(testWave); err == nil {
		t.Error("write error was swallowed")
	}
}

func TestPreviousValues(t *testing.T) {
	p := NewPreviousValues(1)
	if _, known := p.Get(0); known {
		t.Error("fresh state is known")
	}
	p.Set(3, true)
	if v, known := p.Get(3); !v || !known {
		t.Errorf("Get(3) = %v, %v", v, known)
	}
	if _, known := p.Get(2); known {
		t.Error("growing marked channel 2 known")
	}
	p.Reset()
	if _, known := p.Get(3); known {
		t.Error("Reset kept channel 3")
	}
}

func TestParseEdgeMode(t *testing.T) {
	for in, want := range map[string]EdgeMode{
		"":               CarryOver,
		"carry-over":     CarryOver,
		"Reset-Per-Pass": ResetPerPass,
		" reset ":        ResetPerPass,
	} {
		got, err := ParseEdgeMode(in)
		if err != nil || got != want {
			t.Errorf("ParseEdgeMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseEdgeMode("sometimes"); err == nil {
		t.Error("unknown mode accepted")
	}
	if ResetPerPass.String() != "reset-per-pass" {
		t.Error(ResetPerPass.String())
	}
}

func TestRecordText(t *testing.T) {
	r := Record{Timestamp: 1500*time.Microsecond + 300, Channel: 2, Value: true}
	if got := string(r.AppendText(nil)); got != "1500, 2, 1\r\n" {
		t.Errorf("AppendText = %q", got)
	}
	if r.String() != "1500, 2, 1" {
		t.Errorf("String = %q", r.String())
	}
}

func TestParseRecord(t *testing.T) {
	tests := []struct {
		line string
		want Record
	}{
		{"1500, 2, 1\r\n", Record{Timestamp: 1500 * time.Microsecond, Channel: 2, Value: true}},
		{"7,0,0", Record{Timestamp: 7 * time.Microsecond}},
		{"42, 1", Record{Timestamp: 42 * time.Microsecond, Value: true}},
	}
	for _, tc := range tests {
		got, err := ParseRecord(tc.line)
		if err != nil || got != tc.want {
			t.Errorf("ParseRecord(%q) = %v, %v", tc.line, got, err)
		}
	}
	for _, line := range []string{"", "12", "a, 0", "1, 2, 3, 4", "1, 2, x", "-1, 0", "1, -2, 1", "5, 0, 2"} {
		if _, err := ParseRecord(line); !errors.Is(err, ErrMalformedRecord) {
			t.Errorf("ParseRecord(%q) err=%v", line, err)
		}
	}
}

func TestBlinker(t *testing.T) {
	ind := &sim.Indicator{}
	n, err := NewBlinker(ind).Present(matrix{"01", "10"})
	if err != nil {
		t.Fatal(err)
	}
	red, blue := color.RGBA{R: 0xff, A: 0xff}, color.RGBA{B: 0xff, A: 0xff}
	want := []color.RGBA{red, blue, blue, red}
	if n != 4 || len(ind.Colors) != 4 {
		t.Fatalf("blinked %d times, recorded %d colors", n, len(ind.Colors))
	}
	for i := range want {
		if ind.Colors[i] != want[i] {
			t.Errorf("color %d = %v, expected %v", i, ind.Colors[i], want[i])
		}
	}

	ind = &sim.Indicator{Err: errors.New("unplugged")}
	if n, err := NewBlinker(ind).Present(matrix{"01"}); err == nil || n != 0 {
		t.Errorf("Present = %d, %v", n, err)
	}
}

func TestRGB(t *testing.T) {
	if c := RGB(0x123456); c != (color.RGBA{R: 0x12, G: 0x34, B: 0x56, A: 0xff}) {
		t.Errorf("RGB = %v", c)
	}
}
