package monitor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"

	"github.com/tinygo-org/pioscope/present"
)

const stream = "booting\r\n" +
	"analyzer: 2 channels from GPIO22\r\n" +
	"10, 0, 1\r\n" +
	"\r\n" +
	"12, 1, 1\r\n" +
	"garbage, 1, 1\r\n" +
	"20, 0\r\n"

func TestRun(t *testing.T) {
	var logs bytes.Buffer
	m := &Monitor{Source: strings.NewReader(stream), Logger: log.New(&logs, "", 0)}
	var got []present.Record
	err := m.Run(context.Background(), func(r present.Record) error {
		got = append(got, r)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []present.Record{
		{Timestamp: 10 * time.Microsecond, Channel: 0, Value: true},
		{Timestamp: 12 * time.Microsecond, Channel: 1, Value: true},
		{Timestamp: 20 * time.Microsecond, Channel: 0, Value: false},
	}, got)
	assert.Equal(t, 3, m.Records())
	assert.Equal(t, 3, m.Skipped())
	assert.Contains(t, logs.String(), "garbage")
}

func TestRunCallbackError(t *testing.T) {
	stop := errors.New("stop")
	m := &Monitor{Source: strings.NewReader(stream)}
	calls := 0
	err := m.Run(context.Background(), func(present.Record) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestRunCancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	ctx, cancel := context.WithCancel(context.Background())
	m := &Monitor{Source: pr}

	done := make(chan error, 1)
	go func() {
		done <- m.Run(ctx, func(present.Record) error { return nil })
	}()
	_, err := pw.Write([]byte("1, 0, 1\n"))
	require.NoError(t, err)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNormalize(t *testing.T) {
	opts, err := PortOptions{}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, PortOptions{BaudRate: 115200, DataBits: 8, StopBits: 1, Parity: "N"}, opts)

	opts, err = PortOptions{BaudRate: 9600, DataBits: 7, StopBits: 2, Parity: "even"}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, PortOptions{BaudRate: 9600, DataBits: 7, StopBits: 2, Parity: "E"}, opts)

	opts, err = PortOptions{Parity: " none "}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, "N", opts.Parity)

	for _, bad := range []PortOptions{
		{DataBits: 9},
		{DataBits: 4},
		{StopBits: 3},
		{StopBits: -1},
		{Parity: "mark"},
	} {
		_, err := bad.Normalize()
		assert.Error(t, err, "%+v", bad)
	}
}

func TestSerialMode(t *testing.T) {
	mode, err := PortOptions{StopBits: 2, Parity: "O"}.SerialMode()
	require.NoError(t, err)
	assert.Equal(t, &serial.Mode{
		BaudRate: 115200,
		DataBits: 8,
		StopBits: serial.TwoStopBits,
		Parity:   serial.OddParity,
	}, mode)

	mode, err = PortOptions{Parity: "e"}.SerialMode()
	require.NoError(t, err)
	assert.Equal(t, serial.OneStopBit, mode.StopBits)
	assert.Equal(t, serial.EvenParity, mode.Parity)

	_, err = PortOptions{DataBits: 4}.SerialMode()
	assert.Error(t, err)
}
