//go:build !tinygo

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/tinygo-org/pioscope/internal/config"
	"github.com/tinygo-org/pioscope/internal/monitor"
	"github.com/tinygo-org/pioscope/present"
)

func newMonitorCmd(a *app) *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Read the edge log of a capture device over serial",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if list {
				return listPorts(cmd)
			}
			return runMonitor(cmd, a.cfg)
		},
	}
	f := cmd.Flags()
	f.BoolVarP(&list, "list", "l", false, "list serial ports and exit")
	f.StringP("port", "p", "", "serial port of the device")
	f.Int("baud", 115200, "baud rate")
	f.StringP("output", "o", "", "also append records to this file")
	f.BoolP("verbose", "v", false, "log lines that are not records")
	a.bind(cmd, "port", "monitor.port")
	a.bind(cmd, "baud", "monitor.serial.baud_rate")
	a.bind(cmd, "output", "monitor.output")
	a.bind(cmd, "verbose", "monitor.verbose")
	return cmd
}

func listPorts(cmd *cobra.Command) error {
	ports, err := monitor.Ports()
	if err != nil {
		return err
	}
	for _, p := range ports {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	return nil
}

func runMonitor(cmd *cobra.Command, cfg *config.Config) error {
	if cfg.Monitor.Port == "" {
		return errors.New("no serial port given, use --port or --list")
	}
	port, err := monitor.Open(cfg.Monitor.Port, cfg.Monitor.Serial)
	if err != nil {
		return err
	}
	defer port.Close()

	writers := []io.Writer{cmd.OutOrStdout()}
	if cfg.Monitor.Output != "" {
		f, err := os.OpenFile(cfg.Monitor.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		writers = append(writers, f)
	}
	out := io.MultiWriter(writers...)

	m := &monitor.Monitor{Source: port}
	if cfg.Monitor.Verbose {
		m.Logger = log.New(cmd.ErrOrStderr(), "monitor: ", log.LstdFlags)
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	var buf []byte
	err = m.Run(ctx, func(r present.Record) error {
		buf = r.AppendText(buf[:0])
		_, err := out.Write(buf)
		return err
	})
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	log.Printf("monitor: %d records, %d other lines", m.Records(), m.Skipped())
	return err
}
