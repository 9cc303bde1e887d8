//go:build !tinygo

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tinygo-org/pioscope/internal/config"
)

// app carries the configuration shared by every subcommand.
type app struct {
	cfgFile string
	v       *viper.Viper
	cfg     *config.Config
	// flag name to config key, per command
	binds map[*cobra.Command]map[string]string
}

func newRootCmd() *cobra.Command {
	a := &app{binds: make(map[*cobra.Command]map[string]string)}
	root := &cobra.Command{
		Use:   "pioscope",
		Short: "Host tools for the RP2040 PIO logic capture firmware",
		Long: `pioscope captures digital signals with an RP2040 PIO state machine and DMA.
These host tools run the capture pipeline against a simulated chip, read the
edge log printed by a device over USB serial and plot recorded edge logs.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "",
		"config file (default is $HOME/.config/pioscope/pioscope.yaml)")

	root.AddCommand(newSimCmd(a), newMonitorCmd(a), newPlotCmd(a))
	return root
}

// bind ties flag name of cmd to the configuration key.
func (a *app) bind(cmd *cobra.Command, name, key string) {
	m := a.binds[cmd]
	if m == nil {
		m = make(map[string]string)
		a.binds[cmd] = m
	}
	m[name] = key
}

func (a *app) load(cmd *cobra.Command) error {
	v, err := config.New(a.cfgFile)
	if err != nil {
		return err
	}
	for name, key := range a.binds[cmd] {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return err
		}
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	a.v, a.cfg = v, cfg
	return nil
}
