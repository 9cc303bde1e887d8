// Package config loads the host tool configuration from defaults, an
// optional config file, PIOSCOPE_* environment variables and flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tinygo-org/pioscope/analyzer"
	"github.com/tinygo-org/pioscope/internal/monitor"
)

// EnvPrefix prefixes environment overrides, e.g. PIOSCOPE_CAPTURE_SAMPLES.
const EnvPrefix = "PIOSCOPE"

// Config is the complete host tool configuration.
type Config struct {
	Capture analyzer.Config `mapstructure:"capture"`
	Sim     SimConfig       `mapstructure:"sim"`
	Monitor MonitorConfig   `mapstructure:"monitor"`
	Plot    PlotConfig      `mapstructure:"plot"`
}

// SimConfig drives the simulated capture hardware.
type SimConfig struct {
	// HalfPeriods gives, per channel, the number of sampler cycles between
	// two level changes.
	HalfPeriods []int `mapstructure:"half_periods"`
	// Cycles is the number of capture cycles to run.
	Cycles int `mapstructure:"cycles"`
	// CyclesPerPoll is how far the sampler runs between two DMA polls.
	CyclesPerPoll int `mapstructure:"cycles_per_poll"`
	// Tick is how far the simulated clock moves on every read.
	Tick time.Duration `mapstructure:"tick"`
	// TriggerAt is the sampler cycle at which the trigger pin reaches the
	// trigger level, when the capture is triggered.
	TriggerAt uint64 `mapstructure:"trigger_at"`
	// Output receives the edge log. Empty or "-" is stdout.
	Output string `mapstructure:"output"`
}

// MonitorConfig selects the device serial port.
type MonitorConfig struct {
	Port    string              `mapstructure:"port"`
	Serial  monitor.PortOptions `mapstructure:"serial"`
	Output  string              `mapstructure:"output"`
	Verbose bool                `mapstructure:"verbose"`
}

// PlotConfig controls the rendered chart.
type PlotConfig struct {
	Title    string  `mapstructure:"title"`
	WidthIn  float64 `mapstructure:"width_in"`
	HeightIn float64 `mapstructure:"height_in"`
	Output   string  `mapstructure:"output"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Capture: analyzer.DefaultConfig(),
		Sim: SimConfig{
			HalfPeriods:   []int{1, 2},
			Cycles:        1,
			CyclesPerPoll: 64,
			Tick:          time.Microsecond,
		},
		Monitor: MonitorConfig{
			Serial: monitor.PortOptions{BaudRate: 115200, DataBits: 8, StopBits: 1, Parity: "N"},
		},
		Plot: PlotConfig{
			Title:    "pioscope capture",
			WidthIn:  10,
			HeightIn: 4,
			Output:   "capture.png",
		},
	}
}

// SetDefaults registers every default with v.
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	c := defaults.Capture
	v.SetDefault("capture.pin_base", c.PinBase)
	v.SetDefault("capture.channels", c.Channels)
	v.SetDefault("capture.samples", c.Samples)
	v.SetDefault("capture.clkdiv", c.ClkDiv)
	v.SetDefault("capture.clkdiv_frac", c.ClkDivFrac)
	v.SetDefault("capture.sample_rate", c.SampleRate)
	v.SetDefault("capture.cpu_freq", c.CPUFreq)
	v.SetDefault("capture.trigger", c.Trigger)
	v.SetDefault("capture.trigger_pin", c.TriggerPin)
	v.SetDefault("capture.trigger_level", c.TriggerLevel)
	v.SetDefault("capture.timeout", c.Timeout)
	v.SetDefault("capture.edge_mode", c.EdgeMode)
	v.SetDefault("capture.presenters", c.Presenters)
	v.SetDefault("capture.rearm_delay", c.RearmDelay)
	v.SetDefault("capture.button_pin", c.ButtonPin)
	v.SetDefault("capture.button_active_low", c.ButtonActiveLow)
	v.SetDefault("capture.buffer_limit", c.BufferLimit)

	v.SetDefault("sim.half_periods", defaults.Sim.HalfPeriods)
	v.SetDefault("sim.cycles", defaults.Sim.Cycles)
	v.SetDefault("sim.cycles_per_poll", defaults.Sim.CyclesPerPoll)
	v.SetDefault("sim.tick", defaults.Sim.Tick)
	v.SetDefault("sim.trigger_at", defaults.Sim.TriggerAt)
	v.SetDefault("sim.output", defaults.Sim.Output)

	v.SetDefault("monitor.port", defaults.Monitor.Port)
	v.SetDefault("monitor.serial.baud_rate", defaults.Monitor.Serial.BaudRate)
	v.SetDefault("monitor.serial.data_bits", defaults.Monitor.Serial.DataBits)
	v.SetDefault("monitor.serial.stop_bits", defaults.Monitor.Serial.StopBits)
	v.SetDefault("monitor.serial.parity", defaults.Monitor.Serial.Parity)
	v.SetDefault("monitor.output", defaults.Monitor.Output)
	v.SetDefault("monitor.verbose", defaults.Monitor.Verbose)

	v.SetDefault("plot.title", defaults.Plot.Title)
	v.SetDefault("plot.width_in", defaults.Plot.WidthIn)
	v.SetDefault("plot.height_in", defaults.Plot.HeightIn)
	v.SetDefault("plot.output", defaults.Plot.Output)
}

// New returns a viper instance with defaults and environment overrides set
// up. If file is empty the usual config locations are searched and a missing
// file is not an error.
func New(file string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("pioscope")
		v.AddConfigPath(Dir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	// e.g. PIOSCOPE_CAPTURE_SAMPLES for capture.samples
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// Load reads the configuration from v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Capture.Validate(); err != nil {
		return err
	}
	for i, hp := range c.Sim.HalfPeriods {
		if hp <= 0 {
			return fmt.Errorf("sim.half_periods[%d] = %d, must be positive", i, hp)
		}
	}
	if c.Sim.Cycles < 0 {
		return fmt.Errorf("sim.cycles = %d, must not be negative", c.Sim.Cycles)
	}
	if _, err := c.Monitor.Serial.Normalize(); err != nil {
		return fmt.Errorf("monitor.serial: %w", err)
	}
	if c.Plot.WidthIn <= 0 || c.Plot.HeightIn <= 0 {
		return fmt.Errorf("plot size %gx%g must be positive", c.Plot.WidthIn, c.Plot.HeightIn)
	}
	return nil
}

// Dir returns the user's pioscope config directory.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "pioscope")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pioscope"
	}
	return filepath.Join(home, ".config", "pioscope")
}
