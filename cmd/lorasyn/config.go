package main

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-css/dsp/css"
	"github.com/cwbudde/algo-css/dsp/frame"
	"github.com/cwbudde/algo-css/dsp/iqio"
	"github.com/cwbudde/algo-css/dsp/window"
)

// Config holds everything one run of lorasyn needs.
type Config struct {
	Radio    css.Config   `yaml:"radio"`
	Frame    FrameConfig  `yaml:"frame"`
	Output   OutputConfig `yaml:"output"`
	Serve    ServeConfig  `yaml:"serve"`
	LogLevel string       `yaml:"log_level"`
}

// FrameConfig selects the frame layout and its payload. An explicit
// Payload wins over a random one of PayloadLength symbols.
type FrameConfig struct {
	frame.Layout  `yaml:",inline"`
	Payload       []int `yaml:"payload"`
	PayloadLength int   `yaml:"payload_length"`
	Seed          int64 `yaml:"seed"`
}

// OutputConfig names the files written. Empty paths are skipped.
type OutputConfig struct {
	Path    string `yaml:"path"`
	Format  string `yaml:"format"`
	WAV     string `yaml:"wav"`
	Parquet string `yaml:"parquet"`
	Report  bool   `yaml:"report"`
	// ReportWindow names the analysis window of the occupancy report.
	ReportWindow string `yaml:"report_window"`
}

// ServeConfig enables websocket streaming when Addr is set.
type ServeConfig struct {
	Addr         string        `yaml:"addr"`
	Path         string        `yaml:"path"`
	BlockSamples int           `yaml:"block_samples"`
	Format       string        `yaml:"format"`
	WaitTimeout  time.Duration `yaml:"wait_timeout"`
	DrainTimeout time.Duration `yaml:"drain_timeout"`
}

// DefaultConfig returns the classic setup: 125 kHz, SF8 at 1 MS/s, eight
// preamble chirps, sync word 32/32, two down-chirps and 16 random payload
// symbols written as signed 8-bit I/Q to out.raw.
func DefaultConfig() Config {
	return Config{
		Radio: css.Config{Bandwidth: 125000, SpreadingFactor: 8, SampleRate: 1000000},
		Frame: FrameConfig{
			Layout:        frame.DefaultLayout(),
			PayloadLength: 16,
			Seed:          1,
		},
		Output: OutputConfig{
			Path:         "out.raw",
			Format:       iqio.FormatS8.String(),
			ReportWindow: window.TypeRectangular.String(),
		},
		Serve: ServeConfig{
			Path:         "/iq",
			BlockSamples: 4096,
			Format:       iqio.FormatCF32LE.String(),
			WaitTimeout:  30 * time.Second,
			DrainTimeout: 10 * time.Second,
		},
		LogLevel: "info",
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig.
func LoadConfig(filename string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return cfg, errors.Wrap(err, "read config file")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(err, "parse config file")
	}

	return cfg, nil
}

// Validate checks the configuration before anything is opened.
func (c *Config) Validate() error {
	if err := c.Radio.ValidateLoRa(); err != nil {
		return errors.Wrap(err, "radio")
	}
	if err := c.Frame.Layout.Validate(c.Radio); err != nil {
		return errors.Wrap(err, "frame")
	}
	if len(c.Frame.Payload) == 0 && c.Frame.PayloadLength < 0 {
		return errors.Errorf("frame: payload length %d < 0", c.Frame.PayloadLength)
	}
	for i, v := range c.Frame.Payload {
		if err := (css.Symbol{Value: v}).Validate(c.Radio); err != nil {
			return errors.Wrapf(err, "frame: payload symbol %d", i)
		}
	}

	if c.Output.Path != "" {
		if _, err := iqio.ParseFormat(c.Output.Format); err != nil {
			return errors.Wrap(err, "output")
		}
	}
	if c.Output.Report {
		if _, err := window.ParseType(c.Output.ReportWindow); err != nil {
			return errors.Wrap(err, "output")
		}
	}
	if c.Serve.Addr != "" {
		if _, err := iqio.ParseFormat(c.Serve.Format); err != nil {
			return errors.Wrap(err, "serve")
		}
		if c.Serve.BlockSamples <= 0 {
			return errors.Errorf("serve: block samples %d <= 0", c.Serve.BlockSamples)
		}
		if c.Serve.DrainTimeout <= 0 {
			return errors.Errorf("serve: drain timeout %v <= 0", c.Serve.DrainTimeout)
		}
	}
	if c.Output.Path == "" && c.Output.WAV == "" && c.Output.Parquet == "" && c.Serve.Addr == "" {
		return errors.New("no output selected")
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "log level")
	}

	return nil
}

// newFlagSet declares the command line flags. Defaults mirror DefaultConfig
// but only flags set explicitly override a config file.
func newFlagSet() *pflag.FlagSet {
	def := DefaultConfig()
	fs := pflag.NewFlagSet("lorasyn", pflag.ContinueOnError)

	fs.StringP("config", "c", "", "YAML configuration file")
	fs.Float64P("bandwidth", "b", def.Radio.Bandwidth, "Chirp bandwidth in Hz")
	fs.IntP("sf", "s", def.Radio.SpreadingFactor, "Spreading factor (5-12)")
	fs.IntP("sample-rate", "r", def.Radio.SampleRate, "Sample rate in samples/s")
	fs.Int("preamble", def.Frame.PreambleLength, "Number of preamble up-chirps")
	fs.IntSlice("sync", def.Frame.SyncWord, "Sync word symbols")
	fs.Int("delimiters", def.Frame.DelimiterLength, "Number of down-chirp delimiters")
	fs.IntSlice("payload", nil, "Payload symbols (default: random)")
	fs.IntP("payload-len", "n", def.Frame.PayloadLength, "Number of random payload symbols")
	fs.Int64("seed", def.Frame.Seed, "Seed of the random payload")
	fs.StringP("format", "f", def.Output.Format, "Raw sample format (s8, u8, s16le, cf32le)")
	fs.StringP("output", "o", def.Output.Path, "Raw I/Q output file (empty to disable)")
	fs.String("wav", "", "Also write a two-channel WAV file")
	fs.String("parquet", "", "Also write a Parquet file of I/Q rows")
	fs.Bool("report", false, "Log the occupied band of the first symbol")
	fs.String("report-window", def.Output.ReportWindow, "Analysis window of the report (rectangular, hann, blackman)")
	fs.String("serve", "", "Stream the frame to websocket clients on this address")
	fs.String("log-level", def.LogLevel, "Log level (debug, info, warn, error)")

	return fs
}

// applyFlags copies explicitly set flags into cfg.
func applyFlags(cfg *Config, fs *pflag.FlagSet) error {
	var err error
	set := func(name string, apply func() error) {
		if err == nil && fs.Changed(name) {
			err = errors.Wrapf(apply(), "flag --%s", name)
		}
	}

	set("bandwidth", func() (e error) { cfg.Radio.Bandwidth, e = fs.GetFloat64("bandwidth"); return })
	set("sf", func() (e error) { cfg.Radio.SpreadingFactor, e = fs.GetInt("sf"); return })
	set("sample-rate", func() (e error) { cfg.Radio.SampleRate, e = fs.GetInt("sample-rate"); return })
	set("preamble", func() (e error) { cfg.Frame.PreambleLength, e = fs.GetInt("preamble"); return })
	set("sync", func() (e error) { cfg.Frame.SyncWord, e = fs.GetIntSlice("sync"); return })
	set("delimiters", func() (e error) { cfg.Frame.DelimiterLength, e = fs.GetInt("delimiters"); return })
	set("payload", func() (e error) { cfg.Frame.Payload, e = fs.GetIntSlice("payload"); return })
	set("payload-len", func() (e error) { cfg.Frame.PayloadLength, e = fs.GetInt("payload-len"); return })
	set("seed", func() (e error) { cfg.Frame.Seed, e = fs.GetInt64("seed"); return })
	set("format", func() (e error) { cfg.Output.Format, e = fs.GetString("format"); return })
	set("output", func() (e error) { cfg.Output.Path, e = fs.GetString("output"); return })
	set("wav", func() (e error) { cfg.Output.WAV, e = fs.GetString("wav"); return })
	set("parquet", func() (e error) { cfg.Output.Parquet, e = fs.GetString("parquet"); return })
	set("report", func() (e error) { cfg.Output.Report, e = fs.GetBool("report"); return })
	set("report-window", func() (e error) { cfg.Output.ReportWindow, e = fs.GetString("report-window"); return })
	set("serve", func() (e error) { cfg.Serve.Addr, e = fs.GetString("serve"); return })
	set("log-level", func() (e error) { cfg.LogLevel, e = fs.GetString("log-level"); return })

	return err
}

// loadConfig parses args and merges the config file, if any, with the flags.
func loadConfig(args []string) (Config, error) {
	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := DefaultConfig()
	if path, _ := fs.GetString("config"); path != "" {
		var err error
		if cfg, err = LoadConfig(path); err != nil {
			return cfg, err
		}
	}

	if err := applyFlags(&cfg, fs); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrap(err, "invalid configuration")
	}

	return cfg, nil
}
