package css

import (
	"errors"
	"math"
	"time"
)

// Spreading factor bounds. [Config.Validate] accepts any factor whose
// alphabet fits an int; [Config.ValidateLoRa] narrows it to the range of
// LoRa radios.
const (
	MinSpreadingFactor     = 1
	MaxSpreadingFactor     = 30
	LoRaMinSpreadingFactor = 5
	LoRaMaxSpreadingFactor = 12
)

// Errors returned by configuration and symbol validation.
var (
	ErrInvalidBandwidth       = errors.New("css: bandwidth must be > 0 and finite")
	ErrInvalidSpreadingFactor = errors.New("css: spreading factor out of range")
	ErrInvalidSampleRate      = errors.New("css: sample rate must be > 0")
	ErrUndersampled           = errors.New("css: sample rate must be >= bandwidth")
	ErrSymbolOutOfRange       = errors.New("css: symbol value outside alphabet")
	ErrNilSink                = errors.New("css: sink is nil")
)

// Config holds the modulation parameters of a synthesizer.
// It is immutable once a [Synthesizer] has been created from it.
type Config struct {
	Bandwidth       float64 `json:"bandwidth" yaml:"bandwidth"`               // sweep width in Hz
	SpreadingFactor int     `json:"spreading_factor" yaml:"spreading_factor"` // log2 of the alphabet size
	SampleRate      int     `json:"sample_rate" yaml:"sample_rate"`           // output rate in Hz
}

// Validate checks that every field is positive and that the symbol length
// is representable. Undersampling is allowed.
func (c Config) Validate() error {
	if c.Bandwidth <= 0 || math.IsNaN(c.Bandwidth) || math.IsInf(c.Bandwidth, 0) {
		return ErrInvalidBandwidth
	}

	if c.SpreadingFactor < MinSpreadingFactor || c.SpreadingFactor > MaxSpreadingFactor {
		return ErrInvalidSpreadingFactor
	}

	if c.SampleRate <= 0 || c.SampleRate > math.MaxInt>>c.SpreadingFactor {
		return ErrInvalidSampleRate
	}

	return nil
}

// ValidateLoRa applies [Config.Validate] and additionally requires a
// spreading factor between 5 and 12 and a sample rate of at least the
// bandwidth.
func (c Config) ValidateLoRa() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.SpreadingFactor < LoRaMinSpreadingFactor || c.SpreadingFactor > LoRaMaxSpreadingFactor {
		return ErrInvalidSpreadingFactor
	}

	if float64(c.SampleRate) < c.Bandwidth {
		return ErrUndersampled
	}

	return nil
}

// AlphabetSize returns the number of distinct symbol values, 2^SF.
func (c Config) AlphabetSize() int {
	if c.SpreadingFactor < 0 {
		return 0
	}

	return 1 << c.SpreadingFactor
}

// SamplesPerSymbol returns floor(SampleRate * 2^SF / Bandwidth), the number
// of samples emitted for one symbol. Degenerate configurations yield <= 0.
func (c Config) SamplesPerSymbol() int {
	if c.Bandwidth <= 0 {
		return 0
	}

	return int(float64(c.SampleRate*c.AlphabetSize()) / c.Bandwidth)
}

// SymbolDuration returns the air time of one symbol, 2^SF / Bandwidth.
func (c Config) SymbolDuration() time.Duration {
	if c.Bandwidth <= 0 {
		return 0
	}

	return time.Duration(float64(time.Second) * float64(c.AlphabetSize()) / c.Bandwidth)
}

// DefaultFrequencyOffset returns the offset that moves the chirp band away
// from DC: SampleRate/4 (integer quarter rate) minus half the bandwidth.
func (c Config) DefaultFrequencyOffset() float64 {
	return float64(c.SampleRate/4) - c.Bandwidth/2
}

// Symbol is the input of one synthesis call.
type Symbol struct {
	Value   int  // initial cyclic shift, in [0, 2^SF)
	Inverse bool // down-chirp when set
}

// Validate reports whether the symbol value lies inside the alphabet of cfg.
func (s Symbol) Validate(cfg Config) error {
	if s.Value < 0 || s.Value >= cfg.AlphabetSize() {
		return ErrSymbolOutOfRange
	}

	return nil
}
