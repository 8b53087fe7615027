package css

import (
	"fmt"
	"iter"
	"math"
)

const twoPi = 2 * math.Pi

// Option mutates synthesizer construction parameters.
type Option func(*synthConfig) error

type synthConfig struct {
	offsetHz     float64
	hasOffset    bool
	initialPhase float64
}

// WithFrequencyOffset overrides the fixed frequency offset added to every
// instantaneous frequency. The default is [Config.DefaultFrequencyOffset].
func WithFrequencyOffset(hz float64) Option {
	return func(cfg *synthConfig) error {
		if math.IsNaN(hz) || math.IsInf(hz, 0) {
			return fmt.Errorf("css: frequency offset must be finite: %f", hz)
		}
		cfg.offsetHz = hz
		cfg.hasOffset = true
		return nil
	}
}

// WithInitialPhase sets the carrier phase in radians the synthesizer starts
// from and returns to on [Synthesizer.Reset].
func WithInitialPhase(rad float64) Option {
	return func(cfg *synthConfig) error {
		if math.IsNaN(rad) || math.IsInf(rad, 0) {
			return fmt.Errorf("css: initial phase must be finite: %f", rad)
		}
		cfg.initialPhase = rad
		return nil
	}
}

// Synthesizer generates phase-continuous chirp symbols.
type Synthesizer struct {
	cfg Config

	alphabet   float64
	sampleRate float64
	shiftStep  float64
	offsetHz   float64
	numSamples int

	initialPhase float64
	phase        float64
}

// New creates a synthesizer for cfg with the carrier phase at zero unless
// [WithInitialPhase] says otherwise.
func New(cfg Config, opts ...Option) (*Synthesizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sc := synthConfig{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&sc); err != nil {
			return nil, err
		}
	}

	offset := cfg.DefaultFrequencyOffset()
	if sc.hasOffset {
		offset = sc.offsetHz
	}

	s := &Synthesizer{
		cfg:          cfg,
		alphabet:     float64(cfg.AlphabetSize()),
		sampleRate:   float64(cfg.SampleRate),
		shiftStep:    cfg.Bandwidth / float64(cfg.SampleRate),
		offsetHz:     offset,
		numSamples:   cfg.SamplesPerSymbol(),
		initialPhase: wrapPhase(sc.initialPhase),
	}
	s.phase = s.initialPhase

	return s, nil
}

// Synthesize emits the samples of one symbol to sink and advances the
// carrier phase. Exactly [Config.SamplesPerSymbol] samples are written
// unless sink fails, in which case synthesis stops at the rejected sample
// and the phase is left where that sample was taken.
//
// Symbol values outside the alphabet are not rejected; see
// [Synthesizer.SynthesizeChecked].
func (s *Synthesizer) Synthesize(sym Symbol, sink Sink) error {
	if sink == nil {
		return ErrNilSink
	}

	shift := float64(sym.Value)
	for range s.numSamples {
		sin, cos := math.Sincos(s.phase)
		if err := sink.WriteIQ(cos, sin); err != nil {
			return fmt.Errorf("css: sink: %w", err)
		}
		shift = s.advance(shift, sym.Inverse)
	}

	return nil
}

// SynthesizeChecked validates sym against the alphabet before synthesizing it.
func (s *Synthesizer) SynthesizeChecked(sym Symbol, sink Sink) error {
	if err := sym.Validate(s.cfg); err != nil {
		return fmt.Errorf("%w: %d not in [0, %d)", err, sym.Value, s.cfg.AlphabetSize())
	}

	return s.Synthesize(sym, sink)
}

// Samples returns the samples of one symbol as a lazy sequence. The
// sequence drives the synthesizer state while it is consumed and can be
// ranged over once; stopping early leaves the phase just after the last
// sample the loop received.
func (s *Synthesizer) Samples(sym Symbol) iter.Seq[complex128] {
	used := false

	return func(yield func(complex128) bool) {
		if used {
			return
		}
		used = true

		shift := float64(sym.Value)
		for range s.numSamples {
			sin, cos := math.Sincos(s.phase)
			more := yield(complex(cos, sin))
			shift = s.advance(shift, sym.Inverse)
			if !more {
				return
			}
		}
	}
}

// InstantaneousFrequency returns the frequency in Hz for a cyclic shift,
// before the fixed offset is applied. Inverse symbols mirror it to
// Bandwidth - f.
func (s *Synthesizer) InstantaneousFrequency(shift float64, inverse bool) float64 {
	f := s.cfg.Bandwidth * shift / s.alphabet
	if inverse {
		f = s.cfg.Bandwidth - f
	}

	return f
}

// advance moves phase and shift on by one sample and returns the new shift.
func (s *Synthesizer) advance(shift float64, inverse bool) float64 {
	f := s.InstantaneousFrequency(shift, inverse) + s.offsetHz

	// A single subtraction suffices unless the sample rate is below the
	// bandwidth or the offset is far outside the band.
	s.phase += twoPi * f / s.sampleRate
	for s.phase > math.Pi {
		s.phase -= twoPi
	}
	for s.phase <= -math.Pi {
		s.phase += twoPi
	}

	shift += s.shiftStep
	for shift >= s.alphabet {
		shift -= s.alphabet
	}

	return shift
}

// Phase returns the carrier phase in radians, in (-π, π].
func (s *Synthesizer) Phase() float64 { return s.phase }

// SetPhase sets the carrier phase; it is wrapped into (-π, π].
func (s *Synthesizer) SetPhase(rad float64) { s.phase = wrapPhase(rad) }

// Reset returns the carrier phase to its initial value.
func (s *Synthesizer) Reset() { s.phase = s.initialPhase }

// Config returns the modulation parameters.
func (s *Synthesizer) Config() Config { return s.cfg }

// FrequencyOffset returns the fixed offset in Hz added to every frequency.
func (s *Synthesizer) FrequencyOffset() float64 { return s.offsetHz }

// SamplesPerSymbol returns the number of samples one symbol call emits.
func (s *Synthesizer) SamplesPerSymbol() int { return s.numSamples }

func wrapPhase(rad float64) float64 {
	if rad > math.Pi || rad <= -math.Pi {
		rad = math.Remainder(rad, twoPi)
		if rad <= -math.Pi {
			rad += twoPi
		}
	}

	return rad
}
