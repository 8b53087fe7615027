package occupancy

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-css/dsp/core"
	"github.com/cwbudde/algo-css/dsp/window"
	"github.com/cwbudde/algo-vecmath"
)

const (
	defaultThresholdDB = 20.0
	minFFTSize         = 2
)

var (
	// ErrEmptyInput is returned for an empty sample block.
	ErrEmptyInput = errors.New("occupancy: empty input")
	// ErrInvalidSampleRate is returned for a non-positive sample rate.
	ErrInvalidSampleRate = errors.New("occupancy: sample rate must be > 0")
	// ErrInvalidFFTSize is returned for an FFT size that is not a power of two >= 2.
	ErrInvalidFFTSize = errors.New("occupancy: FFT size must be a power of two >= 2")
	// ErrInvalidThreshold is returned for a non-positive threshold.
	ErrInvalidThreshold = errors.New("occupancy: threshold must be > 0 dB")
	// ErrSilent is returned when the block carries no energy.
	ErrSilent = errors.New("occupancy: block has no energy")
)

// Config holds analysis parameters.
type Config struct {
	// FFTSize is the transform length. Zero selects the next power of two
	// covering the block. Longer blocks are truncated to FFTSize samples.
	FFTSize int
	// Window tapers the block before the transform. A chirp sweeps the whole
	// band at constant amplitude, so the default rectangular window keeps
	// the band edges at full level.
	Window window.Type
	// ThresholdDB is how far below the peak the band edges are taken.
	ThresholdDB float64
}

// Option mutates a Config.
type Option func(*Config) error

// WithFFTSize sets a fixed transform length.
func WithFFTSize(n int) Option {
	return func(c *Config) error {
		if n < minFFTSize || n&(n-1) != 0 {
			return fmt.Errorf("%w: %d", ErrInvalidFFTSize, n)
		}
		c.FFTSize = n
		return nil
	}
}

// WithWindow selects the analysis window.
func WithWindow(t window.Type) Option {
	return func(c *Config) error {
		if window.Generate(t, 1) == nil {
			return fmt.Errorf("occupancy: unknown window %v", t)
		}
		c.Window = t
		return nil
	}
}

// WithThresholdDB sets the band edge level below the peak.
func WithThresholdDB(db float64) Option {
	return func(c *Config) error {
		if !(db > 0) || math.IsInf(db, 1) {
			return fmt.Errorf("%w: %g", ErrInvalidThreshold, db)
		}
		c.ThresholdDB = db
		return nil
	}
}

// DefaultConfig returns an automatic FFT size, a rectangular window and a
// 20 dB threshold.
func DefaultConfig() Config {
	return Config{Window: window.TypeRectangular, ThresholdDB: defaultThresholdDB}
}

// Result describes the occupied band of one block.
type Result struct {
	FFTSize int
	// BinHz is the frequency spacing of the transform.
	BinHz float64
	// PeakHz is the signed frequency of the strongest bin.
	PeakHz float64
	// LowEdgeHz and HighEdgeHz bound the bins within ThresholdDB of the peak.
	LowEdgeHz  float64
	HighEdgeHz float64
	// BandwidthHz is HighEdgeHz - LowEdgeHz.
	BandwidthHz float64
	// DCLevelDB is the power of the 0 Hz bin relative to the peak.
	DCLevelDB float64
	// PeakLevelDB is the peak power relative to a unit-amplitude complex
	// tone centred on a bin, seen through the same window.
	PeakLevelDB float64
	// NoiseBandwidthHz is the equivalent noise bandwidth of the window
	// over the analyzed samples.
	NoiseBandwidthHz float64
}

// Contains reports whether hz lies within the occupied band.
func (r Result) Contains(hz float64) bool {
	return hz >= r.LowEdgeHz && hz <= r.HighEdgeHz
}

// Analyzer reuses its FFT plan and buffers across blocks of the same size.
// It is not safe for concurrent use.
type Analyzer struct {
	cfg        Config
	sampleRate float64

	size   int
	plan   *algofft.Plan[complex128]
	coeffs []float64
	gain   float64 // coherent gain of coeffs
	enbw   float64 // equivalent noise bandwidth of coeffs, in bins
	re, im []float64
	pow    []float64
	in     []complex128
	out    []complex128
}

// NewAnalyzer returns an analyzer for blocks sampled at sampleRate.
func NewAnalyzer(sampleRate float64, opts ...Option) (*Analyzer, error) {
	if !(sampleRate > 0) || math.IsInf(sampleRate, 1) {
		return nil, fmt.Errorf("%w: %g", ErrInvalidSampleRate, sampleRate)
	}

	cfg := DefaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	return &Analyzer{cfg: cfg, sampleRate: sampleRate}, nil
}

// Config returns the analyzer configuration.
func (a *Analyzer) Config() Config { return a.cfg }

// Analyze measures one block.
func Analyze(iq []complex128, sampleRate float64, opts ...Option) (Result, error) {
	a, err := NewAnalyzer(sampleRate, opts...)
	if err != nil {
		return Result{}, err
	}
	return a.Analyze(iq)
}

// Analyze measures one block.
func (a *Analyzer) Analyze(iq []complex128) (Result, error) {
	if len(iq) == 0 {
		return Result{}, ErrEmptyInput
	}

	size := a.cfg.FFTSize
	if size == 0 {
		size = max(core.NextPowerOfTwo(len(iq)), minFFTSize)
	}
	if err := a.prepare(size); err != nil {
		return Result{}, err
	}

	n := min(len(iq), size)
	a.re = core.EnsureLen(a.re, n)
	a.im = core.EnsureLen(a.im, n)
	for k := range n {
		a.re[k] = real(iq[k])
		a.im[k] = imag(iq[k])
	}

	if len(a.coeffs) != n {
		if err := a.makeWindow(n); err != nil {
			return Result{}, err
		}
	}
	if a.cfg.Window != window.TypeRectangular {
		if err := window.ApplyComplexInPlace(a.re, a.im, a.coeffs); err != nil {
			return Result{}, fmt.Errorf("occupancy: window: %w", err)
		}
	}

	for k := range a.in {
		if k < n {
			a.in[k] = complex(a.re[k], a.im[k])
		} else {
			a.in[k] = 0
		}
	}

	if err := a.plan.Forward(a.out, a.in); err != nil {
		return Result{}, fmt.Errorf("occupancy: fft: %w", err)
	}

	a.re = core.EnsureLen(a.re, size)
	a.im = core.EnsureLen(a.im, size)
	for k, c := range a.out {
		a.re[k] = real(c)
		a.im[k] = imag(c)
	}
	a.pow = core.EnsureLen(a.pow, size)
	vecmath.Power(a.pow, a.re, a.im)

	return a.measure(size, n)
}

func (a *Analyzer) makeWindow(n int) error {
	coeffs := window.Generate(a.cfg.Window, n, window.WithPeriodic())

	gain, err := window.CoherentGain(coeffs)
	if err != nil {
		return fmt.Errorf("occupancy: window: %w", err)
	}
	enbw, err := window.EquivalentNoiseBandwidth(coeffs)
	if err != nil {
		return fmt.Errorf("occupancy: window: %w", err)
	}

	a.coeffs, a.gain, a.enbw = coeffs, gain, enbw
	return nil
}

func (a *Analyzer) prepare(size int) error {
	if size < minFFTSize || size&(size-1) != 0 {
		return fmt.Errorf("%w: %d", ErrInvalidFFTSize, size)
	}
	if a.plan != nil && a.size == size {
		return nil
	}

	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return fmt.Errorf("occupancy: fft plan: %w", err)
	}

	a.plan = plan
	a.size = size
	a.in = core.EnsureComplexLen(a.in, size)
	a.out = core.EnsureComplexLen(a.out, size)
	return nil
}

// measure scans the power spectrum in ascending signed frequency.
func (a *Analyzer) measure(size, n int) (Result, error) {
	binHz := a.sampleRate / float64(size)
	res := Result{
		FFTSize: size,
		BinHz:   binHz,
		// Zero padding interpolates bins; the resolution follows the window.
		NoiseBandwidthHz: a.enbw * a.sampleRate / float64(n),
	}

	peak := 0
	for k, p := range a.pow {
		if p > a.pow[peak] {
			peak = k
		}
	}
	peakPow := a.pow[peak]
	if peakPow == 0 {
		return Result{}, ErrSilent
	}

	res.PeakHz = binFrequency(peak, size, binHz)
	res.DCLevelDB = core.LinearPowerToDB(a.pow[0] / peakPow)
	full := float64(n) * a.gain
	res.PeakLevelDB = core.LinearPowerToDB(peakPow / (full * full))

	level := peakPow * core.DBPowerToLinear(-a.cfg.ThresholdDB)
	half := size / 2

	low, high := -1, -1
	for j := range size {
		k := (j + half) % size
		if a.pow[k] < level {
			continue
		}
		if low < 0 {
			low = k
		}
		high = k
	}

	res.LowEdgeHz = binFrequency(low, size, binHz)
	res.HighEdgeHz = binFrequency(high, size, binHz)
	res.BandwidthHz = res.HighEdgeHz - res.LowEdgeHz

	return res, nil
}

// binFrequency maps bin k of an FFT of the given size to a signed frequency.
func binFrequency(k, size int, binHz float64) float64 {
	if k >= size/2 {
		k -= size
	}
	return float64(k) * binHz
}

// InstantaneousFrequency returns the frequency in Hz of each step between
// adjacent samples, estimated from their phase difference. The result has
// one element less than iq. Frequencies are folded into (-fs/2, fs/2].
func InstantaneousFrequency(iq []complex128, sampleRate float64) []float64 {
	if len(iq) < 2 || !(sampleRate > 0) {
		return nil
	}

	out := make([]float64, len(iq)-1)
	scale := sampleRate / (2 * math.Pi)
	for n := range out {
		out[n] = cmplx.Phase(iq[n+1]*cmplx.Conj(iq[n])) * scale
	}

	return out
}
