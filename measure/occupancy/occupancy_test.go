package occupancy

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"github.com/cwbudde/algo-css/dsp/css"
	"github.com/cwbudde/algo-css/dsp/window"
	"github.com/cwbudde/algo-css/internal/testutil"
)

// chirpCfg puts one symbol in exactly 4096 samples spanning 62.5-187.5 kHz.
var chirpCfg = css.Config{Bandwidth: 125000, SpreadingFactor: 10, SampleRate: 500000}

func synthesize(t *testing.T, cfg css.Config, sym css.Symbol, opts ...css.Option) []complex128 {
	t.Helper()

	s, err := css.New(cfg, opts...)
	if err != nil {
		t.Fatalf("css.New() error = %v", err)
	}

	var rec testutil.Recorder
	if err := s.Synthesize(sym, &rec); err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}

	return rec.Samples
}

func tone(n int, freq, fs float64) []complex128 {
	out := make([]complex128, n)
	for k := range out {
		out[k] = cmplx.Rect(1, 2*math.Pi*freq*float64(k)/fs)
	}
	return out
}

func TestAnalyzeBinCenteredTone(t *testing.T) {
	const fs = 1024000.0

	for _, freq := range []float64{100000, -100000, 0, 511000} {
		res, err := Analyze(tone(1024, freq, fs), fs)
		if err != nil {
			t.Fatalf("Analyze(%g) error = %v", freq, err)
		}

		if res.FFTSize != 1024 || res.BinHz != 1000 {
			t.Fatalf("Analyze(%g) size = %d, bin = %g, want 1024, 1000", freq, res.FFTSize, res.BinHz)
		}
		if math.Abs(res.PeakHz-freq) > 1e-9 {
			t.Fatalf("Analyze(%g).PeakHz = %g", freq, res.PeakHz)
		}
		if res.LowEdgeHz != res.PeakHz || res.HighEdgeHz != res.PeakHz || res.BandwidthHz != 0 {
			t.Fatalf("Analyze(%g) band = [%g, %g], want single bin", freq, res.LowEdgeHz, res.HighEdgeHz)
		}
		if freq != 0 && res.DCLevelDB > -100 {
			t.Fatalf("Analyze(%g).DCLevelDB = %g, want < -100", freq, res.DCLevelDB)
		}
	}
}

func TestAnalyzeLevelAndNoiseBandwidth(t *testing.T) {
	const fs = 1024000.0
	iq := tone(1024, 100000, fs)
	for n := range iq {
		iq[n] *= 0.5
	}

	tests := []struct {
		window   window.Type
		wantENBW float64
	}{
		{window.TypeRectangular, 1},
		{window.TypeHann, 1.5},
		{window.TypeBlackman, 1.7268},
	}

	for _, tt := range tests {
		res, err := Analyze(iq, fs, WithWindow(tt.window))
		if err != nil {
			t.Fatalf("Analyze(%v) error = %v", tt.window, err)
		}
		// Half amplitude is -6.02 dB whatever the window.
		if want := 20 * math.Log10(0.5); math.Abs(res.PeakLevelDB-want) > 1e-9 {
			t.Fatalf("Analyze(%v).PeakLevelDB = %g, want %g", tt.window, res.PeakLevelDB, want)
		}
		if got := res.NoiseBandwidthHz / res.BinHz; math.Abs(got-tt.wantENBW) > 1e-3 {
			t.Fatalf("Analyze(%v) ENBW = %g bins, want %g", tt.window, got, tt.wantENBW)
		}
	}
}

func TestAnalyzeChirpBand(t *testing.T) {
	const edgeTol = 12500.0

	lo := chirpCfg.DefaultFrequencyOffset()
	hi := lo + chirpCfg.Bandwidth

	for _, sym := range []css.Symbol{{Value: 0}, {Value: 300}, {Value: 1023}, {Value: 77, Inverse: true}} {
		iq := synthesize(t, chirpCfg, sym)
		if len(iq) != 4096 {
			t.Fatalf("len(iq) = %d, want 4096", len(iq))
		}

		res, err := Analyze(iq, float64(chirpCfg.SampleRate))
		if err != nil {
			t.Fatalf("Analyze(%+v) error = %v", sym, err)
		}

		if math.Abs(res.LowEdgeHz-lo) > edgeTol {
			t.Fatalf("Analyze(%+v).LowEdgeHz = %g, want %g", sym, res.LowEdgeHz, lo)
		}
		if math.Abs(res.HighEdgeHz-hi) > edgeTol {
			t.Fatalf("Analyze(%+v).HighEdgeHz = %g, want %g", sym, res.HighEdgeHz, hi)
		}
		if !res.Contains(res.PeakHz) {
			t.Fatalf("Analyze(%+v).PeakHz = %g outside [%g, %g]", sym, res.PeakHz, res.LowEdgeHz, res.HighEdgeHz)
		}
		if res.DCLevelDB > -20 {
			t.Fatalf("Analyze(%+v).DCLevelDB = %g, want < -20", sym, res.DCLevelDB)
		}
	}
}

func TestAnalyzeNegativeOffset(t *testing.T) {
	iq := synthesize(t, chirpCfg, css.Symbol{Value: 0}, css.WithFrequencyOffset(-chirpCfg.Bandwidth/2))

	res, err := Analyze(iq, float64(chirpCfg.SampleRate))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if math.Abs(res.LowEdgeHz+62500) > 12500 || math.Abs(res.HighEdgeHz-62500) > 12500 {
		t.Fatalf("band = [%g, %g], want about [-62500, 62500]", res.LowEdgeHz, res.HighEdgeHz)
	}
	if !res.Contains(0) {
		t.Fatal("centred chirp must occupy 0 Hz")
	}
}

func TestAnalyzeWindowNarrowsEdges(t *testing.T) {
	iq := synthesize(t, chirpCfg, css.Symbol{Value: 0})
	fs := float64(chirpCfg.SampleRate)

	rect, err := Analyze(iq, fs)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	hann, err := Analyze(iq, fs, WithWindow(window.TypeHann))
	if err != nil {
		t.Fatalf("Analyze(Hann) error = %v", err)
	}

	if hann.BandwidthHz > rect.BandwidthHz {
		t.Fatalf("Hann bandwidth %g > rectangular %g", hann.BandwidthHz, rect.BandwidthHz)
	}
}

func TestAnalyzeFFTSize(t *testing.T) {
	iq := synthesize(t, chirpCfg, css.Symbol{Value: 0})
	fs := float64(chirpCfg.SampleRate)

	res, err := Analyze(iq, fs, WithFFTSize(8192))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if res.FFTSize != 8192 || res.BinHz != fs/8192 {
		t.Fatalf("FFTSize = %d, BinHz = %g", res.FFTSize, res.BinHz)
	}

	res, err = Analyze(tone(3000, 250000, 1e6), 1e6)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if res.FFTSize != 4096 {
		t.Fatalf("FFTSize = %d, want 4096", res.FFTSize)
	}
	if math.Abs(res.PeakHz-250000) > res.BinHz {
		t.Fatalf("PeakHz = %g, want 250000", res.PeakHz)
	}
}

func TestAnalyzerReuse(t *testing.T) {
	a, err := NewAnalyzer(1024000, WithThresholdDB(3))
	if err != nil {
		t.Fatalf("NewAnalyzer() error = %v", err)
	}
	if a.Config().ThresholdDB != 3 {
		t.Fatalf("ThresholdDB = %g, want 3", a.Config().ThresholdDB)
	}

	for _, freq := range []float64{1000, 2000, -3000} {
		res, err := a.Analyze(tone(1024, freq, 1024000))
		if err != nil {
			t.Fatalf("Analyze(%g) error = %v", freq, err)
		}
		if math.Abs(res.PeakHz-freq) > 1e-9 {
			t.Fatalf("Analyze(%g).PeakHz = %g", freq, res.PeakHz)
		}
	}

	res, err := a.Analyze(tone(256, 8000, 1024000))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if res.FFTSize != 256 || res.PeakHz != 8000 {
		t.Fatalf("Analyze() = %+v", res)
	}
}

func TestAnalyzeErrors(t *testing.T) {
	if _, err := Analyze(nil, 1000); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("Analyze(nil) error = %v, want %v", err, ErrEmptyInput)
	}
	if _, err := Analyze(tone(8, 0, 8), 0); !errors.Is(err, ErrInvalidSampleRate) {
		t.Fatalf("Analyze(fs=0) error = %v, want %v", err, ErrInvalidSampleRate)
	}
	if _, err := Analyze(make([]complex128, 16), 1000); !errors.Is(err, ErrSilent) {
		t.Fatalf("Analyze(zeros) error = %v, want %v", err, ErrSilent)
	}
	if _, err := Analyze(tone(8, 0, 8), 8, WithFFTSize(100)); !errors.Is(err, ErrInvalidFFTSize) {
		t.Fatalf("WithFFTSize(100) error = %v, want %v", err, ErrInvalidFFTSize)
	}
	if _, err := Analyze(tone(8, 0, 8), 8, WithThresholdDB(0)); !errors.Is(err, ErrInvalidThreshold) {
		t.Fatalf("WithThresholdDB(0) error = %v, want %v", err, ErrInvalidThreshold)
	}
	if _, err := Analyze(tone(8, 0, 8), 8, WithWindow(window.Type(99))); err == nil {
		t.Fatal("expected error for unknown window")
	}
}

func TestInstantaneousFrequencyFollowsChirp(t *testing.T) {
	s, err := css.New(chirpCfg)
	if err != nil {
		t.Fatalf("css.New() error = %v", err)
	}

	const value = 700
	var rec testutil.Recorder
	if err := s.Synthesize(css.Symbol{Value: value}, &rec); err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}

	got := InstantaneousFrequency(rec.Samples, float64(chirpCfg.SampleRate))
	if len(got) != len(rec.Samples)-1 {
		t.Fatalf("len = %d, want %d", len(got), len(rec.Samples)-1)
	}

	alphabet := float64(chirpCfg.AlphabetSize())
	step := chirpCfg.Bandwidth / float64(chirpCfg.SampleRate)
	shift := float64(value)
	for n, f := range got {
		want := s.FrequencyOffset() + s.InstantaneousFrequency(shift, false)
		if math.Abs(f-want) > 1e-6 {
			t.Fatalf("sample %d: frequency = %g, want %g", n, f, want)
		}
		shift += step
		if shift >= alphabet {
			shift -= alphabet
		}
	}
}

func TestInstantaneousFrequencyInverseSymmetry(t *testing.T) {
	fs := float64(chirpCfg.SampleRate)
	up := InstantaneousFrequency(synthesize(t, chirpCfg, css.Symbol{Value: 123}, css.WithFrequencyOffset(0)), fs)
	down := InstantaneousFrequency(synthesize(t, chirpCfg, css.Symbol{Value: 123, Inverse: true}, css.WithFrequencyOffset(0)), fs)

	for n := range up {
		if sum := up[n] + down[n]; math.Abs(sum-chirpCfg.Bandwidth) > 1e-6 {
			t.Fatalf("sample %d: up + down = %g, want %g", n, sum, chirpCfg.Bandwidth)
		}
	}
}

func TestInstantaneousFrequencyShortInput(t *testing.T) {
	if got := InstantaneousFrequency([]complex128{1}, 1000); got != nil {
		t.Fatalf("InstantaneousFrequency(1 sample) = %v, want nil", got)
	}
	if got := InstantaneousFrequency(tone(4, 10, 100), 0); got != nil {
		t.Fatalf("InstantaneousFrequency(fs=0) = %v, want nil", got)
	}
}
