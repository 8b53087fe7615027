// Package frame assembles chirp symbols into a LoRa-style frame: a run of
// up-chirp preamble symbols, the sync word, down-chirp delimiters and the
// payload.
package frame

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/cwbudde/algo-css/dsp/css"
)

// Defaults of the reference frame layout.
const (
	DefaultPreambleLength  = 8
	DefaultDelimiterLength = 2
	DefaultSyncSymbol      = 32
)

var (
	ErrInvalidLayout    = errors.New("frame: invalid layout")
	ErrNilSynthesizer   = errors.New("frame: synthesizer is nil")
	ErrSymbolOutOfRange = css.ErrSymbolOutOfRange
)

// Layout describes the symbols that precede the payload.
type Layout struct {
	PreambleLength  int   `yaml:"preamble"`   // up-chirps of value 0
	SyncWord        []int `yaml:"sync_word"`  // up-chirps carrying the sync word
	DelimiterLength int   `yaml:"delimiters"` // down-chirps of value 0
}

// DefaultLayout returns 8 preamble symbols, the sync word {32, 32} and two
// down-chirps.
func DefaultLayout() Layout {
	return Layout{
		PreambleLength:  DefaultPreambleLength,
		SyncWord:        []int{DefaultSyncSymbol, DefaultSyncSymbol},
		DelimiterLength: DefaultDelimiterLength,
	}
}

// Validate checks lengths and that sync word symbols fit the alphabet of cfg.
func (l Layout) Validate(cfg css.Config) error {
	if l.PreambleLength < 0 {
		return fmt.Errorf("%w: preamble length %d < 0", ErrInvalidLayout, l.PreambleLength)
	}
	if l.DelimiterLength < 0 {
		return fmt.Errorf("%w: delimiter length %d < 0", ErrInvalidLayout, l.DelimiterLength)
	}
	for i, v := range l.SyncWord {
		if err := (css.Symbol{Value: v}).Validate(cfg); err != nil {
			return fmt.Errorf("%w: sync word symbol %d: %w", ErrInvalidLayout, i, err)
		}
	}
	return nil
}

// HeaderLength returns the number of symbols before the payload.
func (l Layout) HeaderLength() int {
	return l.PreambleLength + len(l.SyncWord) + l.DelimiterLength
}

// Builder drives a synthesizer through complete frames. The synthesizer's
// phase carries on from frame to frame.
type Builder struct {
	synth  *css.Synthesizer
	layout Layout
}

// NewBuilder returns a builder for synth using layout.
func NewBuilder(synth *css.Synthesizer, layout Layout) (*Builder, error) {
	if synth == nil {
		return nil, ErrNilSynthesizer
	}
	if err := layout.Validate(synth.Config()); err != nil {
		return nil, err
	}

	sync := make([]int, len(layout.SyncWord))
	copy(sync, layout.SyncWord)
	layout.SyncWord = sync

	return &Builder{synth: synth, layout: layout}, nil
}

// Layout returns the frame layout.
func (b *Builder) Layout() Layout { return b.layout }

// Symbols returns the full symbol sequence of a frame carrying payload.
func (b *Builder) Symbols(payload []int) ([]css.Symbol, error) {
	cfg := b.synth.Config()
	for i, v := range payload {
		if err := (css.Symbol{Value: v}).Validate(cfg); err != nil {
			return nil, fmt.Errorf("frame: payload symbol %d (%d): %w", i, v, err)
		}
	}

	syms := make([]css.Symbol, 0, b.layout.HeaderLength()+len(payload))
	for range b.layout.PreambleLength {
		syms = append(syms, css.Symbol{Value: 0})
	}
	for _, v := range b.layout.SyncWord {
		syms = append(syms, css.Symbol{Value: v})
	}
	for range b.layout.DelimiterLength {
		syms = append(syms, css.Symbol{Value: 0, Inverse: true})
	}
	for _, v := range payload {
		syms = append(syms, css.Symbol{Value: v})
	}

	return syms, nil
}

// Write synthesizes a frame carrying payload into sink. Payload symbols are
// validated before any sample is produced.
func (b *Builder) Write(payload []int, sink css.Sink) error {
	syms, err := b.Symbols(payload)
	if err != nil {
		return err
	}

	for i, sym := range syms {
		if err := b.synth.Synthesize(sym, sink); err != nil {
			return fmt.Errorf("frame: symbol %d: %w", i, err)
		}
	}

	return nil
}

// NumSamples returns the number of samples in a frame with payloadLen
// payload symbols.
func (b *Builder) NumSamples(payloadLen int) int {
	return (b.layout.HeaderLength() + payloadLen) * b.synth.SamplesPerSymbol()
}

// Duration returns the air time of a frame with payloadLen payload symbols.
func (b *Builder) Duration(payloadLen int) time.Duration {
	return time.Duration(b.layout.HeaderLength()+payloadLen) * b.synth.Config().SymbolDuration()
}

// RandomPayload returns n pseudo-random symbols of the alphabet of cfg.
// The same seed always yields the same payload.
func RandomPayload(cfg css.Config, n int, seed int64) []int {
	if n <= 0 {
		return nil
	}

	mask := cfg.AlphabetSize() - 1
	rng := rand.New(rand.NewSource(seed))

	out := make([]int, n)
	for i := range out {
		out[i] = rng.Int() & mask
	}
	return out
}
