// Package css synthesizes LoRa-style chirp-spread-spectrum symbols as a
// stream of complex baseband samples.
//
// A symbol of spreading factor SF is a linear frequency sweep across the
// signal bandwidth that starts at a cyclic offset given by the symbol value
// and wraps from the upper band edge back to the lower one. Up-chirps carry
// data; down-chirps (inverse symbols) mark synchronization boundaries.
//
// The [Synthesizer] is a phase accumulator. It keeps the carrier phase
// across calls so that consecutive symbols form one phase-continuous
// waveform, and it hands every sample to a [Sink] as soon as it is computed,
// so memory use does not depend on the spreading factor or frame length.
//
// # Usage
//
//	s, err := css.New(css.Config{
//	    Bandwidth:       125000,
//	    SpreadingFactor: 8,
//	    SampleRate:      1000000,
//	})
//	if err != nil {
//	    return err
//	}
//	err = s.Synthesize(css.Symbol{Value: 32}, css.SinkFunc(func(i, q float64) error {
//	    // consume one I/Q sample
//	    return nil
//	}))
//
// The same samples are available lazily through [Synthesizer.Samples].
//
// A Synthesizer is not safe for concurrent use. Use one per transmit stream.
package css
