package css

// Sink receives synthesized samples, one call per sample in time order.
// A returned error stops synthesis of the current symbol.
type Sink interface {
	WriteIQ(i, q float64) error
}

// SinkFunc adapts an ordinary function to the [Sink] interface.
type SinkFunc func(i, q float64) error

// WriteIQ calls f(i, q).
func (f SinkFunc) WriteIQ(i, q float64) error { return f(i, q) }

// Discard is a [Sink] that accepts and drops every sample.
var Discard Sink = SinkFunc(func(float64, float64) error { return nil })
