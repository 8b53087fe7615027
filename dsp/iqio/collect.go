package iqio

import "github.com/cwbudde/algo-css/dsp/css"

// Collector keeps every sample it receives in memory.
type Collector struct {
	Samples []complex128
	limit   int
}

// NewCollector returns a collector that keeps at most limit samples and
// drops the rest; limit <= 0 keeps everything.
func NewCollector(limit int) *Collector {
	return &Collector{limit: limit}
}

// WriteIQ appends one sample.
func (c *Collector) WriteIQ(i, q float64) error {
	if c.limit > 0 && len(c.Samples) >= c.limit {
		return nil
	}
	c.Samples = append(c.Samples, complex(i, q))
	return nil
}

type tee []css.Sink

// Tee returns a sink that forwards every sample to each of sinks in order.
// It stops at, and returns, the first error.
func Tee(sinks ...css.Sink) css.Sink {
	out := make(tee, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

func (t tee) WriteIQ(i, q float64) error {
	for _, s := range t {
		if err := s.WriteIQ(i, q); err != nil {
			return err
		}
	}
	return nil
}
