package testutil

// Recorder is a sample sink that keeps everything it receives.
type Recorder struct {
	Samples []complex128
}

// WriteIQ appends one sample.
func (r *Recorder) WriteIQ(i, q float64) error {
	r.Samples = append(r.Samples, complex(i, q))
	return nil
}

// Len returns the number of recorded samples.
func (r *Recorder) Len() int { return len(r.Samples) }

// Reset drops recorded samples and keeps the backing array.
func (r *Recorder) Reset() { r.Samples = r.Samples[:0] }
