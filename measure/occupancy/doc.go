// Package occupancy measures where a block of synthesized complex baseband
// samples sits in frequency.
//
// [Analyze] windows and transforms one block, then reports the spectral peak,
// the band edges at a configurable level below the peak and the residual DC
// level. Frequencies are signed: bins in the upper half of the transform
// map to negative frequencies.
//
// [InstantaneousFrequency] estimates the per-sample frequency from the phase
// difference of adjacent samples, which follows a chirp's sweep directly.
package occupancy
