// Package iqio encodes synthesized I/Q samples and provides sinks that
// write them to streams, WAV files and Parquet tables.
//
// Every sink in this package implements css.Sink, so it can be handed
// directly to a synthesizer or a frame builder:
//
//	f, _ := os.Create("out.raw")
//	w := iqio.NewWriter(f, iqio.FormatS8)
//	err := builder.Write(payload, w)
//	err = w.Flush()
package iqio
