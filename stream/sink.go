package stream

import (
	"fmt"

	"github.com/cwbudde/algo-css/dsp/iqio"
)

const defaultBlockSamples = 4096

// Sink encodes samples into blocks and broadcasts each full block.
type Sink struct {
	hub    *Hub
	format iqio.Format
	block  []byte
	size   int
}

// Sink returns a sink broadcasting blocks of blockSamples samples encoded
// in format. blockSamples <= 0 selects a default.
func (h *Hub) Sink(format iqio.Format, blockSamples int) (*Sink, error) {
	if !format.Valid() {
		return nil, fmt.Errorf("%w: %v", iqio.ErrUnknownFormat, format)
	}
	if blockSamples <= 0 {
		blockSamples = defaultBlockSamples
	}

	size := blockSamples * format.BytesPerSample()
	return &Sink{
		hub:    h,
		format: format,
		block:  make([]byte, 0, size),
		size:   size,
	}, nil
}

// WriteIQ encodes one sample and broadcasts the block once it is full.
func (s *Sink) WriteIQ(i, q float64) error {
	s.block = s.format.AppendSample(s.block, i, q)
	if len(s.block) >= s.size {
		return s.Flush()
	}
	return nil
}

// Flush broadcasts a partially filled block.
func (s *Sink) Flush() error {
	if len(s.block) == 0 {
		return nil
	}

	msg := s.block
	s.block = make([]byte, 0, s.size)
	return s.hub.Broadcast(msg)
}
