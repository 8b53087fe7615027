package iqio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	wavHeaderSize    = 44
	wavChannels      = 2
	wavBitsPerSample = 16
)

// ErrWAVTooLarge is returned once the data chunk would exceed 4 GiB.
var ErrWAVTooLarge = errors.New("iqio: wav data chunk too large")

type wavHeader struct {
	RIFF          [4]byte
	ChunkSize     uint32
	WAVE          [4]byte
	Fmt           [4]byte
	FmtSize       uint32
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Data          [4]byte
	DataSize      uint32
}

// WAVWriter writes samples as a two-channel 16-bit PCM WAV stream, I on
// the left channel and Q on the right. The RIFF sizes are patched in by
// Close, so the destination must be seekable.
type WAVWriter struct {
	ws         io.WriteSeeker
	bw         *bufio.Writer
	sampleRate int
	dataSize   uint32
	buf        []byte
	closed     bool
}

// NewWAVWriter writes a placeholder header to ws and returns the writer.
func NewWAVWriter(ws io.WriteSeeker, sampleRate int) (*WAVWriter, error) {
	if sampleRate <= 0 || sampleRate > math.MaxUint32/(wavChannels*wavBitsPerSample/8) {
		return nil, fmt.Errorf("iqio: wav sample rate out of range: %d", sampleRate)
	}

	w := &WAVWriter{
		ws:         ws,
		sampleRate: sampleRate,
		buf:        make([]byte, 0, 4),
	}
	if err := w.writeHeader(); err != nil {
		return nil, err
	}
	w.bw = bufio.NewWriterSize(ws, 64*1024)

	return w, nil
}

func (w *WAVWriter) writeHeader() error {
	blockAlign := uint16(wavChannels * wavBitsPerSample / 8)
	h := wavHeader{
		RIFF:          [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     w.dataSize + wavHeaderSize - 8,
		WAVE:          [4]byte{'W', 'A', 'V', 'E'},
		Fmt:           [4]byte{'f', 'm', 't', ' '},
		FmtSize:       16,
		AudioFormat:   1, // PCM
		Channels:      wavChannels,
		SampleRate:    uint32(w.sampleRate),
		ByteRate:      uint32(w.sampleRate) * uint32(blockAlign),
		BlockAlign:    blockAlign,
		BitsPerSample: wavBitsPerSample,
		Data:          [4]byte{'d', 'a', 't', 'a'},
		DataSize:      w.dataSize,
	}

	if err := binary.Write(w.ws, binary.LittleEndian, &h); err != nil {
		return fmt.Errorf("iqio: wav header: %w", err)
	}
	return nil
}

// WriteIQ appends one stereo frame.
func (w *WAVWriter) WriteIQ(i, q float64) error {
	if w.closed {
		return errors.New("iqio: wav writer closed")
	}
	if w.dataSize > math.MaxUint32-wavHeaderSize-4 {
		return ErrWAVTooLarge
	}

	w.buf = FormatS16LE.AppendSample(w.buf[:0], i, q)
	if _, err := w.bw.Write(w.buf); err != nil {
		return fmt.Errorf("iqio: wav write: %w", err)
	}
	w.dataSize += uint32(len(w.buf))

	return nil
}

// Frames returns the number of stereo frames written.
func (w *WAVWriter) Frames() int64 {
	return int64(w.dataSize) / (wavChannels * wavBitsPerSample / 8)
}

// Close flushes buffered frames and rewrites the header with the final
// sizes. It does not close the underlying writer.
func (w *WAVWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.bw.Flush(); err != nil {
		return fmt.Errorf("iqio: wav flush: %w", err)
	}
	if _, err := w.ws.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("iqio: wav seek: %w", err)
	}
	if err := w.writeHeader(); err != nil {
		return err
	}
	if _, err := w.ws.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("iqio: wav seek: %w", err)
	}

	return nil
}
