package iqio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-css/dsp/core"
)

// ErrUnknownFormat is returned for unsupported sample formats.
var ErrUnknownFormat = errors.New("iqio: unknown sample format")

// Format identifies an interleaved I/Q sample encoding.
type Format int

const (
	// FormatS8 is signed 8-bit, each component scaled by 100 and truncated.
	FormatS8 Format = iota
	// FormatU8 is unsigned 8-bit centered on 127.5, as produced by rtl-sdr.
	FormatU8
	// FormatS16LE is signed 16-bit little endian at full scale.
	FormatS16LE
	// FormatCF32LE is IEEE 754 float32 little endian.
	FormatCF32LE
)

const (
	s8Scale  = 100
	u8Scale  = 127.5
	s16Scale = 32767
)

var formatNames = [...]string{
	FormatS8:     "s8",
	FormatU8:     "u8",
	FormatS16LE:  "s16le",
	FormatCF32LE: "cf32le",
}

// ParseFormat resolves a format name such as "s8" or "cf32le".
func ParseFormat(name string) (Format, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for f, n := range formatNames {
		if n == name {
			return Format(f), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// String returns the format name.
func (f Format) String() string {
	if f >= 0 && int(f) < len(formatNames) {
		return formatNames[f]
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// BytesPerSample returns the encoded size of one complex sample.
func (f Format) BytesPerSample() int {
	switch f {
	case FormatS8, FormatU8:
		return 2
	case FormatS16LE:
		return 4
	case FormatCF32LE:
		return 8
	default:
		return 0
	}
}

// Valid reports whether f is a known format.
func (f Format) Valid() bool { return f.BytesPerSample() > 0 }

// AppendSample appends the encoding of (i, q) to dst.
func (f Format) AppendSample(dst []byte, i, q float64) []byte {
	switch f {
	case FormatS8:
		return append(dst, byte(int8(i*s8Scale)), byte(int8(q*s8Scale)))
	case FormatU8:
		return append(dst, uint8(i*u8Scale+u8Scale), uint8(q*u8Scale+u8Scale))
	case FormatS16LE:
		dst = binary.LittleEndian.AppendUint16(dst, uint16(quantize16(i)))
		return binary.LittleEndian.AppendUint16(dst, uint16(quantize16(q)))
	case FormatCF32LE:
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(float32(i)))
		return binary.LittleEndian.AppendUint32(dst, math.Float32bits(float32(q)))
	default:
		return dst
	}
}

// DecodeSample decodes one complex sample from the front of src. It is the
// inverse of AppendSample up to quantization.
func (f Format) DecodeSample(src []byte) (i, q float64, err error) {
	if !f.Valid() {
		return 0, 0, ErrUnknownFormat
	}
	if len(src) < f.BytesPerSample() {
		return 0, 0, fmt.Errorf("iqio: short sample: %d < %d bytes", len(src), f.BytesPerSample())
	}

	switch f {
	case FormatS8:
		return float64(int8(src[0])) / s8Scale, float64(int8(src[1])) / s8Scale, nil
	case FormatU8:
		return (float64(src[0]) - u8Scale) / u8Scale, (float64(src[1]) - u8Scale) / u8Scale, nil
	case FormatS16LE:
		return float64(int16(binary.LittleEndian.Uint16(src))) / s16Scale,
			float64(int16(binary.LittleEndian.Uint16(src[2:]))) / s16Scale, nil
	default:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(src))),
			float64(math.Float32frombits(binary.LittleEndian.Uint32(src[4:]))), nil
	}
}

func quantize16(x float64) int16 {
	return int16(core.Clamp(x, -1, 1) * s16Scale)
}
