package iqio

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/segmentio/parquet-go"

	"github.com/cwbudde/algo-css/dsp/css"
)

// ParquetConfigKey is the key/value metadata entry holding the JSON
// encoded css.Config of the capture.
const ParquetConfigKey = "css_config"

const defaultParquetBlock = 4096

// IQRow is one sample of a Parquet capture.
type IQRow struct {
	Index int64   `parquet:"index"`
	I     float32 `parquet:"i"`
	Q     float32 `parquet:"q"`
}

// ParquetWriter stores samples as rows of a Parquet file. Rows are handed
// to the encoder in blocks.
type ParquetWriter struct {
	w      *parquet.GenericWriter[IQRow]
	rows   []IQRow
	block  int
	index  int64
	closed bool
}

// NewParquetWriter returns a writer to w recording cfg in the file
// metadata. blockSize <= 0 selects a default.
func NewParquetWriter(w io.Writer, cfg css.Config, blockSize int) (*ParquetWriter, error) {
	meta, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("iqio: parquet metadata: %w", err)
	}
	if blockSize <= 0 {
		blockSize = defaultParquetBlock
	}

	return &ParquetWriter{
		w: parquet.NewGenericWriter[IQRow](w,
			parquet.KeyValueMetadata(ParquetConfigKey, string(meta)),
		),
		rows:  make([]IQRow, 0, blockSize),
		block: blockSize,
	}, nil
}

// WriteIQ appends one row, flushing a full block to the encoder.
func (p *ParquetWriter) WriteIQ(i, q float64) error {
	if p.closed {
		return fmt.Errorf("iqio: parquet writer closed")
	}

	p.rows = append(p.rows, IQRow{Index: p.index, I: float32(i), Q: float32(q)})
	p.index++

	if len(p.rows) >= p.block {
		return p.flushRows()
	}
	return nil
}

func (p *ParquetWriter) flushRows() error {
	if len(p.rows) == 0 {
		return nil
	}
	if _, err := p.w.Write(p.rows); err != nil {
		return fmt.Errorf("iqio: parquet write: %w", err)
	}
	p.rows = p.rows[:0]
	return nil
}

// Rows returns the number of samples accepted so far.
func (p *ParquetWriter) Rows() int64 { return p.index }

// Close writes pending rows and the file footer. It does not close the
// underlying writer.
func (p *ParquetWriter) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true

	if err := p.flushRows(); err != nil {
		return err
	}
	if err := p.w.Close(); err != nil {
		return fmt.Errorf("iqio: parquet close: %w", err)
	}
	return nil
}
