// Package csv provides streaming, batch-oriented reading and writing of
// delimited-text files for the cleaning pipeline.
//
// Reading is BOM-tolerant (utf-8-sig input is common for exports from
// spreadsheet tools) and never buffers the whole file: rows are surfaced in
// bounded batches so peak memory stays O(batch). Writing emits a UTF-8 BOM
// and the header exactly once, then appends transformed batches.
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"tabclean/internal/records"
)

// Reader streams a delimited-text file as bounded row batches.
//
// The header row is consumed at construction time; data rows are surfaced by
// Next in batches of at most batchRows. Ragged rows are tolerated: short rows
// leave trailing columns absent, long rows are truncated to the header width.
type Reader struct {
	f         *os.File
	count     *countingReader
	cr        *csv.Reader
	columns   []string
	batchRows int
	size      int64
	line      int
}

// NewReader opens path for streaming and reads its header row.
//
// batchRows bounds the rows per batch; values < 1 fall back to
// records.DefaultBatchRows. The file is decoded through a BOM-stripping
// UTF-8 decoder, so utf-8-sig input needs no special handling by callers.
func NewReader(path string, batchRows int) (*Reader, error) {
	if batchRows < 1 {
		batchRows = records.DefaultBatchRows
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	var size int64
	if fi, err := f.Stat(); err == nil {
		size = fi.Size()
	}

	count := &countingReader{r: f}
	dec := transform.NewReader(count, unicode.UTF8BOM.NewDecoder())

	// Cell values pass through untouched; validators trim on their own, and
	// kept columns must reach the output byte-for-byte.
	cr := csv.NewReader(dec)
	cr.ReuseRecord = true
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1 // ragged input is tolerated, not an error

	hdr, err := cr.Read()
	if err != nil {
		f.Close()
		if err == io.EOF {
			return nil, fmt.Errorf("read header of %s: empty file", path)
		}
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	columns := make([]string, len(hdr))
	copy(columns, hdr)

	return &Reader{
		f:         f,
		count:     count,
		cr:        cr,
		columns:   columns,
		batchRows: batchRows,
		size:      size,
		line:      1,
	}, nil
}

// Columns returns the header row as read from the file.
func (r *Reader) Columns() []string { return r.columns }

// Size returns the file size in bytes, or 0 when unknown.
func (r *Reader) Size() int64 { return r.size }

// BytesRead returns the raw bytes consumed from the underlying file so far.
// It is the basis for byte-approximate progress reporting.
func (r *Reader) BytesRead() int64 { return r.count.n }

// Next reads up to batchRows rows and returns them as one Batch. It returns
// io.EOF once the input is exhausted; any other error is a parse failure at
// the reported input line.
func (r *Reader) Next(ctx context.Context) (records.Batch, error) {
	batch := records.New(r.columns, r.batchRows)

	for batch.Len() < r.batchRows {
		select {
		case <-ctx.Done():
			return records.Batch{}, ctx.Err()
		default:
		}

		rec, err := r.cr.Read()
		if err == io.EOF {
			if batch.Empty() {
				return records.Batch{}, io.EOF
			}
			return batch, nil
		}
		r.line++
		if err != nil {
			return records.Batch{}, fmt.Errorf("parse line %d: %w", r.line, err)
		}

		// ReuseRecord is on; copy the cells out. Long rows are truncated to
		// the header width.
		n := len(rec)
		if n > len(r.columns) {
			n = len(r.columns)
		}
		row := make([]string, n)
		copy(row, rec[:n])
		batch.Rows = append(batch.Rows, row)
	}
	return batch, nil
}

// Close releases the underlying file.
func (r *Reader) Close() error { return r.f.Close() }

// countingReader counts raw bytes as they are consumed from the wrapped
// reader. Only the reading goroutine touches n.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
