package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"tabclean/internal/records"
)

// Writer appends transformed batches to a delimited-text output file.
//
// The file is created (truncating any previous contents) on construction.
// Output is utf-8-sig: a UTF-8 BOM is emitted before the first byte. The
// header row is written once, at the first appended batch that carries a
// non-empty column set; later appends never rewrite it.
type Writer struct {
	f           *os.File
	enc         io.WriteCloser
	cw          *csv.Writer
	wroteHeader bool
}

// NewWriter creates (or truncates) the output file at path.
func NewWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	enc := transform.NewWriter(f, unicode.UTF8BOM.NewEncoder())
	return &Writer{f: f, enc: enc, cw: csv.NewWriter(enc)}, nil
}

// Append writes the batch's rows. Batches with zero columns are skipped
// entirely; an empty projection intersection therefore produces an empty
// output file.
func (w *Writer) Append(b records.Batch) error {
	if len(b.Columns) == 0 {
		return nil
	}
	if !w.wroteHeader {
		if err := w.cw.Write(b.Columns); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		w.wroteHeader = true
	}
	for _, row := range b.Rows {
		// Pad ragged rows so every record matches the header width.
		out := row
		if len(row) < len(b.Columns) {
			out = make([]string, len(b.Columns))
			copy(out, row)
		}
		if err := w.cw.Write(out); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.cw.Flush()
	return w.cw.Error()
}

// Close flushes buffered rows and closes the file.
func (w *Writer) Close() error {
	w.cw.Flush()
	if err := w.cw.Error(); err != nil {
		w.f.Close()
		return err
	}
	if err := w.enc.Close(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}
