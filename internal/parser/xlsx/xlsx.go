// Package xlsx adapts spreadsheet files to the pipeline's Batch model.
//
// Only the first worksheet is read, its first row is the header, and there is
// no native chunking: a spreadsheet arrives as one Batch. Writing goes
// through excelize's stream writer so multi-batch appends stay cheap, with
// the workbook materialized on Close.
package xlsx

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"tabclean/internal/records"
)

const sheetName = "Sheet1"

// Read loads the first worksheet of the file at path into a single Batch.
// Files without a header row decode to an empty Batch.
func Read(path string) (records.Batch, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return records.Batch{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return records.Batch{}, fmt.Errorf("%s: no worksheets", path)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return records.Batch{}, fmt.Errorf("read %s: %w", path, err)
	}
	if len(rows) == 0 {
		return records.Batch{}, nil
	}

	b := records.New(rows[0], len(rows)-1)
	for _, row := range rows[1:] {
		// GetRows already trims trailing empty cells, which matches the
		// ragged-row tolerance of the Batch model.
		if len(row) > len(b.Columns) {
			row = row[:len(b.Columns)]
		}
		b.Rows = append(b.Rows, row)
	}
	return b, nil
}

// Writer accumulates batches into a new workbook written on Close.
type Writer struct {
	path        string
	f           *excelize.File
	sw          *excelize.StreamWriter
	nextRow     int
	wroteHeader bool
}

// NewWriter prepares a workbook that will be saved to path on Close,
// replacing any existing file.
func NewWriter(path string) (*Writer, error) {
	f := excelize.NewFile()
	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stream writer: %w", err)
	}
	return &Writer{path: path, f: f, sw: sw, nextRow: 1}, nil
}

// Append writes the batch's rows, emitting the header once at the first
// batch with a non-empty column set.
func (w *Writer) Append(b records.Batch) error {
	if len(b.Columns) == 0 {
		return nil
	}
	if !w.wroteHeader {
		if err := w.writeRow(b.Columns); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		w.wroteHeader = true
	}
	for _, row := range b.Rows {
		if err := w.writeRow(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	return nil
}

func (w *Writer) writeRow(cells []string) error {
	vals := make([]interface{}, len(cells))
	for i, c := range cells {
		vals[i] = c
	}
	cell, err := excelize.CoordinatesToCellName(1, w.nextRow)
	if err != nil {
		return err
	}
	w.nextRow++
	return w.sw.SetRow(cell, vals)
}

// Close flushes the stream writer and saves the workbook to disk.
func (w *Writer) Close() error {
	if err := w.sw.Flush(); err != nil {
		w.f.Close()
		return fmt.Errorf("flush: %w", err)
	}
	if err := w.f.SaveAs(w.path); err != nil {
		w.f.Close()
		return fmt.Errorf("save %s: %w", w.path, err)
	}
	return w.f.Close()
}
