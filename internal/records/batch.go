// Package records defines the in-memory row batch moved through the cleaning
// pipeline. A Batch is a bounded slice of positional rows plus the column
// names that give the positions meaning.
//
// Design goals:
//   - Positional rows ([]string) instead of per-row maps; column lookups are
//     resolved once per batch, not once per cell.
//   - Ragged input is tolerated: a row shorter than the column set simply has
//     no value for the trailing columns.
//   - At most one Batch per active pipeline is resident at a time, which is
//     the invariant that bounds memory on large files.
package records

// Batch holds up to a configured number of rows sharing one column layout.
//
// Rows may be shorter than Columns (ragged input); a missing cell reads as
// the empty string. Rows must never be longer than Columns.
type Batch struct {
	Columns []string
	Rows    [][]string
}

// DefaultBatchRows is the default bound on rows per batch. It mirrors the
// chunk size the pipeline has always used for delimited-text streaming.
const DefaultBatchRows = 20000

// New returns an empty Batch for the given column layout with row capacity
// hint n.
func New(columns []string, n int) Batch {
	return Batch{Columns: columns, Rows: make([][]string, 0, n)}
}

// Len returns the number of rows in the batch.
func (b Batch) Len() int { return len(b.Rows) }

// Empty reports whether the batch has no rows.
func (b Batch) Empty() bool { return len(b.Rows) == 0 }

// ColumnIndex returns the position of name in Columns, or -1.
func (b Batch) ColumnIndex(name string) int {
	for i, c := range b.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Cell returns the value of column i in row, treating ragged rows as empty.
func Cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
