// Package transform implements the chunked batch transform: column
// projection followed by row predicate filtering.
//
// Design goals:
//   - No whole-file buffering; the pipeline feeds bounded batches through
//     Apply one at a time.
//   - Avoid per-row lookups; a Plan resolves column positions once per batch
//     column layout and is reused for every row.
//   - Pure with respect to its inputs; safe to invoke concurrently with
//     disjoint batches.
package transform

import (
	"context"

	"tabclean/internal/records"
	"tabclean/internal/validate"
)

// cancelCheckEvery bounds how many rows are filtered between cooperative
// cancellation checks inside a single batch.
const cancelCheckEvery = 1024

// ColumnCheck pairs a column name with the predicate its values must pass.
type ColumnCheck struct {
	Column string
	Spec   validate.Spec
}

// Plan carries the projection and validation configuration for one task.
// It is compiled once per task and shared by every batch of that task.
type Plan struct {
	// Projection is the ordered list of column names to retain.
	Projection []string
	// Checks lists the (column, predicate) pairs rows must satisfy.
	Checks []ColumnCheck
}

// binding is the per-batch resolution of a Plan against a concrete column
// layout: source indexes for projected columns and projected indexes for
// checked columns.
type binding struct {
	outCols []string
	srcIx   []int // srcIx[out] = index into the source row
	checks  []boundCheck
}

type boundCheck struct {
	ix   int // index into the projected row
	spec validate.Spec
}

// bind resolves the plan against the batch's columns.
//
// Projected columns absent from the batch are dropped (header mismatch is a
// legitimate state, not an error). Checks naming columns outside the
// projected set are skipped; the row passes that check by default.
func (p Plan) bind(columns []string) binding {
	ix := make(map[string]int, len(columns))
	for i, c := range columns {
		ix[c] = i
	}

	var b binding
	for _, name := range p.Projection {
		si, ok := ix[name]
		if !ok {
			continue
		}
		b.outCols = append(b.outCols, name)
		b.srcIx = append(b.srcIx, si)
	}

	outIx := make(map[string]int, len(b.outCols))
	for i, c := range b.outCols {
		outIx[c] = i
	}
	for _, c := range p.Checks {
		if oi, ok := outIx[c.Column]; ok {
			b.checks = append(b.checks, boundCheck{ix: oi, spec: c.Spec})
		}
	}
	return b
}

// Apply projects and filters one batch.
//
// The empty-intersection case returns a batch with zero columns and zero
// rows. Surviving rows keep their original relative order. Apply checks ctx
// between blocks of rows so that very large batches still honor cooperative
// cancellation; on cancellation it returns ctx.Err() and a partial result
// that the caller must discard.
func (p Plan) Apply(ctx context.Context, in records.Batch) (records.Batch, error) {
	b := p.bind(in.Columns)
	if len(b.outCols) == 0 {
		return records.Batch{}, nil
	}

	out := records.New(b.outCols, in.Len())
	for n, row := range in.Rows {
		if n%cancelCheckEvery == 0 {
			select {
			case <-ctx.Done():
				return records.Batch{}, ctx.Err()
			default:
			}
		}

		keep := true
		for _, c := range b.checks {
			if !c.spec.Valid(records.Cell(row, b.srcIx[c.ix])) {
				keep = false
				break
			}
		}
		if !keep {
			continue
		}

		projected := make([]string, len(b.srcIx))
		for i, si := range b.srcIx {
			projected[i] = records.Cell(row, si)
		}
		out.Rows = append(out.Rows, projected)
	}
	return out, nil
}
