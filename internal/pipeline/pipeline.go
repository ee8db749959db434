// Package pipeline runs the per-file transform: it owns one input/output
// pair, streams bounded batches through the projection/filter transform,
// appends results to the output, and reports progress fractions.
//
// A pipeline is the unit of cancellation and failure. Every error is caught
// here and reported through the Result; nothing propagates to sibling tasks
// or to the scheduler's control flow. Partial output from a cancelled or
// failed task is left on disk as-is: debuggability over cleanliness.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"path/filepath"
	"strings"
	"time"

	"tabclean/internal/metrics"
	"tabclean/internal/parser/csv"
	"tabclean/internal/parser/xlsx"
	"tabclean/internal/records"
	"tabclean/internal/transform"
)

// Task is one file's complete processing request. Immutable once created;
// consumed exactly once by Run.
type Task struct {
	// ID is the stable identity used for progress and result routing.
	ID int64
	// Input and Output are the file paths. Output collisions between tasks
	// are not deduplicated; the last writer wins.
	Input  string
	Output string
	// Plan carries the column projection and the per-column validations.
	Plan transform.Plan
}

// Options tunes a single pipeline run.
type Options struct {
	// BatchRows bounds the rows held in memory per batch. Values < 1 use
	// records.DefaultBatchRows.
	BatchRows int
	// Job is the metrics label for this run.
	Job string
}

// Result is the terminal outcome of one task.
type Result struct {
	// Cancelled is set when the run stopped at a cooperative cancellation
	// point. Kind and Err are zero in that case.
	Cancelled bool
	// Kind classifies Err. KindNone on success.
	Kind ErrKind
	Err  error

	// RowsIn and RowsKept count data rows read and rows surviving the
	// transform. Valid on success; best-effort otherwise.
	RowsIn   int64
	RowsKept int64
	// Fingerprint is the xxh3 content hash of the finished output file,
	// hex-encoded. Only set on success.
	Fingerprint string
}

// Failed reports whether the task ended in a failure terminal state.
func (r Result) Failed() bool { return !r.Cancelled && r.Kind != KindNone }

type format uint8

const (
	formatUnknown format = iota
	formatCSV
	formatXLSX
)

func detectFormat(path string) format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return formatCSV
	case ".xlsx", ".xls":
		return formatXLSX
	default:
		return formatUnknown
	}
}

// sink abstracts the two output writers. Both write the header once and
// tolerate zero-column batches.
type sink interface {
	Append(records.Batch) error
	Close() error
}

// Run executes the task to its terminal state. onProgress receives percent
// values in [0,100], monotonically non-decreasing, and is never called after
// Run returns. A nil onProgress is allowed.
//
// Cancellation is cooperative: ctx is checked at every batch boundary and
// inside the row-filtering loop. On cancellation the current batch is
// discarded while previously appended batches stay in the output file.
func Run(ctx context.Context, t Task, opt Options, onProgress func(pct int)) Result {
	start := time.Now()
	res := run(ctx, t, opt, newProgress(onProgress))

	var stepErr error
	switch {
	case res.Cancelled:
		stepErr = context.Canceled
	case res.Failed():
		stepErr = res.Err
	}
	metrics.RecordStep(opt.Job, "pipeline", stepErr, time.Since(start))
	metrics.RecordRows(opt.Job, "read", res.RowsIn)
	metrics.RecordRows(opt.Job, "kept", res.RowsKept)
	metrics.RecordRows(opt.Job, "dropped", res.RowsIn-res.RowsKept)

	return res
}

func run(ctx context.Context, t Task, opt Options, prog *progress) Result {
	inFmt := detectFormat(t.Input)
	outFmt := detectFormat(t.Output)
	if inFmt == formatUnknown {
		return failf(KindUnsupportedFormat, "unsupported input file type %q", filepath.Ext(t.Input))
	}
	if outFmt == formatUnknown {
		return failf(KindUnsupportedFormat, "unsupported output file type %q", filepath.Ext(t.Output))
	}

	out, err := newSink(outFmt, t.Output)
	if err != nil {
		return fail(KindIO, err)
	}

	var res Result
	if inFmt == formatXLSX {
		res = runSpreadsheet(ctx, t, out, prog)
	} else {
		res = runDelimited(ctx, t, opt, out, prog)
	}

	if err := out.Close(); err != nil && !res.Cancelled && res.Kind == KindNone {
		return fail(KindIO, fmt.Errorf("close output: %w", err))
	}
	if res.Cancelled || res.Kind != KindNone {
		return res
	}

	fp, err := fingerprintFile(t.Output)
	if err != nil {
		return fail(KindIO, fmt.Errorf("fingerprint output: %w", err))
	}
	res.Fingerprint = fp
	prog.report(100)
	return res
}

func newSink(f format, path string) (sink, error) {
	if f == formatXLSX {
		return xlsx.NewWriter(path)
	}
	return csv.NewWriter(path)
}

// runDelimited streams fixed-size batches: read, transform, append, report.
func runDelimited(ctx context.Context, t Task, opt Options, out sink, prog *progress) Result {
	r, err := csv.NewReader(t.Input, opt.BatchRows)
	if err != nil {
		return classifyReadErr(err)
	}
	defer r.Close()

	var res Result
	batches := 0
	for {
		select {
		case <-ctx.Done():
			return Result{Cancelled: true, RowsIn: res.RowsIn, RowsKept: res.RowsKept}
		default:
		}

		batch, err := r.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return Result{Cancelled: true, RowsIn: res.RowsIn, RowsKept: res.RowsKept}
			}
			return fail(KindDecode, err)
		}

		cleaned, err := t.Plan.Apply(ctx, batch)
		if err != nil {
			// Apply only fails on cancellation; the partial batch is
			// discarded, prior appends stay on disk.
			return Result{Cancelled: true, RowsIn: res.RowsIn, RowsKept: res.RowsKept}
		}
		if err := out.Append(cleaned); err != nil {
			return fail(KindIO, err)
		}

		res.RowsIn += int64(batch.Len())
		res.RowsKept += int64(cleaned.Len())
		batches++
		metrics.RecordBatches(opt.Job, 1)

		// Byte-approximate progress; capped below 100 until the terminal
		// event, and monotone by construction.
		if size := r.Size(); size > 0 {
			pct := int(r.BytesRead() * 100 / size)
			if pct > 99 {
				pct = 99
			}
			prog.report(pct)
		}

		if batches%50 == 0 {
			log.Printf("pipeline: task=%d file=%s batches=%d rows=%d kept=%d",
				t.ID, filepath.Base(t.Input), batches, res.RowsIn, res.RowsKept)
		}
	}
	return res
}

// runSpreadsheet loads the whole first worksheet as one batch; there is no
// native chunking, so progress jumps straight to 100 on completion.
func runSpreadsheet(ctx context.Context, t Task, out sink, prog *progress) Result {
	select {
	case <-ctx.Done():
		return Result{Cancelled: true}
	default:
	}

	batch, err := xlsx.Read(t.Input)
	if err != nil {
		return classifyReadErr(err)
	}

	cleaned, err := t.Plan.Apply(ctx, batch)
	if err != nil {
		return Result{Cancelled: true}
	}
	if err := out.Append(cleaned); err != nil {
		return fail(KindIO, err)
	}
	return Result{RowsIn: int64(batch.Len()), RowsKept: int64(cleaned.Len())}
}

// classifyReadErr separates filesystem failures from malformed-content
// failures when opening or parsing the input.
func classifyReadErr(err error) Result {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return fail(KindIO, err)
	}
	return fail(KindDecode, err)
}

func fail(kind ErrKind, err error) Result { return Result{Kind: kind, Err: err} }

func failf(kind ErrKind, format string, args ...any) Result {
	return Result{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// progress clamps percent reports to a monotone non-decreasing sequence.
type progress struct {
	fn   func(int)
	last int
}

func newProgress(fn func(int)) *progress { return &progress{fn: fn, last: -1} }

func (p *progress) report(pct int) {
	if p.fn == nil || pct <= p.last {
		return
	}
	p.last = pct
	p.fn(pct)
}
