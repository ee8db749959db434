package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"tabclean/internal/config"
	"tabclean/internal/history"
	"tabclean/internal/metrics"
	"tabclean/internal/pipeline"
	"tabclean/internal/sched"
	"tabclean/internal/transform"
	"tabclean/internal/validate"
)

// runtimeConfig contains the resolved concurrency and batching configuration
// for a run. Values come from the job config with optional environment
// variable overrides (12-factor style).
type runtimeConfig struct {
	concurrency int
	batchRows   int
}

func newRuntimeConfig(j config.Job) runtimeConfig {
	return runtimeConfig{
		concurrency: pickInt(j.Runtime.Concurrency, getenvInt("TABCLEAN_CONCURRENCY", 2)),
		batchRows:   pickInt(j.Runtime.BatchRows, getenvInt("TABCLEAN_BATCH_ROWS", 0)),
	}
}

// buildTasks turns a validated job into scheduler tasks, one per input, in
// the job's input order. Pattern compilation happens once here, before
// anything is queued, so a bad pattern never reaches the worker pool.
func buildTasks(j config.Job) ([]pipeline.Task, error) {
	spec := validate.URL()
	if j.Pattern != "" {
		var err error
		spec, err = validate.Compile(j.Pattern)
		if err != nil {
			return nil, fmt.Errorf("pattern: %w", err)
		}
	}

	checks := make([]transform.ColumnCheck, 0, len(j.ValidateColumns))
	for _, c := range j.ValidateColumns {
		checks = append(checks, transform.ColumnCheck{Column: c, Spec: spec})
	}
	plan := transform.Plan{Projection: j.KeepColumns, Checks: checks}

	tasks := make([]pipeline.Task, 0, len(j.Inputs))
	for i, in := range j.Inputs {
		tasks = append(tasks, pipeline.Task{
			ID:     int64(i),
			Input:  in,
			Output: j.OutputPath(in),
			Plan:   plan,
		})
	}
	return tasks, nil
}

// runJob executes every input of the job through the scheduler, consuming
// the event stream for logs, metrics, and history until the run drains.
//
// SIGINT/SIGTERM stop the run cooperatively: active pipelines cancel at
// their next check point and queued tasks are abandoned.
func runJob(ctx context.Context, j config.Job) error {
	rt := newRuntimeConfig(j)
	log.Printf("runtime: concurrency=%d batch_rows=%d inputs=%d", rt.concurrency, rt.batchRows, len(j.Inputs))

	tasks, err := buildTasks(j)
	if err != nil {
		return err
	}
	byID := make(map[int64]pipeline.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	if err := os.MkdirAll(j.OutputDir, 0o755); err != nil {
		return fmt.Errorf("output dir: %w", err)
	}

	var hist *history.Store
	if j.HistoryPath != "" {
		hist, err = history.Open(ctx, j.HistoryPath)
		if err != nil {
			return err
		}
		defer hist.Close()
	}

	s := sched.New(pipeline.Options{BatchRows: rt.batchRows, Job: j.Name})
	run := s.Submit(tasks, rt.concurrency)

	if hist != nil {
		if err := hist.BeginRun(ctx, run.ID(), j.Name, len(tasks), rt.concurrency); err != nil {
			log.Printf("history: %v", err)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		if sig, ok := <-sigCh; ok {
			log.Printf("received %v, stopping run %s", sig, run.ID())
			run.Stop()
		}
	}()

	var completed, failed, cancelled int
	for ev := range run.Events() {
		t := byID[ev.TaskID]
		switch ev.Type {
		case sched.EventProgress:
			log.Printf("task %d: %s %d%%", ev.TaskID, t.Input, ev.Percent)

		case sched.EventCompleted:
			completed++
			log.Printf("task %d: completed %s fingerprint=%s", ev.TaskID, ev.OutputPath, ev.Fingerprint)
			metrics.RecordTask(j.Name, "completed")
			recordHistory(ctx, hist, run.ID(), t, ev, "completed")

		case sched.EventFailed:
			failed++
			log.Printf("task %d: failed %s kind=%s: %s", ev.TaskID, t.Input, ev.Kind, ev.Message)
			metrics.RecordTask(j.Name, "failed")
			recordHistory(ctx, hist, run.ID(), t, ev, "failed")

		case sched.EventCancelled:
			cancelled++
			log.Printf("task %d: cancelled %s", ev.TaskID, t.Input)
			metrics.RecordTask(j.Name, "cancelled")
			recordHistory(ctx, hist, run.ID(), t, ev, "cancelled")
		}
	}
	signal.Stop(sigCh)
	close(sigCh)

	abandoned := len(tasks) - completed - failed - cancelled
	log.Printf("summary: run=%s tasks=%d completed=%d failed=%d cancelled=%d abandoned=%d",
		run.ID(), len(tasks), completed, failed, cancelled, abandoned)

	if hist != nil {
		if err := hist.FinishRun(ctx, run.ID(), completed, failed, cancelled); err != nil {
			log.Printf("history: %v", err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d tasks failed", failed, len(tasks))
	}
	return nil
}

func recordHistory(ctx context.Context, hist *history.Store, runID string, t pipeline.Task, ev sched.Event, outcome string) {
	if hist == nil {
		return
	}
	errKind := ""
	if outcome == "failed" {
		errKind = ev.Kind.String()
	}
	err := hist.RecordTask(ctx, runID, history.TaskOutcome{
		TaskID:      ev.TaskID,
		Input:       t.Input,
		Output:      t.Output,
		Outcome:     outcome,
		ErrKind:     errKind,
		Message:     ev.Message,
		Fingerprint: ev.Fingerprint,
	})
	if err != nil {
		log.Printf("history: %v", err)
	}
}

func getenvInt(k string, def int) int {
	if s := os.Getenv(k); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return def
}

// pickInt chooses the first positive value 'a', otherwise returns 'b'.
func pickInt(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}
