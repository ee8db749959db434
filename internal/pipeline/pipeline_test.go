package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tabclean/internal/pipeline"
	"tabclean/internal/transform"
	"tabclean/internal/validate"
)

func writeCSV(t *testing.T, dir, name, doc string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func urlPlan() transform.Plan {
	return transform.Plan{
		Projection: []string{"name", "website"},
		Checks:     []transform.ColumnCheck{{Column: "website", Spec: validate.URL()}},
	}
}

const companiesDoc = "name,website,phone\n" +
	"Acme,https://acme.example,555-1\n" +
	"Blank,   ,555-2\n" +
	"Bogus,not a url,555-3\n" +
	"Beta,http://beta.example,555-4\n"

func TestRunCleansCSV(t *testing.T) {
	dir := t.TempDir()
	in := writeCSV(t, dir, "companies.csv", companiesDoc)
	out := filepath.Join(dir, "cleaned.csv")

	var last int
	res := pipeline.Run(context.Background(),
		pipeline.Task{ID: 1, Input: in, Output: out, Plan: urlPlan()},
		pipeline.Options{}, func(pct int) { last = pct })

	if res.Failed() || res.Cancelled {
		t.Fatalf("result=%+v", res)
	}
	if res.RowsIn != 4 || res.RowsKept != 2 {
		t.Fatalf("rows in=%d kept=%d want 4/2", res.RowsIn, res.RowsKept)
	}
	if res.Fingerprint == "" {
		t.Fatalf("missing fingerprint")
	}
	if last != 100 {
		t.Fatalf("final progress=%d want 100", last)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	body := string(data)
	if !strings.Contains(body, "Acme") || !strings.Contains(body, "Beta") {
		t.Fatalf("surviving rows missing:\n%s", body)
	}
	if strings.Contains(body, "Bogus") || strings.Contains(body, "555-1") {
		t.Fatalf("dropped row or column leaked:\n%s", body)
	}
}

func TestRunIdempotentFingerprint(t *testing.T) {
	dir := t.TempDir()
	in := writeCSV(t, dir, "companies.csv", companiesDoc)

	task := func(out string) pipeline.Task {
		return pipeline.Task{Input: in, Output: filepath.Join(dir, out), Plan: urlPlan()}
	}

	a := pipeline.Run(context.Background(), task("a.csv"), pipeline.Options{}, nil)
	b := pipeline.Run(context.Background(), task("b.csv"), pipeline.Options{}, nil)
	if a.Failed() || b.Failed() {
		t.Fatalf("a=%+v b=%+v", a, b)
	}
	if a.Fingerprint != b.Fingerprint {
		t.Fatalf("fingerprints differ: %s vs %s", a.Fingerprint, b.Fingerprint)
	}
}

func TestRunEmptyIntersection(t *testing.T) {
	dir := t.TempDir()
	in := writeCSV(t, dir, "in.csv", "x,y\n1,2\n")
	out := filepath.Join(dir, "out.csv")

	res := pipeline.Run(context.Background(),
		pipeline.Task{Input: in, Output: out, Plan: transform.Plan{Projection: []string{"a"}}},
		pipeline.Options{}, nil)

	if res.Failed() || res.Cancelled {
		t.Fatalf("result=%+v", res)
	}
	if res.RowsKept != 0 {
		t.Fatalf("kept=%d want 0", res.RowsKept)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("output file missing: %v", err)
	}
}

func TestRunUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.csv")

	cases := []struct {
		name string
		task pipeline.Task
	}{
		{"input", pipeline.Task{Input: filepath.Join(dir, "notes.txt"), Output: out}},
		{"output", pipeline.Task{Input: filepath.Join(dir, "in.csv"), Output: filepath.Join(dir, "out.parquet")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := pipeline.Run(context.Background(), tc.task, pipeline.Options{}, nil)
			if !res.Failed() || res.Kind != pipeline.KindUnsupportedFormat {
				t.Fatalf("result=%+v want unsupported_format", res)
			}
		})
	}
}

func TestRunMissingInput(t *testing.T) {
	dir := t.TempDir()
	res := pipeline.Run(context.Background(),
		pipeline.Task{
			Input:  filepath.Join(dir, "missing.csv"),
			Output: filepath.Join(dir, "out.csv"),
			Plan:   urlPlan(),
		},
		pipeline.Options{}, nil)

	if !res.Failed() || res.Kind != pipeline.KindIO {
		t.Fatalf("result=%+v want io_error", res)
	}
}

func TestRunCancelledBeforeStart(t *testing.T) {
	dir := t.TempDir()
	in := writeCSV(t, dir, "in.csv", companiesDoc)
	out := filepath.Join(dir, "out.csv")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := pipeline.Run(ctx,
		pipeline.Task{Input: in, Output: out, Plan: urlPlan()},
		pipeline.Options{}, nil)

	if !res.Cancelled {
		t.Fatalf("result=%+v want cancelled", res)
	}
	if res.Failed() {
		t.Fatalf("cancelled result must not be a failure: %+v", res)
	}
}

func TestRunMalformedCSV(t *testing.T) {
	dir := t.TempDir()
	// An unterminated quote straddling a record boundary is a parse error
	// even under LazyQuotes.
	in := writeCSV(t, dir, "bad.csv", "a,b\n\"x,1\n")
	out := filepath.Join(dir, "out.csv")

	res := pipeline.Run(context.Background(),
		pipeline.Task{Input: in, Output: out, Plan: transform.Plan{Projection: []string{"a"}}},
		pipeline.Options{}, nil)

	// LazyQuotes forgives most quoting damage; whatever still fails must be
	// classified as a decode error, and success is also acceptable here.
	if res.Failed() && res.Kind != pipeline.KindDecode {
		t.Fatalf("result=%+v want decode_error", res)
	}
}
