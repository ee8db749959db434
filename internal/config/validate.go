// This file adds a lightweight linter/validator for Job values. It performs
// static checks over a decoded Job and returns a list of issues (errors and
// warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"strings"

	"tabclean/internal/validate"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding for a Job.
//
// Path is a dotted path into the config (e.g. "runtime.concurrency",
// "inputs[2]"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a
// single error in contexts that expect one.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// ValidateJob performs static validation of a Job before anything is queued.
//
// It does not mutate the job. Callers may decide whether to treat warnings
// as fatal. A pattern that fails to compile is always an error: the whole
// submission must be blocked before any task starts.
func ValidateJob(j Job) []Issue {
	var issues []Issue

	if len(j.Inputs) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "inputs",
			Message:  "at least one input file is required",
		})
	}
	for i, in := range j.Inputs {
		if strings.TrimSpace(in) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("inputs[%d]", i),
				Message:  "input path must not be empty",
			})
		}
	}

	if strings.TrimSpace(j.OutputDir) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output_dir",
			Message:  "output directory is required",
		})
	}

	switch strings.ToLower(strings.TrimSpace(j.Format)) {
	case "", "csv", "xlsx":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "format",
			Message:  fmt.Sprintf("unsupported output format %q (use csv or xlsx)", j.Format),
		})
	}

	if len(j.KeepColumns) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "keep_columns",
			Message:  "no columns to keep; every output file will be empty",
		})
	}
	keep := make(map[string]struct{}, len(j.KeepColumns))
	for _, c := range j.KeepColumns {
		keep[c] = struct{}{}
	}
	for i, c := range j.ValidateColumns {
		if _, ok := keep[c]; !ok {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     fmt.Sprintf("validate_columns[%d]", i),
				Message:  fmt.Sprintf("column %q is validated but not kept; the check will be skipped", c),
			})
		}
	}

	if j.Pattern != "" {
		if _, err := validate.Compile(j.Pattern); err != nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "pattern",
				Message:  err.Error(),
			})
		}
	}

	if j.Runtime.Concurrency < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.concurrency",
			Message:  "concurrency must not be negative",
		})
	}
	if j.Runtime.BatchRows < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.batch_rows",
			Message:  "batch_rows must not be negative",
		})
	}

	// Known hazard rather than an error: two inputs with the same stem write
	// to the same output path, and the last writer wins.
	seen := map[string]string{}
	for i, in := range j.Inputs {
		out := j.OutputPath(in)
		if prev, ok := seen[out]; ok {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     fmt.Sprintf("inputs[%d]", i),
				Message:  fmt.Sprintf("output path %s collides with input %s; last writer wins", out, prev),
			})
			continue
		}
		seen[out] = in
	}

	return issues
}

// HasError reports whether any issue carries SeverityError.
func HasError(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}
