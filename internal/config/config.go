// Package config defines the canonical, JSON-serializable job model for the
// cleaning application. It is intentionally small and explicit so that jobs
// can be loaded from disk (or built by a UI layer) and passed through the
// program without additional glue code.
//
// Design goals:
//
//  1. Stability: changes to this package should be additive and backwards-
//     compatible whenever possible.
//  2. Clarity: field names in Go mirror the JSON structure of job files.
//  3. Minimalism: decoding is performed by the standard library, with a light
//     Options helper for the free-form metrics block.
//
// Example (trimmed):
//
//	{
//	  "name":             "partner-list",
//	  "inputs":           ["data/partners.csv", "data/partners_extra.xlsx"],
//	  "output_dir":       "out",
//	  "base_name":        "cleaned_output",
//	  "format":           "csv",
//	  "keep_columns":     ["name", "website"],
//	  "validate_columns": ["website"],
//	  "runtime":          { "concurrency": 4, "batch_rows": 20000 },
//	  "metrics":          { "backend": "pushgateway", "pushgateway_url": "http://localhost:9091" }
//	}
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Job describes one complete cleaning run: the input files, the output
// naming policy, the column configuration, and the runtime knobs.
type Job struct {
	// Name labels the run in logs, metrics, and history rows.
	Name string `json:"name"`

	// Inputs are the files to process, in submission order.
	Inputs []string `json:"inputs"`

	// OutputDir receives every output file. BaseName prefixes each output
	// file name; the input file's stem and the Format extension complete it.
	OutputDir string `json:"output_dir"`
	BaseName  string `json:"base_name"`

	// Format selects the output file type: "csv" or "xlsx".
	Format string `json:"format"`

	// KeepColumns is the ordered column projection. ValidateColumns names
	// the columns whose values must pass validation for a row to survive.
	KeepColumns     []string `json:"keep_columns"`
	ValidateColumns []string `json:"validate_columns"`

	// Pattern is an optional custom validation pattern, matched against the
	// start of each value. Empty means the well-formed-URL check is used for
	// every validated column.
	Pattern string `json:"pattern"`

	Runtime RuntimeConfig `json:"runtime"`

	// Metrics configures the metrics backend. Its shape depends on the
	// backend implementation, so it is a free-form options bag.
	Metrics Options `json:"metrics"`

	// HistoryPath optionally names a SQLite file recording run history.
	// Empty disables history.
	HistoryPath string `json:"history_path"`
}

// RuntimeConfig controls concurrency and batch sizing.
type RuntimeConfig struct {
	// Concurrency bounds the number of simultaneously active pipelines.
	Concurrency int `json:"concurrency"`
	// BatchRows bounds the rows held in memory per pipeline.
	BatchRows int `json:"batch_rows"`
}

// DefaultBaseName is used when a job omits base_name.
const DefaultBaseName = "cleaned_output"

// Load reads and decodes a job file.
func Load(path string) (Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return Job{}, fmt.Errorf("open job file: %w", err)
	}
	defer f.Close()

	var j Job
	if err := json.NewDecoder(f).Decode(&j); err != nil {
		return Job{}, fmt.Errorf("decode job file: %w", err)
	}
	return j, nil
}

// OutputPath resolves the output file for one input under the job's naming
// policy: <output_dir>/<base_name>_<input stem>.<format>.
//
// Two inputs with the same stem resolve to the same output path; that
// collision is not deduplicated anywhere downstream, the last writer wins.
func (j Job) OutputPath(input string) string {
	base := strings.TrimSpace(j.BaseName)
	if base == "" {
		base = DefaultBaseName
	}
	format := strings.ToLower(strings.TrimSpace(j.Format))
	if format == "" {
		format = "csv"
	}
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(j.OutputDir, base+"_"+stem+"."+format)
}

// Options is a small helper to fetch typed values from arbitrary JSON maps
// without introducing third-party configuration libraries. It performs only
// minimal type coercion and returns provided defaults when a key is absent
// or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a
// string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers decode as float64,
// so this method accepts float64 and casts to int.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// UnmarshalJSON implements json.Unmarshaler so that a missing or null options
// object decodes to a non-nil, empty Options map. This removes the need to
// nil-check Options values at call sites.
func (o *Options) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	var tmp map[string]any
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
