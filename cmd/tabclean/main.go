// Package main wires the tabclean cleaning engine end-to-end: it loads the
// job config, optionally initializes a metrics backend, and hands the built
// tasks to the scheduler. This file keeps the CLI layer thin; task building
// and event consumption live in run.go.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"tabclean/internal/config"
	"tabclean/internal/metrics"
	"tabclean/internal/metrics/prompush"
	"tabclean/internal/pipeline"
)

func main() {
	var (
		jobPath           string
		metricsBackendFlg string
		pushGatewayURLFlg string
		previewPath       string
		validateOnly      bool
	)

	flag.StringVar(&jobPath, "job", "configs/jobs/sample.json", "job config JSON path")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend to use (e.g. pushgateway, none)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.StringVar(&previewPath, "preview", "", "print the first rows and suggested columns of FILE, then exit")
	flag.BoolVar(&validateOnly, "validate", false, "validate the job config and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	// Optional .env for local development; absence is not an error.
	if err := godotenv.Load(); err == nil && *verbose {
		log.Printf("loaded .env")
	}

	if previewPath != "" {
		if err := runPreview(context.Background(), previewPath); err != nil {
			fatalf("preview: %v", err)
		}
		return
	}

	j, err := config.Load(jobPath)
	if err != nil {
		fatalf("load job: %v", err)
	}

	issues := config.ValidateJob(j)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasError(issues) {
		log.Printf("job config is invalid: %v", jobPath)
		os.Exit(1)
	}
	if validateOnly {
		log.Printf("job config is valid: %v", jobPath)
		return
	}

	initMetrics(j, metricsBackendFlg, pushGatewayURLFlg, *verbose)
	defer func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}()

	start := time.Now()
	if err := runJob(context.Background(), j); err != nil {
		log.Fatalf("%v", err)
	}
	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
}

// initMetrics decides the metrics backend from flag, then job config, then
// environment, and installs it. Failures fall back to the nop backend.
func initMetrics(j config.Job, backendFlg, gwFlg string, verbose bool) {
	backendName := backendFlg
	if backendName == "" {
		backendName = j.Metrics.String("backend", "")
	}
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}

	switch backendName {
	case "pushgateway":
		gwURL := gwFlg
		if gwURL == "" {
			gwURL = j.Metrics.String("pushgateway_url", "")
		}
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}

		jobName := j.Name
		if jobName == "" {
			jobName = "tabclean_job"
		}

		b, err := prompush.NewBackend(jobName, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: url=%v, backend=%v, job_name=%v", gwURL, backendName, jobName)
		metrics.SetBackend(b)

	case "", "none":
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}
}

// runPreview prints the first rows of the file plus column suggestions.
func runPreview(ctx context.Context, path string) error {
	b, err := pipeline.Preview(ctx, path, 5)
	if err != nil {
		return err
	}

	fmt.Println(strings.Join(b.Columns, "\t"))
	for _, row := range b.Rows {
		fmt.Println(strings.Join(row, "\t"))
	}

	keep, asURL := pipeline.SuggestColumns(b.Columns)
	fmt.Printf("suggested keep_columns: %v\n", keep)
	fmt.Printf("suggested validate_columns: %v\n", asURL)
	return nil
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
