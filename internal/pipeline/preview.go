package pipeline

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"tabclean/internal/parser/csv"
	"tabclean/internal/parser/xlsx"
	"tabclean/internal/records"
)

// Preview reads the first n data rows of the file at path as a Batch. It is
// used to surface headers and sample rows before a run is configured.
func Preview(ctx context.Context, path string, n int) (records.Batch, error) {
	if n < 1 {
		n = 5
	}
	switch detectFormat(path) {
	case formatCSV:
		r, err := csv.NewReader(path, n)
		if err != nil {
			return records.Batch{}, err
		}
		defer r.Close()
		b, err := r.Next(ctx)
		if err == io.EOF {
			return records.New(r.Columns(), 0), nil
		}
		return b, err
	case formatXLSX:
		b, err := xlsx.Read(path)
		if err != nil {
			return records.Batch{}, err
		}
		if len(b.Rows) > n {
			b.Rows = b.Rows[:n]
		}
		return b, nil
	default:
		return records.Batch{}, fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
}

// SuggestColumns inspects header names and proposes which columns to keep
// and which to validate as URLs, by substring matching on common title and
// website header spellings.
func SuggestColumns(columns []string) (keep, asURL []string) {
	for _, col := range columns {
		low := strings.ToLower(col)
		isTitle := strings.Contains(low, "title") || strings.Contains(low, "name")
		isWeb := strings.Contains(low, "web") || strings.Contains(low, "url") || strings.Contains(low, "site")
		if isTitle || isWeb {
			keep = append(keep, col)
		}
		if isWeb {
			asURL = append(asURL, col)
		}
	}
	return keep, asURL
}
