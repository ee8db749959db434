package pipeline_test

import (
	"context"
	"reflect"
	"testing"

	"tabclean/internal/pipeline"
)

func TestPreviewCSV(t *testing.T) {
	dir := t.TempDir()
	in := writeCSV(t, dir, "companies.csv", companiesDoc)

	b, err := pipeline.Preview(context.Background(), in, 2)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if !reflect.DeepEqual(b.Columns, []string{"name", "website", "phone"}) {
		t.Fatalf("columns=%v", b.Columns)
	}
	if b.Len() != 2 {
		t.Fatalf("rows=%d want 2", b.Len())
	}
}

func TestPreviewHeaderOnly(t *testing.T) {
	dir := t.TempDir()
	in := writeCSV(t, dir, "hdr.csv", "a,b\n")

	b, err := pipeline.Preview(context.Background(), in, 5)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if !reflect.DeepEqual(b.Columns, []string{"a", "b"}) || b.Len() != 0 {
		t.Fatalf("batch=%+v want header only", b)
	}
}

func TestPreviewUnsupported(t *testing.T) {
	if _, err := pipeline.Preview(context.Background(), "notes.txt", 5); err == nil {
		t.Fatalf("want error for unsupported file type")
	}
}

func TestSuggestColumns(t *testing.T) {
	keep, asURL := pipeline.SuggestColumns([]string{
		"Company Name", "Website", "Phone", "Listing URL", "Title", "Notes",
	})

	wantKeep := []string{"Company Name", "Website", "Listing URL", "Title"}
	if !reflect.DeepEqual(keep, wantKeep) {
		t.Fatalf("keep=%v want %v", keep, wantKeep)
	}
	wantURL := []string{"Website", "Listing URL"}
	if !reflect.DeepEqual(asURL, wantURL) {
		t.Fatalf("asURL=%v want %v", asURL, wantURL)
	}
}
