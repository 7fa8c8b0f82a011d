package store

import (
	"path/filepath"
	"testing"

	"barkeep/internal/domain"
)

func TestExportParquetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	window := domain.NewSeriesWindow(dailyBars("aapl", 5, 100))

	path, err := ExportParquet(dir, window)
	if err != nil {
		t.Fatalf("ExportParquet: %v", err)
	}
	if want := filepath.Join(dir, "AAPL_1day.parquet"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}

	got, err := ReadParquet(path)
	if err != nil {
		t.Fatalf("ReadParquet: %v", err)
	}
	if len(got) != len(window) {
		t.Fatalf("round trip returned %d bars, want %d", len(got), len(window))
	}
	for i := range got {
		if got[i] != window[i] {
			t.Errorf("bar %d = %+v, want %+v", i, got[i], window[i])
		}
	}
}

func TestExportParquetEmptyWindow(t *testing.T) {
	if _, err := ExportParquet(t.TempDir(), nil); err == nil {
		t.Fatal("expected error for empty window")
	}
}
