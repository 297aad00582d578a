package source_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/project-jmr/go-warehouse/internal/source"
)

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("2025-07-14.json", `[{"job_url": "u1"}]`)
	write("2025-07-15.json", `[{"job_url": "u2"}]`)
	write("notes.txt", "not a batch")
	if err := os.Mkdir(filepath.Join(dir, "archive.json"), 0o755); err != nil {
		t.Fatal(err)
	}

	src := source.NewDirSource(dir)
	ctx := context.Background()

	names, err := src.List(ctx)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("List = %v, want the two .json files", names)
	}

	data, err := src.Read(ctx, names[0])
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if len(data) == 0 {
		t.Error("Read returned empty payload")
	}

	if _, err := src.Read(ctx, "missing.json"); err == nil {
		t.Error("expected error for a missing batch")
	}
}

func TestDirSource_MissingDir(t *testing.T) {
	src := source.NewDirSource("/nonexistent/batches")
	if _, err := src.List(context.Background()); err == nil {
		t.Error("expected error for a missing directory")
	}
}
