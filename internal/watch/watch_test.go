package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

const testDebounce = 50 * time.Millisecond

func startWatcher(t *testing.T, dir string) <-chan []string {
	t.Helper()

	w, err := New(testDebounce, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := w.Add(dir); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	batches := make(chan []string, 10)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx, func(_ context.Context, paths []string) {
			batches <- paths
		})
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return batches
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func nextBatch(t *testing.T, batches <-chan []string) []string {
	t.Helper()
	select {
	case b := <-batches:
		return b
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for batch")
		return nil
	}
}

func expectNoBatch(t *testing.T, batches <-chan []string) {
	t.Helper()
	select {
	case b := <-batches:
		t.Errorf("unexpected batch %v", b)
	case <-time.After(10 * testDebounce):
	}
}

func TestWatcher_DebouncesIntoOneBatch(t *testing.T) {
	dir := t.TempDir()
	batches := startWatcher(t, dir)

	a := filepath.Join(dir, "a.md")
	b := filepath.Join(dir, "b.markdown")
	for i := 0; i < 3; i++ {
		writeFile(t, a, "edit")
		writeFile(t, b, "edit")
		time.Sleep(testDebounce / 5)
	}

	got := nextBatch(t, batches)
	want := []string{a, b}
	if !slices.Equal(got, want) {
		t.Errorf("batch = %v, want %v", got, want)
	}
	expectNoBatch(t, batches)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	hidden := filepath.Join(dir, ".git")
	if err := os.Mkdir(hidden, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	batches := startWatcher(t, dir)

	writeFile(t, filepath.Join(dir, "notes.txt"), "x")
	writeFile(t, filepath.Join(dir, ".draft.md"), "x")
	writeFile(t, filepath.Join(hidden, "README.md"), "x")

	expectNoBatch(t, batches)
}

func TestWatcher_Subdirectories(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "docs")
	if err := os.Mkdir(existing, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	batches := startWatcher(t, dir)

	writeFile(t, filepath.Join(existing, "guide.md"), "x")
	if got := nextBatch(t, batches); !slices.Equal(got, []string{filepath.Join(existing, "guide.md")}) {
		t.Errorf("batch = %v", got)
	}

	created := filepath.Join(dir, "rfcs")
	if err := os.Mkdir(created, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, filepath.Join(created, "0001.md"), "x")

	if got := nextBatch(t, batches); !slices.Contains(got, filepath.Join(created, "0001.md")) {
		t.Errorf("batch = %v, want file in new directory", got)
	}
}

func TestAdd_MissingDirectory(t *testing.T) {
	w, err := New(0, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() { _ = w.Close() }()

	if err := w.Add(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestIsMarkdown(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"a.md", true},
		{"dir/B.MD", true},
		{"c.markdown", true},
		{"d.mdx", false},
		{"e.txt", false},
		{"md", false},
	}

	for _, tt := range tests {
		if got := IsMarkdown(tt.path); got != tt.want {
			t.Errorf("IsMarkdown(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
