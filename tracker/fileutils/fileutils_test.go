package fileutils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteJSONFileAtomic_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.json")

	type rec struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	if err := WriteJSONFileAtomic(path, rec{Name: "optimus", Count: 3}, true); err != nil {
		t.Fatalf("WriteJSONFileAtomic: %v", err)
	}

	var got rec
	if err := ReadJSONFile(path, &got); err != nil {
		t.Fatalf("ReadJSONFile: %v", err)
	}
	if got.Name != "optimus" || got.Count != 3 {
		t.Fatalf("got=%+v", got)
	}

	// No temp files should survive the rename.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp_") {
			t.Fatalf("leftover temp file: %s", e.Name())
		}
	}
}

func TestWriteFileAtomicSameDir_OverwritesExisting(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.txt")
	if err := WriteFileAtomicSameDir(path, []byte("first"), 0o644); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteFileAtomicSameDir(path, []byte("second"), 0o644); err != nil {
		t.Fatalf("second write: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "second\n" {
		t.Fatalf("content=%q, want second", string(b))
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	if got := Truncate("  hello  ", 0); got != "hello" {
		t.Fatalf("got=%q", got)
	}
	if got := Truncate("abcdef", 3); got != "abc…" {
		t.Fatalf("got=%q", got)
	}
	if got := Truncate("ab", 3); got != "ab" {
		t.Fatalf("got=%q", got)
	}
}

func TestReadJSONFile_MissingFile(t *testing.T) {
	t.Parallel()

	var v map[string]any
	if err := ReadJSONFile(filepath.Join(t.TempDir(), "missing.json"), &v); err == nil {
		t.Fatal("expected error for missing file")
	}
}
