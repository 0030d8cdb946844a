package engine

import (
	"os"
	"path/filepath"
	"testing"

	"narengine/pkg/types"
)

func TestValidateModelFile(t *testing.T) {
	dir := t.TempDir()

	if err := ValidateModelFile(filepath.Join(dir, "missing.gguf")); CodeOf(err) != types.ErrModelNotFound {
		t.Fatalf("missing: %v", err)
	}
	if err := ValidateModelFile(dir); CodeOf(err) != types.ErrModelLoadFailed {
		t.Fatalf("directory: %v", err)
	}
	small := filepath.Join(dir, "small.bin")
	if err := os.WriteFile(small, []byte("tiny"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ValidateModelFile(small); CodeOf(err) != types.ErrModelLoadFailed {
		t.Fatalf("small: %v", err)
	}
	if err := ValidateModelFile(createModelFile(t, dir, "zeros.gguf", 1)); CodeOf(err) != types.ErrModelLoadFailed {
		t.Fatalf("bad magic: %v", err)
	}
	if err := ValidateModelFile(createModelFile(t, dir, "plain.bin", 1)); err != nil {
		t.Fatalf("plain: %v", err)
	}
	if err := ValidateModelFile(""); !IsInvalidParams(err) {
		t.Fatalf("empty: %v", err)
	}
}

func TestValidateModelFileGGUF(t *testing.T) {
	p := createModelFile(t, t.TempDir(), "ok.gguf", 1)
	f, err := os.OpenFile(p, os.O_WRONLY, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteAt([]byte("GGUF"), 0); err != nil {
		t.Fatal(err)
	}
	f.Close()
	if err := ValidateModelFile(p); err != nil {
		t.Fatalf("valid gguf rejected: %v", err)
	}
}

func TestValidateModelFileRechecksChangedFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "grow.bin")
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ValidateModelFile(p); err == nil {
		t.Fatalf("small file accepted")
	}
	if err := os.WriteFile(p, make([]byte, MinModelFileSize), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ValidateModelFile(p); err != nil {
		t.Fatalf("grown file still rejected: %v", err)
	}
}

func TestCheckMemory(t *testing.T) {
	if err := checkMemory(10, 5); CodeOf(err) != types.ErrOutOfMemory {
		t.Fatalf("over limit: %v", err)
	}
	if err := checkMemory(10, 0); err != nil {
		t.Fatalf("unlimited: %v", err)
	}
}

func TestErrorMessagesAreBounded(t *testing.T) {
	long := make([]byte, 1000)
	for i := range long {
		long[i] = 'e'
	}
	if got := truncateMessage(string(long)); len(got) >= types.MaxErrorMessageLen {
		t.Fatalf("len = %d", len(got))
	}
}
