package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewFileStoreCreatesBasePath(t *testing.T) {
	base := filepath.Join(t.TempDir(), "out", "images")
	store, err := NewFileStore(base)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	info, err := os.Stat(store.BasePath())
	if err != nil || !info.IsDir() {
		t.Fatalf("base path not created: %v", err)
	}
}

func TestFileStoreWriteReturnsFullPath(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	path, err := store.Write("a.jpg", []byte{0x01, 0x02})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(data) != 2 || data[0] != 0x01 {
		t.Fatalf("unexpected bytes: %v", data)
	}
}

func TestFileStoreRejectsPathTraversal(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, err := store.Write("../escape.jpg", []byte{0x01}); err == nil {
		t.Fatalf("expected error for path-like filename")
	}
	if _, err := store.Write("", []byte{0x01}); err == nil {
		t.Fatalf("expected error for empty filename")
	}
}

func TestNewFileStoreRequiresBasePath(t *testing.T) {
	if _, err := NewFileStore("  "); err == nil {
		t.Fatalf("expected error for empty base path")
	}
}
