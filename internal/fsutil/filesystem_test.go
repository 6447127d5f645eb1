package fsutil

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sync"
	"testing"
)

func TestOSFileSystemRoundTrip(t *testing.T) {
	osfs := OSFileSystem{}
	dir := filepath.Join(t.TempDir(), "backups", "20260826-101512")

	if err := osfs.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	name := filepath.Join(dir, "README.txt")
	if err := osfs.WriteFile(name, []byte("restore notes"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := osfs.ReadFile(name)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "restore notes" {
		t.Errorf("ReadFile = %q", data)
	}
}

func TestMemoryFileSystemRoundTrip(t *testing.T) {
	mem := NewMemoryFileSystem()

	if err := mem.WriteFile("/backups/run/README.txt", []byte("notes"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	data, err := mem.ReadFile("/backups/run/README.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "notes" {
		t.Errorf("ReadFile = %q", data)
	}
}

func TestMemoryFileSystemMissingFile(t *testing.T) {
	mem := NewMemoryFileSystem()

	_, err := mem.ReadFile("/no/such/file")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("err = %v, want fs.ErrNotExist", err)
	}
}

func TestMemoryFileSystemMkdirAllRecordsParents(t *testing.T) {
	mem := NewMemoryFileSystem()

	if err := mem.MkdirAll("/backups/host/20260826", 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	for _, dir := range []string{"/backups/host/20260826", "/backups/host", "/backups"} {
		if !mem.DirExists(dir) {
			t.Errorf("DirExists(%s) = false", dir)
		}
	}
	if mem.DirExists("/elsewhere") {
		t.Error("unrelated directory reported as existing")
	}
}

// Stored contents must not alias caller or callee buffers.
func TestMemoryFileSystemCopies(t *testing.T) {
	mem := NewMemoryFileSystem()

	buf := []byte("original")
	mem.WriteFile("/f", buf, 0644)
	buf[0] = 'X'

	got, err := mem.ReadFile("/f")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(got) != "original" {
		t.Errorf("stored data aliased writer buffer: %q", got)
	}

	got[0] = 'Y'
	again, _ := mem.ReadFile("/f")
	if string(again) != "original" {
		t.Errorf("stored data aliased reader buffer: %q", again)
	}
}

func TestMemoryFileSystemConcurrentWrites(t *testing.T) {
	mem := NewMemoryFileSystem()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			name := filepath.Join("/backups", string(rune('a'+n)))
			mem.WriteFile(name, []byte{byte(n)}, 0644)
			mem.ReadFile(name)
		}(i)
	}
	wg.Wait()
}
