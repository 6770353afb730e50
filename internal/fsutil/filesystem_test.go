package fsutil

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestOSFileSystem_CreateAndRead(t *testing.T) {
	fsys := OSFileSystem{}
	path := filepath.Join(t.TempDir(), "out.csv")

	w, err := fsys.Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := io.WriteString(w, "t (s),id\n"); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	data, err := fsys.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "t (s),id\n" {
		t.Errorf("unexpected content %q", data)
	}

	info, err := fsys.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Size() != 9 {
		t.Errorf("size = %d, want 9", info.Size())
	}

	f, err := fsys.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	f.Close()

	_ = os.Remove(path)
}

func TestMemoryFileSystem_AddAndOpen(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.Add("/data/Inv_21.trc", "t (s),id\n1,2\n")

	f, err := mfs.Open("/data/../data/Inv_21.trc")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(data) != "t (s),id\n1,2\n" {
		t.Errorf("unexpected content %q", data)
	}

	info, err := f.Stat()
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Name() != "Inv_21.trc" {
		t.Errorf("name = %q", info.Name())
	}
}

func TestMemoryFileSystem_Missing(t *testing.T) {
	mfs := NewMemoryFileSystem()

	if _, err := mfs.Open("/missing"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Open: expected ErrNotExist, got %v", err)
	}
	if _, err := mfs.ReadFile("/missing"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ReadFile: expected ErrNotExist, got %v", err)
	}
	if _, err := mfs.Stat("/missing"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Stat: expected ErrNotExist, got %v", err)
	}
}

func TestMemoryFileSystem_CreateVisibleOnClose(t *testing.T) {
	mfs := NewMemoryFileSystem()

	w, err := mfs.Create("/table.csv")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := w.Write([]byte("Density,1.00,/km\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data, _ := mfs.ReadFile("/table.csv")
	if len(data) != 0 {
		t.Errorf("expected empty file before Close, got %q", data)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	data, _ = mfs.ReadFile("/table.csv")
	if string(data) != "Density,1.00,/km\n" {
		t.Errorf("unexpected content %q", data)
	}

	if got := mfs.Names(); len(got) != 1 || got[0] != "/table.csv" {
		t.Errorf("Names() = %v", got)
	}
}

func TestMemoryFileSystem_ReadFileReturnsCopy(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.Add("/a", "abc")

	data, _ := mfs.ReadFile("/a")
	data[0] = 'x'

	again, _ := mfs.ReadFile("/a")
	if string(again) != "abc" {
		t.Errorf("stored content modified: %q", again)
	}
}
