package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteRotatesPastLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.log")

	w := &RotatingWriter{path: path, maxSize: 64, backups: 2}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		t.Fatal(err)
	}
	w.file = f
	defer w.Close()

	line := strings.Repeat("x", 40) + "\n"
	for i := 0; i < 4; i++ {
		if _, err := w.Write([]byte(line)); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	if _, err := os.Stat(path + ".1"); err != nil {
		t.Errorf("expected first backup after rotation: %v", err)
	}
	if _, err := os.Stat(path + ".2"); err != nil {
		t.Errorf("expected second backup after two rotations: %v", err)
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Error("rotation should keep at most the configured backups")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() > 64 {
		t.Errorf("active file should have been reset, size %d", info.Size())
	}
}

func TestSetupRotatesOversizedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.log")
	if err := os.WriteFile(path, []byte(strings.Repeat("y", 2*1024*1024)), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := Setup(Options{Path: path, MaxSizeMB: 1})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 0 {
		t.Errorf("expected a fresh active file, size %d", info.Size())
	}
	data, err := os.ReadFile(path + ".1")
	if err != nil {
		t.Fatalf("previous log should survive as a backup: %v", err)
	}
	if len(data) != 2*1024*1024 {
		t.Errorf("backup lost data, size %d", len(data))
	}
}
