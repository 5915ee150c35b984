// Package logging routes the standard logger to stdout plus a
// size-rotated file so one-shot runs and the daemon share a log trail.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

const (
	defaultMaxSizeMB = 5
	defaultBackups   = 2
)

// Options controls where the log file lives and when it rotates.
// Zero values fall back to the defaults.
type Options struct {
	Path      string
	MaxSizeMB int
	Backups   int
}

// RotatingWriter appends to a log file and rotates it through numbered
// backups (file.1 is the newest) once it grows past the size limit.
type RotatingWriter struct {
	mu      sync.Mutex
	file    *os.File
	path    string
	size    int64
	maxSize int64
	backups int
}

// Setup opens the log file and points the standard logger at stdout plus
// the file. An oversized file left over from a previous run is rotated
// away instead of truncated, so its tail survives a restart. The returned
// writer must be closed on shutdown.
func Setup(opts Options) (*RotatingWriter, error) {
	if opts.MaxSizeMB <= 0 {
		opts.MaxSizeMB = defaultMaxSizeMB
	}
	if opts.Backups <= 0 {
		opts.Backups = defaultBackups
	}

	f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	size := int64(0)
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}

	rw := &RotatingWriter{
		file:    f,
		path:    opts.Path,
		size:    size,
		maxSize: int64(opts.MaxSizeMB) * 1024 * 1024,
		backups: opts.Backups,
	}
	if rw.size > rw.maxSize {
		rw.rotate()
	}

	log.SetOutput(io.MultiWriter(os.Stdout, rw))

	return rw, nil
}

func (w *RotatingWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err = w.file.Write(p)
	w.size += int64(n)

	if w.size > w.maxSize {
		w.rotate()
	}

	return n, err
}

func (w *RotatingWriter) rotate() {
	w.file.Close()

	for i := w.backups - 1; i >= 1; i-- {
		os.Rename(backupName(w.path, i), backupName(w.path, i+1))
	}
	os.Rename(w.path, backupName(w.path, 1))

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return
	}

	w.file = f
	w.size = 0
}

func backupName(path string, n int) string {
	return fmt.Sprintf("%s.%d", path, n)
}

func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
