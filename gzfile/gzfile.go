// Package gzfile reads and writes gzipped files, eg. recorded fix logs
// (fixes.json.gz) and trip exports (trip.geojson.gz).
package gzfile

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// Ext marks gzipped file names.
const Ext = ".gz"

type WriterConfig struct {
	CompressionLevel int
	Flag             int
	FilePerm         os.FileMode
	DirPerm          os.FileMode
}

// DefaultWriterConfig truncates existing files.
func DefaultWriterConfig() *WriterConfig {
	return &WriterConfig{
		CompressionLevel: gzip.DefaultCompression,
		Flag:             os.O_WRONLY | os.O_TRUNC | os.O_CREATE,
		FilePerm:         0660,
		DirPerm:          0770,
	}
}

// Writer gzips to a file, holding an exclusive flock on it from the first write
// until Close.
type Writer struct {
	f      *os.File
	gzw    *gzip.Writer
	locked bool
	closed bool
}

func NewWriter(path string, config *WriterConfig) (*Writer, error) {
	if config == nil {
		config = DefaultWriterConfig()
	}
	if err := os.MkdirAll(filepath.Dir(path), config.DirPerm); err != nil {
		return nil, err
	}
	fi, err := os.OpenFile(path, config.Flag, config.FilePerm)
	if err != nil {
		return nil, err
	}
	gzw, err := gzip.NewWriterLevel(fi, config.CompressionLevel)
	if err != nil {
		_ = fi.Close()
		return nil, err
	}
	return &Writer{f: fi, gzw: gzw}, nil
}

func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, os.ErrClosed
	}
	w.lock()
	return w.gzw.Write(p)
}

// lock is released when the file is closed.
func (w *Writer) lock() {
	if w.locked || w.f == nil {
		return
	}
	_ = syscall.Flock(int(w.f.Fd()), syscall.LOCK_EX)
	w.locked = true
}

func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.gzw.Close(); err != nil {
		_ = w.f.Close()
		return err
	}
	if err := w.f.Sync(); err != nil {
		_ = w.f.Close()
		return err
	}
	return w.f.Close()
}

func (w *Writer) Path() string {
	return w.f.Name()
}

// Reader gunzips a file.
type Reader struct {
	f      *os.File
	gzr    *gzip.Reader
	closed bool
}

func NewReader(path string) (*Reader, error) {
	fi, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	gzr, err := gzip.NewReader(fi)
	if err != nil {
		_ = fi.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Reader{f: fi, gzr: gzr}, nil
}

func (r *Reader) Read(p []byte) (int, error) {
	return r.gzr.Read(p)
}

func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if err := r.gzr.Close(); err != nil {
		_ = r.f.Close()
		return err
	}
	return r.f.Close()
}

func (r *Reader) Path() string {
	return r.f.Name()
}

// Open opens path for reading, gunzipping it if its name ends in .gz.
// An empty path or "-" reads stdin.
func Open(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	if strings.HasSuffix(path, Ext) {
		return NewReader(path)
	}
	return os.Open(path)
}

// Create creates path for writing, gzipping it if its name ends in .gz.
// An empty path or "-" writes stdout.
func Create(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}
	if strings.HasSuffix(path, Ext) {
		return NewWriter(path, nil)
	}
	if err := os.MkdirAll(filepath.Dir(path), DefaultWriterConfig().DirPerm); err != nil {
		return nil, err
	}
	return os.Create(path)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
