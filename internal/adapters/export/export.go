// Package export writes run snapshots as zstd-compressed JSON lines, one
// record per line.
package export

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/okian/dengue/internal/domain/model"
)

const bufferSize = 128 * 1024

// JSONLZstdWriter appends JSON records to a compressed file.
type JSONLZstdWriter struct {
	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
	n   int
}

// Create truncates or creates path, creating parent directories.
func Create(path string) (*JSONLZstdWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("zstd writer: %w", err)
	}
	return &JSONLZstdWriter{f: f, enc: enc, w: bufio.NewWriterSize(enc, bufferSize)}, nil
}

// Write appends one record.
func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode record %d: %w", w.n, err)
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	w.n++
	return nil
}

// Count returns the number of records written.
func (w *JSONLZstdWriter) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.n
}

// Close flushes and closes the file.
func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	ferr := w.w.Flush()
	eerr := w.enc.Close()
	cerr := w.f.Close()
	w.f, w.enc, w.w = nil, nil, nil
	for _, err := range []error{ferr, eerr, cerr} {
		if err != nil {
			return fmt.Errorf("close snapshot: %w", err)
		}
	}
	return nil
}

// WriteImmunity writes one line per person.
func WriteImmunity(path string, states []model.ImmunityState) error {
	return writeAll(path, states)
}

// WriteMosquitoes writes one line per infected mosquito.
func WriteMosquitoes(path string, mosquitoes []model.MosquitoRecord) error {
	return writeAll(path, mosquitoes)
}

// WriteLocations writes one line per location.
func WriteLocations(path string, locations []model.LocationState) error {
	return writeAll(path, locations)
}

func writeAll[T any](path string, records []T) (err error) {
	w, err := Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()
	for i := range records {
		if err := w.Write(records[i]); err != nil {
			return err
		}
	}
	return nil
}

// Read decodes every record of a snapshot written by this package.
func Read[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()

	var out []T
	jd := json.NewDecoder(dec)
	for {
		var v T
		if err := jd.Decode(&v); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return nil, fmt.Errorf("decode %s record %d: %w", path, len(out), err)
		}
		out = append(out, v)
	}
}
