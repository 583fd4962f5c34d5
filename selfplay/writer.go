package selfplay

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Writer appends samples as zstd-compressed JSON lines. It is safe for
// concurrent use.
type Writer struct {
	mu      sync.Mutex
	closer  io.Closer // underlying file, nil for caller-owned streams
	encoder *zstd.Encoder
	json    *json.Encoder
	count   int
}

// CreateWriter creates (or truncates) the sample file at path.
func CreateWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create sample file: %w", err)
	}
	w, err := NewWriter(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.closer = f
	return w, nil
}

// NewWriter compresses onto out. Close flushes the stream but leaves out open.
func NewWriter(out io.Writer) (*Writer, error) {
	encoder, err := zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	return &Writer{encoder: encoder, json: json.NewEncoder(encoder)}, nil
}

func (w *Writer) Write(samples ...Sample) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := range samples {
		if err := w.json.Encode(&samples[i]); err != nil {
			return fmt.Errorf("encode sample: %w", err)
		}
		w.count++
	}
	return nil
}

// Count is the number of samples written so far.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	err := w.encoder.Close()
	if w.closer != nil {
		err = errors.Join(err, w.closer.Close())
	}
	return err
}

// ReadSamples decodes every sample of a stream written by Writer.
func ReadSamples(in io.Reader) ([]Sample, error) {
	decoder, err := zstd.NewReader(in)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer decoder.Close()

	var samples []Sample
	dec := json.NewDecoder(bufio.NewReader(decoder))
	for {
		var s Sample
		if err := dec.Decode(&s); err != nil {
			if errors.Is(err, io.EOF) {
				return samples, nil
			}
			return samples, fmt.Errorf("decode sample %d: %w", len(samples)+1, err)
		}
		samples = append(samples, s)
	}
}
