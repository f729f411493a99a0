package telemetry

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// TickLog writes one JSON line per report into <dir>/<runID>.jsonl.zst.
type TickLog struct {
	path string

	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

// NewTickLog creates dir if needed and opens the run's log for writing.
func NewTickLog(dir, runID string) (*TickLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("tick log dir: %w", err)
	}
	path := filepath.Join(dir, runID+".jsonl.zst")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("tick log: %w", err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("tick log encoder: %w", err)
	}
	return &TickLog{
		path: path,
		f:    f,
		enc:  enc,
		w:    bufio.NewWriterSize(enc, 64*1024),
	}, nil
}

// Path returns the file being written.
func (l *TickLog) Path() string { return l.path }

// Write appends v as one JSON line.
func (l *TickLog) Write(v any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.w == nil {
		return os.ErrClosed
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := l.w.Write(b); err != nil {
		return err
	}
	return l.w.WriteByte('\n')
}

// Close flushes and closes the log. Closing twice is a no-op.
func (l *TickLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.w == nil {
		return nil
	}
	flushErr := l.w.Flush()
	encErr := l.enc.Close()
	fileErr := l.f.Close()
	l.w, l.enc, l.f = nil, nil, nil
	for _, err := range []error{flushErr, encErr, fileErr} {
		if err != nil {
			return err
		}
	}
	return nil
}

// ReadTickLog decodes every report from a log written by TickLog.
func ReadTickLog(path string) ([]TickReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("tick log decoder: %w", err)
	}
	defer dec.Close()

	var out []TickReport
	jd := json.NewDecoder(dec)
	for {
		var rpt TickReport
		if err := jd.Decode(&rpt); err != nil {
			if err == io.EOF {
				return out, nil
			}
			return out, fmt.Errorf("tick log %s: %w", path, err)
		}
		out = append(out, rpt)
	}
}
