// Package dataset stores environment transitions as zstd-compressed JSON
// lines, one Transition per line. Feature vectors are the normalized compact
// vectors of the features package, in its slot order.
package dataset

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

	"github.com/cxd309/merge-engine/internal/engine"
	"github.com/cxd309/merge-engine/internal/monitoring"
)

// Transition is one (state, action, reward, next state) sample.
type Transition struct {
	EpisodeID    string    `json:"episode_id"`
	Step         int       `json:"step"`
	Features     []float64 `json:"features"`
	Action       int       `json:"action"`
	Reward       float64   `json:"reward"`
	NextFeatures []float64 `json:"next_features"`
	Terminal     bool      `json:"terminal"`
}

// FromRollout turns consecutive rows of a rollout log into transitions.
func FromRollout(log engine.RolloutLog) []Transition {
	if len(log.Steps) < 2 {
		return nil
	}
	out := make([]Transition, 0, len(log.Steps)-1)
	for i := 1; i < len(log.Steps); i++ {
		prev, cur := log.Steps[i-1], log.Steps[i]
		out = append(out, Transition{
			EpisodeID:    log.EpisodeID,
			Step:         cur.Step,
			Features:     prev.Features,
			Action:       cur.Action,
			Reward:       cur.Reward,
			NextFeatures: cur.Features,
			Terminal:     cur.Terminal,
		})
	}
	return out
}

// Writer appends transitions to a zstd stream. It is safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	enc    *zstd.Encoder
	w      *bufio.Writer
	closer io.Closer
	count  int
}

// NewWriter compresses transitions into w. Closing the Writer does not close w.
func NewWriter(w io.Writer) (*Writer, error) {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	return &Writer{enc: enc, w: bufio.NewWriterSize(enc, 128*1024)}, nil
}

// Create creates (or truncates) the file at path, making parent directories
// as needed, and returns a Writer that owns it.
func Create(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating dataset directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating dataset file: %w", err)
	}
	w, err := NewWriter(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	w.closer = f
	monitoring.Logf("dataset: writing %s", path)
	return w, nil
}

// Write appends one transition.
func (w *Writer) Write(t Transition) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.w == nil {
		return errors.New("dataset writer is closed")
	}
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	w.count++
	return nil
}

// WriteRollout appends every transition of log.
func (w *Writer) WriteRollout(log engine.RolloutLog) error {
	for _, t := range FromRollout(log) {
		if err := w.Write(t); err != nil {
			return fmt.Errorf("episode %s step %d: %w", t.EpisodeID, t.Step, err)
		}
	}
	return nil
}

// Count returns the number of transitions written so far.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Close flushes the stream and closes the file if the Writer owns one.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.w == nil {
		return nil
	}
	errFlush := w.w.Flush()
	errEnc := w.enc.Close()
	var errFile error
	if w.closer != nil {
		errFile = w.closer.Close()
		monitoring.Logf("dataset: closed after %d transitions", w.count)
	}
	w.w, w.enc, w.closer = nil, nil, nil
	return errors.Join(errFlush, errEnc, errFile)
}

// Reader streams transitions back from a zstd stream.
type Reader struct {
	dec    *zstd.Decoder
	sc     *bufio.Scanner
	closer io.Closer
	line   int
}

// NewReader decompresses transitions from r.
func NewReader(r io.Reader) (*Reader, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	return &Reader{dec: dec, sc: sc}, nil
}

// Open opens a dataset file written by Create.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset file: %w", err)
	}
	r, err := NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// Next returns the next transition, or io.EOF after the last one.
func (r *Reader) Next() (Transition, error) {
	for r.sc.Scan() {
		r.line++
		line := r.sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var t Transition
		if err := json.Unmarshal(line, &t); err != nil {
			return Transition{}, fmt.Errorf("line %d: %w", r.line, err)
		}
		return t, nil
	}
	if err := r.sc.Err(); err != nil {
		return Transition{}, err
	}
	return Transition{}, io.EOF
}

// Close releases the decoder and the file if the Reader owns one.
func (r *Reader) Close() error {
	r.dec.Close()
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// ReadAll decodes every transition in r.
func ReadAll(r io.Reader) ([]Transition, error) {
	rd, err := NewReader(r)
	if err != nil {
		return nil, err
	}
	defer rd.Close()

	var out []Transition
	for {
		t, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, t)
	}
}
