// Package output appends per-batch Turtle segments to the enriched graph
// file.
package output

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/footgraph/internal/graph"
)

// Segment is one batch's contribution to the output file
type Segment struct {
	Batch   int
	Graph   *graph.Graph
	Written time.Time
}

// Bytes renders the segment as a self-contained Turtle document: a comment
// line followed by one full statement per line. Segments declare no
// prefixes, so any concatenation of them parses as one document.
func (s Segment) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# batch %d, %d statements, %s\n", s.Batch, s.Graph.Len(), s.Written.UTC().Format(time.RFC3339))
	if err := s.Graph.Encode(&buf); err != nil {
		return nil, err
	}
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

// SegmentWriter appends segments to one file. Existing content is never
// rewritten; a run over a non-empty file adds to it.
type SegmentWriter struct {
	path string
	now  func() time.Time
}

// NewSegmentWriter creates a writer for path
func NewSegmentWriter(path string) *SegmentWriter {
	return &SegmentWriter{path: path, now: time.Now}
}

// Path returns the output file path
func (w *SegmentWriter) Path() string {
	return w.path
}

// WriteSegment appends one batch graph and syncs it to disk before
// returning. It reports the number of bytes appended.
func (w *SegmentWriter) WriteSegment(batch int, g *graph.Graph) (n int64, err error) {
	data, err := Segment{Batch: batch, Graph: g, Written: w.now()}.Bytes()
	if err != nil {
		return 0, fmt.Errorf("render segment %d: %w", batch, err)
	}

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open output: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close output: %w", closeErr)
		}
	}()

	written, err := f.Write(data)
	if err != nil {
		return int64(written), fmt.Errorf("append segment %d: %w", batch, err)
	}
	if err := f.Sync(); err != nil {
		return int64(written), fmt.Errorf("sync output: %w", err)
	}
	return int64(written), nil
}

// Truncate empties the output file, creating it if needed
func (w *SegmentWriter) Truncate() error {
	if err := os.Truncate(w.path, 0); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("truncate output: %w", err)
		}
		f, err := os.Create(w.path)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		return f.Close()
	}
	return nil
}
