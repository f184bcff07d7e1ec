package output

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/roach88/pathminer/internal/engine"
	"github.com/roach88/pathminer/internal/ir"
)

// Format selects how sequences are rendered.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// SequenceWriter is a sink that must be closed to complete its output.
type SequenceWriter interface {
	engine.Sink
	io.Closer
}

// TextOptions configures plain-text rendering.
type TextOptions struct {
	// Sentinels brackets each line with START and END events.
	Sentinels bool

	// Attribute prefixes each line with "<relevant-ancestor>#".
	Attribute bool
}

// JSONWriter buffers histories and writes one document on Close.
type JSONWriter struct {
	w    io.Writer
	doc  ir.Document
	done bool
}

// NewJSONWriter creates a JSON document writer over w.
func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{w: w, doc: ir.Document{Data: []ir.HistoryRecord{}}}
}

// Emit implements engine.Sink.
func (j *JSONWriter) Emit(_ context.Context, s engine.Sequence) error {
	if j.done {
		return fmt.Errorf("emit after close")
	}
	j.doc.Data = append(j.doc.Data, s.History)
	return nil
}

// Len returns the number of buffered histories.
func (j *JSONWriter) Len() int { return len(j.doc.Data) }

// Close writes the document. Closing twice writes nothing more.
func (j *JSONWriter) Close() error {
	if j.done {
		return nil
	}
	j.done = true

	enc := json.NewEncoder(j.w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(j.doc); err != nil {
		return fmt.Errorf("write json document: %w", err)
	}
	return nil
}

// TextWriter writes one line per history.
type TextWriter struct {
	w    *bufio.Writer
	opts TextOptions
}

// NewTextWriter creates a plain-text writer over w.
func NewTextWriter(w io.Writer, opts TextOptions) *TextWriter {
	return &TextWriter{w: bufio.NewWriter(w), opts: opts}
}

// Emit implements engine.Sink.
func (t *TextWriter) Emit(_ context.Context, s engine.Sequence) error {
	line := s.History.Text(t.opts.Sentinels)
	if t.opts.Attribute {
		line = s.Ancestor + "#" + line
	}
	if _, err := t.w.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("write sequence: %w", err)
	}
	return nil
}

// Close flushes buffered lines.
func (t *TextWriter) Close() error {
	return t.w.Flush()
}

// New returns the writer for format over w.
func New(w io.Writer, format Format, opts TextOptions) (SequenceWriter, error) {
	switch format {
	case FormatJSON:
		return NewJSONWriter(w), nil
	case FormatText:
		return NewTextWriter(w, opts), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// Create opens path and returns a writer for format whose Close also closes
// the file. An empty path or "-" writes to stdout, which is left open.
func Create(path string, format Format, opts TextOptions) (SequenceWriter, error) {
	if path == "" || path == "-" {
		return New(os.Stdout, format, opts)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	sw, err := New(f, format, opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &fileWriter{SequenceWriter: sw, f: f}, nil
}

type fileWriter struct {
	SequenceWriter
	f *os.File
}

func (fw *fileWriter) Close() error {
	if err := fw.SequenceWriter.Close(); err != nil {
		fw.f.Close()
		return err
	}
	return fw.f.Close()
}
