// Package logbuf keeps a bounded in-memory tail of the process log so the
// control API can serve recent log lines without touching the filesystem.
package logbuf

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// DefaultCapacity is the default number of retained log lines
const DefaultCapacity = 1000

// Buffer is a fixed-capacity ring of formatted log lines.
type Buffer struct {
	mu    sync.Mutex
	lines []string
	next  int
	full  bool
}

// NewBuffer creates a buffer retaining up to capacity lines.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{lines: make([]string, capacity)}
}

// Append adds one line, evicting the oldest when full.
func (b *Buffer) Append(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lines[b.next] = line
	b.next++
	if b.next == len(b.lines) {
		b.next = 0
		b.full = true
	}
}

// Tail returns up to limit of the most recent lines, oldest first. A
// non-positive limit returns everything retained.
func (b *Buffer) Tail(limit int) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	var ordered []string
	if b.full {
		ordered = append(ordered, b.lines[b.next:]...)
		ordered = append(ordered, b.lines[:b.next]...)
	} else {
		ordered = append(ordered, b.lines[:b.next]...)
	}

	if limit > 0 && len(ordered) > limit {
		ordered = ordered[len(ordered)-limit:]
	}
	return ordered
}

// SetCapacity resizes the ring, keeping the most recent lines that fit.
func (b *Buffer) SetCapacity(capacity int) {
	if capacity <= 0 {
		return
	}
	kept := b.Tail(capacity)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.lines = make([]string, capacity)
	b.next = copy(b.lines, kept)
	b.full = b.next == capacity
	if b.full {
		b.next = 0
	}
}

// Len returns the number of retained lines.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.full {
		return len(b.lines)
	}
	return b.next
}

// Handler is an slog.Handler that tees every record into a Buffer before
// delegating to the wrapped handler.
type Handler struct {
	slog.Handler
	buf   *Buffer
	attrs []slog.Attr
}

// NewHandler wraps base so every record also lands in buf.
func NewHandler(base slog.Handler, buf *Buffer) *Handler {
	return &Handler{Handler: base, buf: buf}
}

// Handle implements slog.Handler
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	var sb strings.Builder
	sb.WriteString(r.Time.Format("2006-01-02 15:04:05"))
	sb.WriteString(" ")
	sb.WriteString(r.Level.String())
	sb.WriteString(" ")
	sb.WriteString(r.Message)
	for _, a := range h.attrs {
		fmt.Fprintf(&sb, " %s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&sb, " %s=%v", a.Key, a.Value)
		return true
	})
	h.buf.Append(sb.String())

	return h.Handler.Handle(ctx, r)
}

// WithAttrs implements slog.Handler
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &Handler{Handler: h.Handler.WithAttrs(attrs), buf: h.buf, attrs: merged}
}

// WithGroup implements slog.Handler
func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{Handler: h.Handler.WithGroup(name), buf: h.buf, attrs: h.attrs}
}
