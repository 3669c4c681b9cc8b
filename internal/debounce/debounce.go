// Package debounce coalesces rapid edits to the same cart-line field into a
// single persisted write. Only one pending write per (line, field) exists at
// a time; a newer value replaces an older unsent one.
package debounce

import (
	"sync"
	"time"
)

const DefaultWait = 500 * time.Millisecond

type key struct {
	LineID uint
	Field  string
}

type pending struct {
	timer *time.Timer
	value float64
}

// FlushFunc persists the final value of one (line, field) edit.
type FlushFunc func(lineID uint, field string, value float64)

type Writer struct {
	mu      sync.Mutex
	wait    time.Duration
	flush   FlushFunc
	pending map[key]*pending
	closed  bool
}

func NewWriter(wait time.Duration, flush FlushFunc) *Writer {
	if wait <= 0 {
		wait = DefaultWait
	}
	return &Writer{
		wait:    wait,
		flush:   flush,
		pending: make(map[key]*pending),
	}
}

// Set schedules a write of value for (lineID, field), superseding any
// pending write for the same pair.
func (w *Writer) Set(lineID uint, field string, value float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	k := key{LineID: lineID, Field: field}
	if p, ok := w.pending[k]; ok {
		p.timer.Stop()
		p.value = value
		p.timer.Reset(w.wait)
		return
	}

	p := &pending{value: value}
	p.timer = time.AfterFunc(w.wait, func() { w.fire(k) })
	w.pending[k] = p
}

func (w *Writer) fire(k key) {
	w.mu.Lock()
	p, ok := w.pending[k]
	if ok {
		delete(w.pending, k)
	}
	w.mu.Unlock()
	if ok {
		w.flush(k.LineID, k.Field, p.value)
	}
}

// Flush writes every pending edit immediately. Checkout calls it so totals
// are computed from the final values, not from a half-applied cart.
func (w *Writer) Flush() {
	w.mu.Lock()
	drained := make(map[key]*pending, len(w.pending))
	for k, p := range w.pending {
		p.timer.Stop()
		drained[k] = p
		delete(w.pending, k)
	}
	w.mu.Unlock()

	for k, p := range drained {
		w.flush(k.LineID, k.Field, p.value)
	}
}

// Close flushes outstanding edits and rejects further Sets.
func (w *Writer) Close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.Flush()
}
