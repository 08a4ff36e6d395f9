// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"sync"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/time/rate"

	"github.com/jeranaias/rigchat/internal/logging"
)

// readChunkSize is the size of a single read from the response body.
const readChunkSize = 4096

// skipLog rate-limits the malformed-record log across all engines.
var skipLog = rate.Sometimes{First: 3, Interval: 10 * time.Second}

// =============================================================================
// ENGINE
// =============================================================================

// Engine consumes a chunked NDJSON response body and yields the content
// fragments of its records in arrival order.
//
// The engine holds the undelivered tail of decoded text between reads and
// never parses a record before its newline arrives (a final record without
// a newline is parsed at end of input). Each record with non-empty
// message.content becomes exactly one delta. Records that fail to parse are
// skipped.
//
// Next is not safe for concurrent use. Close may be called from any
// goroutine and stops delivery promptly.
type Engine struct {
	ctx   context.Context
	body  io.ReadCloser
	text  io.Reader
	stop  func() bool
	chunk []byte

	// tail is decoded text after the last newline seen.
	tail []byte

	// pending holds deltas parsed from the last read, not yet returned.
	pending []string

	// term is the terminal result returned once pending drains.
	term error

	stats     *StreamStats
	model     string
	closeOnce sync.Once
}

// NewEngine wraps body. Cancelling ctx closes body and ends the stream
// with ctx.Err().
func NewEngine(ctx context.Context, body io.ReadCloser) *Engine {
	e := &Engine{
		ctx:   ctx,
		body:  body,
		text:  transform.NewReader(body, unicode.UTF8BOM.NewDecoder()),
		chunk: make([]byte, readChunkSize),
		stats: NewStreamStats(),
	}
	// Unblocks a Read that is waiting on a stalled connection.
	e.stop = context.AfterFunc(ctx, func() { e.Close() })
	return e
}

// Next returns the next content delta. It returns io.EOF when the stream
// ended normally, ctx.Err() when it was cancelled, and a ClientError of
// type ErrTypeStream when the transport failed or the server reported an
// error. Deltas already returned are never retracted. After a terminal
// result every call returns the same result.
func (e *Engine) Next() (string, error) {
	for {
		if len(e.pending) > 0 {
			delta := e.pending[0]
			e.pending = e.pending[1:]
			return delta, nil
		}
		if e.term != nil {
			return "", e.term
		}
		e.fill()
	}
}

// All returns a single-pass iterator over the deltas. Iteration ends after
// the first error; a normal end yields no error.
func (e *Engine) All() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for {
			delta, err := e.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", err)
				return
			}
			if !yield(delta, nil) {
				return
			}
		}
	}
}

// fill performs one read and folds it into pending or term.
func (e *Engine) fill() {
	if err := e.ctx.Err(); err != nil {
		e.finish(err)
		return
	}

	n, err := e.text.Read(e.chunk)
	if n > 0 {
		e.feed(e.chunk[:n])
	}
	if e.term != nil {
		return
	}

	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		e.flushTail()
		if e.term == nil {
			e.finish(io.EOF)
		}
	default:
		if ctxErr := e.ctx.Err(); ctxErr != nil {
			e.finish(ctxErr)
			return
		}
		e.finish(&ClientError{Type: ErrTypeStream, Message: "stream interrupted", Cause: err})
	}
}

// feed appends decoded text to the tail and parses every complete record.
func (e *Engine) feed(text []byte) {
	e.tail = append(e.tail, text...)

	for e.term == nil {
		i := bytes.IndexByte(e.tail, '\n')
		if i < 0 {
			break
		}
		e.handleRecord(e.tail[:i])
		e.tail = e.tail[i+1:]
	}

	// Reclaim the consumed prefix.
	if len(e.tail) == 0 {
		e.tail = e.tail[:0:0]
	}
}

// flushTail parses a final record that arrived without a trailing newline.
func (e *Engine) flushTail() {
	if len(e.tail) > 0 {
		e.handleRecord(e.tail)
		e.tail = nil
	}
}

// handleRecord parses one record. Empty and malformed records are skipped.
func (e *Engine) handleRecord(line []byte) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}

	var rec streamRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		e.stats.SkippedRecords++
		skipLog.Do(func() {
			logging.Debug("STREAM_RECORD_SKIPPED", logging.Fields{
				"bytes": len(line),
				"error": err.Error(),
			})
		})
		return
	}

	if rec.Error != "" {
		e.finish(&ClientError{Type: ErrTypeStream, Message: rec.Error})
		return
	}

	if rec.Model != "" {
		e.model = rec.Model
	}

	if rec.Message != nil && rec.Message.Content != "" {
		e.stats.RecordFirstToken()
		e.stats.Deltas++
		e.pending = append(e.pending, rec.Message.Content)
	}

	if rec.Done {
		e.stats.Finalize(rec)
		e.finish(io.EOF)
	}
}

// finish records the terminal result and releases the body. Pending
// deltas are still delivered before the result.
func (e *Engine) finish(err error) {
	if e.term != nil {
		return
	}
	e.term = err
	e.stop()
	e.Close()
}

// Close releases the response body. It is safe to call more than once and
// concurrently with Next; a blocked Next then ends with ErrTypeStream, or
// with ctx.Err() if the context was cancelled.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		err = e.body.Close()
	})
	return err
}

// Stats returns the counters collected so far. Server-reported values are
// set only after a done record.
func (e *Engine) Stats() *StreamStats {
	return e.stats
}

// Model returns the model name reported by the stream.
func (e *Engine) Model() string {
	return e.model
}
