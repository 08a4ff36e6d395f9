// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"reflect"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// chunkedBody returns one part per Read, then io.EOF or failErr.
type chunkedBody struct {
	parts   [][]byte
	failErr error
	closed  bool
}

func newChunkedBody(parts ...string) *chunkedBody {
	b := &chunkedBody{}
	for _, p := range parts {
		b.parts = append(b.parts, []byte(p))
	}
	return b
}

func (b *chunkedBody) Read(p []byte) (int, error) {
	if b.closed {
		return 0, errors.New("read on closed body")
	}
	if len(b.parts) == 0 {
		if b.failErr != nil {
			return 0, b.failErr
		}
		return 0, io.EOF
	}
	n := copy(p, b.parts[0])
	b.parts[0] = b.parts[0][n:]
	if len(b.parts[0]) == 0 {
		b.parts = b.parts[1:]
	}
	return n, nil
}

func (b *chunkedBody) Close() error {
	b.closed = true
	return nil
}

// collect drains the engine and returns the deltas and terminal error.
func collect(t *testing.T, e *Engine) ([]string, error) {
	t.Helper()
	var deltas []string
	for i := 0; i < 10000; i++ {
		d, err := e.Next()
		if err != nil {
			return deltas, err
		}
		deltas = append(deltas, d)
	}
	t.Fatal("engine did not terminate")
	return nil, nil
}

func record(content string) string {
	return `{"model":"m","message":{"role":"assistant","content":` + quote(content) + `},"done":false}` + "\n"
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}

const doneRecord = `{"model":"m","message":{"role":"assistant","content":""},"done":true,"done_reason":"stop",` +
	`"total_duration":2000000000,"prompt_eval_count":12,"eval_count":40,"eval_duration":1000000000}` + "\n"

// =============================================================================
// RECORD BOUNDARY TESTS
// =============================================================================

func TestEngineSingleChunk(t *testing.T) {
	e := NewEngine(context.Background(), newChunkedBody(`{"message":{"content":"Hi"}}`+"\n"))

	deltas, err := collect(t, e)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("terminal error = %v, want io.EOF", err)
	}
	if !reflect.DeepEqual(deltas, []string{"Hi"}) {
		t.Errorf("deltas = %q, want [Hi]", deltas)
	}
}

func TestEngineRecordSplitAcrossDeliveries(t *testing.T) {
	e := NewEngine(context.Background(), newChunkedBody(`{"message"`, `:{"content":"X"}}`+"\n"))

	deltas, err := collect(t, e)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("terminal error = %v, want io.EOF", err)
	}
	if !reflect.DeepEqual(deltas, []string{"X"}) {
		t.Errorf("deltas = %q, want [X]", deltas)
	}
	if got := e.Stats().SkippedRecords; got != 0 {
		t.Errorf("SkippedRecords = %d, want 0 (partial record must not be parsed)", got)
	}
}

func TestEngineBoundaryIndependence(t *testing.T) {
	stream := record("Hello") + record(", wörld ") + "\n" + record("🚀 ünïcode") + record("\"quoted\"\n") + doneRecord
	want := []string{"Hello", ", wörld ", "🚀 ünïcode", "\"quoted\"\n"}

	// Every single split point, including inside multi-byte runes.
	for i := 0; i <= len(stream); i++ {
		e := NewEngine(context.Background(), newChunkedBody(stream[:i], stream[i:]))
		deltas, err := collect(t, e)
		if !errors.Is(err, io.EOF) {
			t.Fatalf("split %d: terminal error = %v", i, err)
		}
		if !reflect.DeepEqual(deltas, want) {
			t.Fatalf("split %d: deltas = %q, want %q", i, deltas, want)
		}
	}

	// Random multi-way splits.
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 200; trial++ {
		var parts []string
		rest := stream
		for len(rest) > 0 {
			n := 1 + rng.Intn(len(rest))
			if n > 17 {
				n = 1 + rng.Intn(17)
			}
			parts = append(parts, rest[:n])
			rest = rest[n:]
		}
		e := NewEngine(context.Background(), newChunkedBody(parts...))
		deltas, _ := collect(t, e)
		if !reflect.DeepEqual(deltas, want) {
			t.Fatalf("trial %d (%d parts): deltas = %q, want %q", trial, len(parts), deltas, want)
		}
	}
}

func TestEngineSkipsMalformedRecord(t *testing.T) {
	body := newChunkedBody(`{"message":{"content":"A"}}` + "\n garbage \n" + `{"message":{"content":"B"}}` + "\n")
	e := NewEngine(context.Background(), body)

	deltas, err := collect(t, e)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("terminal error = %v, want io.EOF", err)
	}
	if !reflect.DeepEqual(deltas, []string{"A", "B"}) {
		t.Errorf("deltas = %q, want [A B]", deltas)
	}
	if got := e.Stats().SkippedRecords; got != 1 {
		t.Errorf("SkippedRecords = %d, want 1", got)
	}
}

func TestEngineIgnoresRecordsWithoutContent(t *testing.T) {
	stream := "\n\r\n" +
		`{"model":"m","created_at":"2025-01-01T00:00:00Z"}` + "\n" +
		`{"message":{"role":"assistant"}}` + "\n" +
		`{"message":{"content":""}}` + "\n" +
		record("only")
	e := NewEngine(context.Background(), newChunkedBody(stream))

	deltas, _ := collect(t, e)
	if !reflect.DeepEqual(deltas, []string{"only"}) {
		t.Errorf("deltas = %q, want [only]", deltas)
	}
}

func TestEngineTrailingRecordWithoutNewline(t *testing.T) {
	e := NewEngine(context.Background(), newChunkedBody(record("a"), `{"message":{"content":"b"}}`))

	deltas, err := collect(t, e)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("terminal error = %v, want io.EOF", err)
	}
	if !reflect.DeepEqual(deltas, []string{"a", "b"}) {
		t.Errorf("deltas = %q, want [a b]", deltas)
	}
}

func TestEngineCRLFRecords(t *testing.T) {
	stream := `{"message":{"content":"one"}}` + "\r\n" + `{"message":{"content":"two"}}` + "\r\n"
	deltas, _ := collect(t, NewEngine(context.Background(), newChunkedBody(stream)))
	if !reflect.DeepEqual(deltas, []string{"one", "two"}) {
		t.Errorf("deltas = %q, want [one two]", deltas)
	}
}

// =============================================================================
// TERMINATION TESTS
// =============================================================================

func TestEngineStopsAtDone(t *testing.T) {
	body := newChunkedBody(record("x") + doneRecord + record("after done"))
	e := NewEngine(context.Background(), body)

	deltas, err := collect(t, e)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("terminal error = %v, want io.EOF", err)
	}
	if !reflect.DeepEqual(deltas, []string{"x"}) {
		t.Errorf("deltas = %q, want [x]", deltas)
	}
	if !body.closed {
		t.Error("body should be closed after done record")
	}

	stats := e.Stats()
	if !stats.Complete() {
		t.Fatal("stats should be complete after done record")
	}
	if stats.CompletionTokens != 40 || stats.PromptTokens != 12 {
		t.Errorf("tokens = %d/%d, want 12/40", stats.PromptTokens, stats.CompletionTokens)
	}
	if stats.TokensPerSecond != 40 {
		t.Errorf("TokensPerSecond = %v, want 40", stats.TokensPerSecond)
	}
	if stats.DoneReason != "stop" {
		t.Errorf("DoneReason = %q, want stop", stats.DoneReason)
	}
	if e.Model() != "m" {
		t.Errorf("Model() = %q, want m", e.Model())
	}
}

func TestEngineTransportErrorKeepsPartialOutput(t *testing.T) {
	body := newChunkedBody(record("part1"), record("part2"), `{"message":{"con`)
	body.failErr = errors.New("connection reset by peer")
	e := NewEngine(context.Background(), body)

	deltas, err := collect(t, e)
	if !reflect.DeepEqual(deltas, []string{"part1", "part2"}) {
		t.Errorf("deltas = %q, want [part1 part2]", deltas)
	}
	if !IsStreamError(err) {
		t.Fatalf("terminal error = %v, want stream error", err)
	}
	if !strings.Contains(err.Error(), "connection reset") {
		t.Errorf("error %q should carry the cause", err)
	}

	// Terminal result is sticky.
	if _, again := e.Next(); !IsStreamError(again) {
		t.Errorf("second Next() error = %v, want same stream error", again)
	}
}

func TestEngineServerErrorRecord(t *testing.T) {
	body := newChunkedBody(record("before"), `{"error":"model runner crashed"}`+"\n", record("never"))
	e := NewEngine(context.Background(), body)

	deltas, err := collect(t, e)
	if !reflect.DeepEqual(deltas, []string{"before"}) {
		t.Errorf("deltas = %q, want [before]", deltas)
	}
	var ce *ClientError
	if !errors.As(err, &ce) || ce.Type != ErrTypeStream {
		t.Fatalf("terminal error = %v, want ErrTypeStream", err)
	}
	if ce.Message != "model runner crashed" {
		t.Errorf("Message = %q", ce.Message)
	}
}

func TestEngineInvalidUTF8IsReplaced(t *testing.T) {
	stream := "{\"message\":{\"content\":\"a\xffb\"}}\n"
	deltas, _ := collect(t, NewEngine(context.Background(), newChunkedBody(stream)))
	if len(deltas) != 1 || deltas[0] != "a�b" {
		t.Errorf("deltas = %q, want [a\\uFFFDb]", deltas)
	}
}

// =============================================================================
// CANCELLATION TESTS
// =============================================================================

func TestEngineCancelStopsBlockedRead(t *testing.T) {
	pr, pw := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	e := NewEngine(ctx, pr)

	go func() {
		pw.Write([]byte(record("first")))
		// Then stall forever.
	}()

	d, err := e.Next()
	if err != nil || d != "first" {
		t.Fatalf("Next() = %q, %v, want first", d, err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := e.Next()
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Next() after cancel error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Next() did not return after cancel")
	}
}

func TestEngineAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewEngine(ctx, newChunkedBody(record("x")))
	if _, err := e.Next(); !errors.Is(err, context.Canceled) {
		t.Errorf("Next() error = %v, want context.Canceled", err)
	}
}

func TestEngineAll(t *testing.T) {
	e := NewEngine(context.Background(), newChunkedBody(record("a"), record("b"), doneRecord))

	var got []string
	for d, err := range e.All() {
		if err != nil {
			t.Fatalf("All() error = %v", err)
		}
		got = append(got, d)
	}
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("All() = %q, want [a b]", got)
	}
}

func TestEngineAllStopsEarly(t *testing.T) {
	e := NewEngine(context.Background(), newChunkedBody(record("a"), record("b")))
	defer e.Close()

	for d := range e.All() {
		if d != "a" {
			t.Errorf("first delta = %q", d)
		}
		break
	}
	if d, err := e.Next(); err != nil || d != "b" {
		t.Errorf("Next() after early break = %q, %v, want b", d, err)
	}
}
