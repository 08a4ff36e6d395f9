// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/ollama"
	"github.com/jeranaias/rigchat/internal/prompts"
	"github.com/jeranaias/rigchat/internal/session"
	"github.com/jeranaias/rigchat/internal/storage"
)

// =============================================================================
// TEST HARNESS
// =============================================================================

const testModel = "llama3"

func record(content string) string {
	b, _ := json.Marshal(map[string]any{
		"model":   testModel,
		"message": map[string]string{"role": "assistant", "content": content},
		"done":    false,
	})
	return string(b) + "\n"
}

const doneRecord = `{"model":"llama3","done":true,"done_reason":"stop","eval_count":12,"eval_duration":1000000000}` + "\n"

// fakeOllama serves the subset of the Ollama API the controller uses.
type fakeOllama struct {
	mu          sync.Mutex
	streams     []ollama.ChatRequest
	clears      []ollama.ChatRequest
	chatStatus  int
	clearStatus int

	// respond writes the body of a streaming chat response.
	respond func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeOllama) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/version", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"version":"0.5.7"}`)
	})
	mux.HandleFunc("GET /api/tags", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"models":[{"name":%q},{"name":"mistral"}]}`, testModel)
	})
	mux.HandleFunc("POST /api/chat", func(w http.ResponseWriter, r *http.Request) {
		var req ollama.ChatRequest
		json.NewDecoder(r.Body).Decode(&req)

		f.mu.Lock()
		if req.Stream {
			f.streams = append(f.streams, req)
		} else {
			f.clears = append(f.clears, req)
		}
		chatStatus, clearStatus, respond := f.chatStatus, f.clearStatus, f.respond
		f.mu.Unlock()

		if !req.Stream {
			if clearStatus != 0 {
				w.WriteHeader(clearStatus)
				return
			}
			fmt.Fprint(w, `{"done":true}`)
			return
		}
		if chatStatus != 0 {
			w.WriteHeader(chatStatus)
			fmt.Fprint(w, `{"error":"model not found"}`)
			return
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		respond(w, r)
	})
	return mux
}

func (f *fakeOllama) setRespond(fn func(http.ResponseWriter, *http.Request)) {
	f.mu.Lock()
	f.respond = fn
	f.mu.Unlock()
}

func (f *fakeOllama) streamRequests() []ollama.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ollama.ChatRequest(nil), f.streams...)
}

func (f *fakeOllama) clearRequests() []ollama.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ollama.ChatRequest(nil), f.clears...)
}

// replyWith streams each line with a flush between them.
func replyWith(lines ...string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for _, line := range lines {
			io.WriteString(w, line)
			flusher.Flush()
		}
	}
}

// countingStore counts Saves of the session collection and rejects every
// Save while failSaves is set.
type countingStore struct {
	*storage.MemoryStore
	sessionSaves atomic.Int32
	failSaves    atomic.Bool
}

func (s *countingStore) Save(ctx context.Context, key string, data []byte) error {
	if s.failSaves.Load() {
		return errors.New("disk full")
	}
	if key == storage.KeySessions {
		s.sessionSaves.Add(1)
	}
	return s.MemoryStore.Save(ctx, key, data)
}

type harness struct {
	ctrl   *Controller
	repo   *session.Repository
	fake   *fakeOllama
	server *httptest.Server
	store  *countingStore

	deltas atomic.Int32
}

type harnessOption func(*Options)

func endOfStreamPersistence(o *Options) { o.PersistEveryDelta = false }

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	ctx := context.Background()

	h := &harness{
		fake:  &fakeOllama{respond: replyWith(record("Hello"), record(" world"), doneRecord)},
		store: &countingStore{MemoryStore: storage.NewMemoryStore()},
	}
	h.server = httptest.NewServer(h.fake.handler())
	t.Cleanup(h.server.Close)

	repo, err := session.Open(ctx, h.store)
	require.NoError(t, err)
	lib, err := prompts.Open(ctx, h.store)
	require.NoError(t, err)
	h.repo = repo

	o := Options{
		Sessions:          repo,
		Prompts:           lib,
		Client:            ollama.NewClient(h.server.URL),
		Store:             h.store,
		Settings:          model.Settings{Endpoint: h.server.URL, DefaultModel: testModel},
		PersistEveryDelta: true,
		Hooks: Hooks{
			OnDelta: func(string, string) { h.deltas.Add(1) },
		},
	}
	for _, opt := range opts {
		opt(&o)
	}
	h.ctrl = New(o)
	return h
}

// connected returns a harness that has probed successfully and has an
// active session.
func connected(t *testing.T, opts ...harnessOption) (*harness, *model.Session) {
	t.Helper()
	h := newHarness(t, opts...)
	require.Equal(t, model.Connected, h.ctrl.Connect(context.Background()))
	s, err := h.ctrl.NewSession(context.Background())
	require.NoError(t, err)
	return h, s
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 5*time.Second, 5*time.Millisecond)
}

// =============================================================================
// CONNECT
// =============================================================================

func TestConnect(t *testing.T) {
	h := newHarness(t)

	var states []model.ConnectionState
	h.ctrl.hooks.OnConnection = func(s model.ConnectionState, _ []string) { states = append(states, s) }

	assert.Equal(t, model.Connected, h.ctrl.Connect(context.Background()))
	assert.Equal(t, []string{testModel, "mistral"}, h.ctrl.Models())
	assert.Equal(t, []model.ConnectionState{model.Connecting, model.Connected}, states)
}

func TestConnect_Unreachable(t *testing.T) {
	h := newHarness(t)
	h.server.Close()

	assert.Equal(t, model.Disconnected, h.ctrl.Connect(context.Background()))
	assert.Empty(t, h.ctrl.Models())
}

// =============================================================================
// SEND
// =============================================================================

func TestSend_StreamsReplyIntoSession(t *testing.T) {
	h, s := connected(t)
	ctx := context.Background()

	out, err := h.ctrl.Send(ctx, s.ID, "  Hi there  ")
	require.NoError(t, err)
	assert.Equal(t, Complete, out.Status)
	assert.Equal(t, "Hello world", out.Reply)
	assert.EqualValues(t, 2, h.deltas.Load())

	got, err := h.ctrl.Session(s.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, model.RoleUser, got.Messages[0].Role)
	assert.Equal(t, "Hi there", got.Messages[0].Content)
	assert.Equal(t, model.RoleAssistant, got.Messages[1].Role)
	assert.Equal(t, "Hello world", got.Messages[1].Content)
	assert.False(t, got.Messages[1].IsError)
	assert.Equal(t, 12, got.Messages[1].TokenCount)
	assert.Equal(t, "Hi there", got.Title)
	assert.Equal(t, Idle, h.ctrl.State(s.ID))

	reqs := h.fake.streamRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, testModel, reqs[0].Model)
	require.Len(t, reqs[0].Messages, 1)
	assert.Equal(t, "Hi there", reqs[0].Messages[0].Content)

	// The settled reply survives a reload from the store.
	reopened, err := session.Open(ctx, h.store)
	require.NoError(t, err)
	persisted, err := reopened.Get(s.ID)
	require.NoError(t, err)
	require.Len(t, persisted.Messages, 2)
	assert.Equal(t, "Hello world", persisted.Messages[1].Content)
}

func TestSend_SystemPromptAndHistory(t *testing.T) {
	h, s := connected(t)
	ctx := context.Background()

	_, err := h.ctrl.ApplyTemplate(ctx, s.ID, "technical")
	require.NoError(t, err)

	_, err = h.ctrl.Send(ctx, s.ID, "first")
	require.NoError(t, err)
	_, err = h.ctrl.Send(ctx, s.ID, "second")
	require.NoError(t, err)

	reqs := h.fake.streamRequests()
	require.Len(t, reqs, 2)
	msgs := reqs[1].Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "first", msgs[1].Content)
	assert.Equal(t, "Hello world", msgs[2].Content)
	assert.Equal(t, "second", msgs[3].Content)
}

func TestSend_ImageOnly(t *testing.T) {
	h, s := connected(t)

	out, err := h.ctrl.Send(context.Background(), s.ID, "", "aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, Complete, out.Status)

	got, _ := h.ctrl.Session(s.ID)
	assert.Equal(t, model.DefaultTitle, got.Title)
	assert.Equal(t, []string{"aGVsbG8="}, got.Messages[0].Images)
	assert.Equal(t, []string{"aGVsbG8="}, h.fake.streamRequests()[0].Messages[0].Images)
}

func TestSend_TitleFromLongFirstMessage(t *testing.T) {
	h, s := connected(t)
	text := strings.Repeat("a", 65)

	_, err := h.ctrl.Send(context.Background(), s.ID, text)
	require.NoError(t, err)

	got, _ := h.ctrl.Session(s.ID)
	assert.Equal(t, strings.Repeat("a", 50)+"...", got.Title)
}

func TestSend_Preconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("empty content", func(t *testing.T) {
		h, s := connected(t)
		_, err := h.ctrl.Send(ctx, s.ID, "   ")
		assert.ErrorIs(t, err, ErrNoContent)
		assert.True(t, IsPrecondition(err))
	})

	t.Run("not connected", func(t *testing.T) {
		h := newHarness(t)
		s, err := h.ctrl.NewSession(ctx)
		require.NoError(t, err)
		_, err = h.ctrl.Send(ctx, s.ID, "hi")
		assert.ErrorIs(t, err, ErrNotConnected)
	})

	t.Run("no session", func(t *testing.T) {
		h, _ := connected(t)
		_, err := h.ctrl.Send(ctx, "missing", "hi")
		assert.ErrorIs(t, err, ErrNoSession)
	})

	t.Run("no model", func(t *testing.T) {
		h, s := connected(t)
		require.NoError(t, h.ctrl.SetModel(ctx, s.ID, ""))

		_, err := h.ctrl.Send(ctx, s.ID, "hi")
		assert.ErrorIs(t, err, ErrNoModel)

		got, _ := h.ctrl.Session(s.ID)
		assert.Empty(t, got.Messages, "a rejected send must not append anything")
		assert.Empty(t, h.fake.streamRequests())
	})
}

func TestSend_ServerErrorMidStream(t *testing.T) {
	h, s := connected(t)
	h.fake.setRespond(replyWith(record("Partial"), `{"error":"out of memory"}`+"\n"))

	out, err := h.ctrl.Send(context.Background(), s.ID, "hi")
	require.NoError(t, err)
	assert.Equal(t, Errored, out.Status)
	assert.True(t, ollama.IsStreamError(out.Err))
	assert.Equal(t, "Partial", out.Reply)

	got, _ := h.ctrl.Session(s.ID)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "Partial", got.Messages[1].Content, "partial content is kept")
	assert.False(t, got.Messages[1].IsError)
	assert.True(t, got.Messages[2].IsError)
	assert.Equal(t, model.ErrorReply, got.Messages[2].Content)
}

func TestSend_ConnectionDropMidStream(t *testing.T) {
	h, s := connected(t)
	h.fake.setRespond(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, record("Half"))
		w.(http.Flusher).Flush()

		conn, buf, err := w.(http.Hijacker).Hijack()
		if err != nil {
			return
		}
		buf.Flush()
		conn.Close()
	})

	out, err := h.ctrl.Send(context.Background(), s.ID, "hi")
	require.NoError(t, err)
	assert.Equal(t, Errored, out.Status)

	got, _ := h.ctrl.Session(s.ID)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "Half", got.Messages[1].Content)
	assert.True(t, got.Messages[2].IsError)
}

func TestSend_RequestRejected(t *testing.T) {
	h, s := connected(t)
	h.fake.mu.Lock()
	h.fake.chatStatus = http.StatusNotFound
	h.fake.mu.Unlock()

	out, err := h.ctrl.Send(context.Background(), s.ID, "hi")
	require.NoError(t, err)
	assert.Equal(t, Errored, out.Status)
	assert.True(t, ollama.IsConnectionError(out.Err))
	assert.Equal(t, model.Disconnected, h.ctrl.ConnectionState())

	got, _ := h.ctrl.Session(s.ID)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, model.RoleUser, got.Messages[0].Role)
	assert.True(t, got.Messages[1].IsError)
}

// blockingReply sends one delta then waits for release or the client to go
// away.
func blockingReply(release <-chan struct{}) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, record("Thinking"))
		w.(http.Flusher).Flush()
		select {
		case <-release:
			io.WriteString(w, doneRecord)
		case <-r.Context().Done():
		}
	}
}

func TestSend_RejectsConcurrentSend(t *testing.T) {
	h, s := connected(t)
	release := make(chan struct{})
	h.fake.setRespond(blockingReply(release))

	done := make(chan Outcome, 1)
	go func() {
		out, _ := h.ctrl.Send(context.Background(), s.ID, "one")
		done <- out
	}()
	waitFor(t, func() bool { return h.ctrl.State(s.ID) == Streaming })
	assert.True(t, h.ctrl.Busy(s.ID))

	_, err := h.ctrl.Send(context.Background(), s.ID, "two")
	assert.ErrorIs(t, err, ErrAlreadySending)

	close(release)
	out := <-done
	assert.Equal(t, Complete, out.Status)

	got, _ := h.ctrl.Session(s.ID)
	assert.Len(t, got.Messages, 2, "the rejected send appended nothing")
}

func TestCancel_KeepsPartialReply(t *testing.T) {
	h, s := connected(t)
	release := make(chan struct{})
	defer close(release)
	h.fake.setRespond(blockingReply(release))

	done := make(chan Outcome, 1)
	go func() {
		out, _ := h.ctrl.Send(context.Background(), s.ID, "hi")
		done <- out
	}()
	waitFor(t, func() bool { return h.deltas.Load() == 1 })

	assert.True(t, h.ctrl.Cancel(s.ID))
	out := <-done
	assert.Equal(t, Cancelled, out.Status)
	assert.False(t, h.ctrl.Cancel(s.ID))

	got, _ := h.ctrl.Session(s.ID)
	require.Len(t, got.Messages, 2, "cancel appends no error message")
	assert.Equal(t, "Thinking", got.Messages[1].Content)
}

func TestSend_PersistPolicy(t *testing.T) {
	t.Run("every delta", func(t *testing.T) {
		h, s := connected(t)
		before := h.store.sessionSaves.Load()

		_, err := h.ctrl.Send(context.Background(), s.ID, "hi")
		require.NoError(t, err)

		// user message + two deltas + settle
		assert.EqualValues(t, 4, h.store.sessionSaves.Load()-before)
	})

	t.Run("end of stream", func(t *testing.T) {
		h, s := connected(t, endOfStreamPersistence)
		before := h.store.sessionSaves.Load()

		_, err := h.ctrl.Send(context.Background(), s.ID, "hi")
		require.NoError(t, err)

		// user message + settle
		assert.EqualValues(t, 2, h.store.sessionSaves.Load()-before)
		assert.False(t, h.repo.Dirty())
	})
}

// =============================================================================
// RESET
// =============================================================================

func TestReset_ClearsEvenWhenClearContextFails(t *testing.T) {
	h, s := connected(t)
	ctx := context.Background()

	_, err := h.ctrl.Send(ctx, s.ID, "remember this")
	require.NoError(t, err)

	h.fake.mu.Lock()
	h.fake.clearStatus = http.StatusInternalServerError
	h.fake.mu.Unlock()

	require.NoError(t, h.ctrl.Reset(ctx, s.ID))

	got, _ := h.ctrl.Session(s.ID)
	assert.Empty(t, got.Messages)
	assert.Equal(t, model.DefaultTitle, got.Title)

	clears := h.fake.clearRequests()
	require.Len(t, clears, 1)
	assert.Equal(t, testModel, clears[0].Model)
	require.NotNil(t, clears[0].KeepAlive)
	assert.Equal(t, 0, *clears[0].KeepAlive)
}

func TestReset_ServerUnreachable(t *testing.T) {
	h, s := connected(t)
	ctx := context.Background()
	_, err := h.ctrl.Send(ctx, s.ID, "hi")
	require.NoError(t, err)

	h.server.Close()
	require.NoError(t, h.ctrl.Reset(ctx, s.ID))

	got, _ := h.ctrl.Session(s.ID)
	assert.Empty(t, got.Messages)
	assert.Equal(t, model.DefaultTitle, got.Title)
}

func TestReset_SkipsClearWhenDisconnected(t *testing.T) {
	h := newHarness(t)
	s, err := h.ctrl.NewSession(context.Background())
	require.NoError(t, err)

	require.NoError(t, h.ctrl.Reset(context.Background(), s.ID))
	assert.Empty(t, h.fake.clearRequests())
}

func TestReset_CancelsInFlightSend(t *testing.T) {
	h, s := connected(t)
	release := make(chan struct{})
	defer close(release)
	h.fake.setRespond(blockingReply(release))

	done := make(chan Outcome, 1)
	go func() {
		out, _ := h.ctrl.Send(context.Background(), s.ID, "hi")
		done <- out
	}()
	waitFor(t, func() bool { return h.deltas.Load() == 1 })

	require.NoError(t, h.ctrl.Reset(context.Background(), s.ID))
	assert.Equal(t, Cancelled, (<-done).Status)

	got, _ := h.ctrl.Session(s.ID)
	assert.Empty(t, got.Messages)
}

func TestReset_NotFound(t *testing.T) {
	h := newHarness(t)
	err := h.ctrl.Reset(context.Background(), "missing")
	assert.True(t, session.IsNotFound(err))
}

// =============================================================================
// SESSIONS AND SETTINGS
// =============================================================================

func TestSessionSelection(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.ctrl.Active()
	assert.ErrorIs(t, err, ErrNoSession)

	a, err := h.ctrl.NewSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, testModel, a.Model)
	b, err := h.ctrl.NewSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, b.ID, h.ctrl.ActiveID())

	require.NoError(t, h.ctrl.Select(a.ID))
	active, err := h.ctrl.Active()
	require.NoError(t, err)
	assert.Equal(t, a.ID, active.ID)

	wasActive, err := h.ctrl.Delete(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, wasActive)

	wasActive, err = h.ctrl.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, wasActive)
	assert.Empty(t, h.ctrl.ActiveID())

	assert.True(t, session.IsNotFound(h.ctrl.Select("missing")))
}

func TestDelete_PersistFailureKeepsSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	s, err := h.ctrl.NewSession(ctx)
	require.NoError(t, err)

	h.store.failSaves.Store(true)
	wasActive, err := h.ctrl.Delete(ctx, s.ID)
	assert.Error(t, err)
	assert.False(t, wasActive)
	assert.Equal(t, s.ID, h.ctrl.ActiveID())
	_, err = h.ctrl.Session(s.ID)
	assert.NoError(t, err)

	_, err = h.ctrl.NewSession(ctx)
	assert.Error(t, err)
	assert.Len(t, h.ctrl.Sessions(), 1)
	assert.Equal(t, s.ID, h.ctrl.ActiveID())
}

func TestApplyTemplate_CopiesText(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s, err := h.ctrl.NewSession(ctx)
	require.NoError(t, err)

	tpl, err := h.ctrl.Prompts().Upsert(ctx, "Pirate", "Talk like a pirate.")
	require.NoError(t, err)
	_, err = h.ctrl.ApplyTemplate(ctx, s.ID, tpl.Key)
	require.NoError(t, err)

	_, err = h.ctrl.Prompts().Upsert(ctx, "Pirate", "Talk like a robot.")
	require.NoError(t, err)

	got, _ := h.ctrl.Session(s.ID)
	assert.Equal(t, "Talk like a pirate.", got.SystemPrompt)

	_, err = h.ctrl.ApplyTemplate(ctx, s.ID, "nope")
	assert.ErrorIs(t, err, prompts.ErrNotFound)
}

func TestSaveSettings_RepointsAndReprobes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	other := httptest.NewServer((&fakeOllama{}).handler())
	defer other.Close()

	state, err := h.ctrl.SaveSettings(ctx, model.Settings{Endpoint: other.URL})
	require.NoError(t, err)
	assert.Equal(t, model.Connected, state)
	assert.Equal(t, other.URL, h.ctrl.Settings().Endpoint)
	assert.Equal(t, testModel, h.ctrl.Settings().DefaultModel, "empty fields keep their value")

	var saved model.Settings
	require.NoError(t, storage.LoadJSON(ctx, h.store, storage.KeySettings, &saved))
	assert.Equal(t, other.URL, saved.Endpoint)

	_, err = h.ctrl.SaveSettings(ctx, model.Settings{Endpoint: "not a url"})
	assert.Error(t, err)
	assert.Equal(t, other.URL, h.ctrl.Settings().Endpoint)
}

func TestUseEndpoint_DoesNotPersist(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	other := httptest.NewServer((&fakeOllama{}).handler())
	defer other.Close()

	require.NoError(t, h.ctrl.UseEndpoint(other.URL))
	assert.Equal(t, other.URL, h.ctrl.Settings().Endpoint)
	assert.Equal(t, model.Connected, h.ctrl.Connect(ctx))

	var saved model.Settings
	err := storage.LoadJSON(ctx, h.store, storage.KeySettings, &saved)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.Error(t, h.ctrl.UseEndpoint("not a url"))
	assert.Equal(t, other.URL, h.ctrl.Settings().Endpoint)
}

func TestTestConnection(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	state, err := h.ctrl.TestConnection(ctx, h.server.URL)
	require.NoError(t, err)
	assert.Equal(t, model.Connected, state)
	assert.Equal(t, model.Disconnected, h.ctrl.ConnectionState(), "testing does not change the live state")

	_, err = h.ctrl.TestConnection(ctx, "localhost")
	assert.Error(t, err)
}

func TestClose_WaitsForSends(t *testing.T) {
	h, s := connected(t, endOfStreamPersistence)
	release := make(chan struct{})
	defer close(release)
	h.fake.setRespond(blockingReply(release))

	done := make(chan Outcome, 1)
	go func() {
		out, _ := h.ctrl.Send(context.Background(), s.ID, "hi")
		done <- out
	}()
	waitFor(t, func() bool { return h.deltas.Load() == 1 })

	require.NoError(t, h.ctrl.Close(context.Background()))
	assert.Equal(t, Cancelled, (<-done).Status)
	assert.False(t, h.repo.Dirty())
}
