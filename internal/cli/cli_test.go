// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigchat/internal/app"
	"github.com/jeranaias/rigchat/internal/chat"
	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/session"
	"github.com/jeranaias/rigchat/internal/storage"
)

// =============================================================================
// ARG PARSER
// =============================================================================

func TestArgParser(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		validate func(*testing.T, *ArgParser)
	}{
		{
			name: "flag with value",
			args: []string{"ask", "--model", "llama3", "hi"},
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, "llama3", p.Flag("model"))
				assert.Equal(t, []string{"ask", "hi"}, p.PositionalFrom(0))
			},
		},
		{
			name: "flag with equals",
			args: []string{"--endpoint=http://gpu:11434"},
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, "http://gpu:11434", p.Flag("endpoint"))
			},
		},
		{
			name: "registered bool does not eat positional",
			args: []string{"--plain", "ask", "hi"},
			validate: func(t *testing.T, p *ArgParser) {
				assert.True(t, p.BoolFlag("plain"))
				assert.Equal(t, "ask", p.Positional(0))
			},
		},
		{
			name: "unregistered trailing flag is boolean",
			args: []string{"status", "--verbose"},
			validate: func(t *testing.T, p *ArgParser) {
				assert.True(t, p.BoolFlag("verbose"))
			},
		},
		{
			name: "repeated flag",
			args: []string{"-i", "a.png", "--image", "b.png"},
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, []string{"a.png", "b.png"}, p.FlagValues("i", "image"))
				assert.Equal(t, "b.png", p.Flag("image"))
			},
		},
		{
			name: "double dash ends flags",
			args: []string{"ask", "--", "--not-a-flag"},
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, "--not-a-flag", p.Positional(1))
			},
		},
		{
			name: "out of range positional",
			args: nil,
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, "", p.Positional(3))
				assert.Empty(t, p.PositionalFrom(1))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.validate(t, NewArgParser(tt.args, boolFlags...))
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		argv    []string
		cmd     Command
		sub     string
		rest    []string
		inspect func(*testing.T, Args)
	}{
		{name: "default is tui", argv: nil, cmd: CmdTUI},
		{name: "chat", argv: []string{"chat", "--session", "3f"}, cmd: CmdChat,
			inspect: func(t *testing.T, a Args) { assert.Equal(t, "3f", a.Session) }},
		{name: "ask keeps every word", argv: []string{"ask", "what", "is", "go"}, cmd: CmdAsk, rest: []string{"what", "is", "go"}},
		{name: "bare question", argv: []string{"why", "is", "the", "sky", "blue"}, cmd: CmdAsk, rest: []string{"why", "is", "the", "sky", "blue"}},
		{name: "sessions export", argv: []string{"sessions", "export", "2", "-o", "out.md"}, cmd: CmdSessions, sub: "export", rest: []string{"2"},
			inspect: func(t *testing.T, a Args) { assert.Equal(t, "out.md", a.Output) }},
		{name: "config set", argv: []string{"config", "set", "storage.driver", "sqlite"}, cmd: CmdConfig, sub: "set", rest: []string{"storage.driver", "sqlite"}},
		{name: "status json", argv: []string{"status", "--json"}, cmd: CmdStatus,
			inspect: func(t *testing.T, a Args) { assert.True(t, a.JSON) }},
		{name: "version flag", argv: []string{"--version"}, cmd: CmdVersion},
		{name: "help flag wins", argv: []string{"chat", "-h"}, cmd: CmdHelp},
		{name: "global flags", argv: []string{"-p", "-m", "mistral", "ask", "hi"}, cmd: CmdAsk, rest: []string{"hi"},
			inspect: func(t *testing.T, a Args) {
				assert.True(t, a.Plain)
				assert.Equal(t, "mistral", a.Model)
			}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Parse(tt.argv)
			assert.Equal(t, tt.cmd, a.Command)
			assert.Equal(t, tt.sub, a.Subcommand)
			if tt.rest != nil {
				assert.Equal(t, tt.rest, a.Rest)
			}
			if tt.inspect != nil {
				tt.inspect(t, a)
			}
		})
	}
}

func TestResolveSession(t *testing.T) {
	list := []*model.Session{
		{ID: "aaaa-1111", Title: "one"},
		{ID: "aabb-2222", Title: "two"},
		{ID: "cccc-3333", Title: "three"},
	}

	s, err := resolveSession(list, "2")
	require.NoError(t, err)
	assert.Equal(t, "two", s.Title)

	s, err = resolveSession(list, "cc")
	require.NoError(t, err)
	assert.Equal(t, "three", s.Title)

	s, err = resolveSession(list, "aaaa-1111")
	require.NoError(t, err)
	assert.Equal(t, "one", s.Title)

	_, err = resolveSession(list, "aa")
	assert.ErrorContains(t, err, "more than one")

	_, err = resolveSession(list, "zz")
	assert.Error(t, err)
}

// =============================================================================
// COMMAND HARNESS
// =============================================================================

func fakeOllama(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/version", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"version":"0.5.7"}`)
	})
	mux.HandleFunc("GET /api/tags", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"models":[{"name":"llama3","size":4700000000},{"name":"mistral"}]}`)
	})
	mux.HandleFunc("POST /api/chat", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Stream bool `json:"stream"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if !req.Stream {
			fmt.Fprint(w, `{"done":true}`)
			return
		}
		io.WriteString(w, `{"message":{"role":"assistant","content":"Hello"}}`+"\n")
		io.WriteString(w, `{"message":{"role":"assistant","content":" world"}}`+"\n")
		io.WriteString(w, `{"done":true,"eval_count":2,"eval_duration":1000000}`+"\n")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type testEnv struct {
	Env
	out *bytes.Buffer
	err *bytes.Buffer
	srv *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	srv := fakeOllama(t)

	cfg := config.Default()
	cfg.Server.Endpoint = srv.URL
	cfg.Server.DefaultModel = "llama3"
	cfg.Storage.DataDir = t.TempDir()
	cfg.SetDefaults()

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	printer := NewPrinter(out)
	a, err := app.NewWithStore(ctx, cfg, storage.NewMemoryStore(), printer.Hooks())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(context.Background()) })

	return &testEnv{
		Env: Env{App: a, Out: out, Err: errOut, Printer: printer},
		out: out,
		err: errOut,
		srv: srv,
	}
}

// scriptedInput feeds lines to the REPL and then reports EOF.
type scriptedInput struct {
	lines   []string
	history []string
}

func (s *scriptedInput) Prompt(string) (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func (s *scriptedInput) AppendHistory(item string) {
	s.history = append(s.history, item)
}

func runScript(t *testing.T, env *testEnv, lines ...string) *REPL {
	t.Helper()
	ctx := context.Background()
	_, err := env.App.Resume(ctx)
	require.NoError(t, err)

	in := &scriptedInput{lines: lines}
	r := NewREPL(env.App, env.Printer, in, env.Out, true)
	r.interrupt = func(ctx context.Context) (context.Context, context.CancelFunc) {
		return context.WithCancel(ctx)
	}
	r.ctrl.Connect(ctx)
	require.NoError(t, r.Run(ctx))
	return r
}

// =============================================================================
// REPL
// =============================================================================

func TestREPL_SendStreamsReply(t *testing.T) {
	env := newTestEnv(t)
	runScript(t, env, "Hi there")

	assert.Contains(t, env.out.String(), "Hello world")

	active, err := env.App.Chat.Active()
	require.NoError(t, err)
	require.Len(t, active.Messages, 2)
	assert.Equal(t, "Hi there", active.Title)
}

func TestREPL_SessionCommands(t *testing.T) {
	env := newTestEnv(t)
	runScript(t, env,
		"first chat",
		"/new",
		"/rename Second",
		"/list",
		"/switch 2",
		"/quit",
		"never sent",
	)

	sessions := env.App.Chat.Sessions()
	require.Len(t, sessions, 2)
	out := env.out.String()
	assert.Contains(t, out, "Second")
	assert.Contains(t, out, "first chat")

	active, err := env.App.Chat.Active()
	require.NoError(t, err)
	assert.Equal(t, "first chat", active.Title, "/switch 2 selects the older chat")
	assert.Len(t, active.Messages, 2, "input after /quit is not sent")
}

func TestREPL_ClearAndSystemPrompt(t *testing.T) {
	env := newTestEnv(t)
	runScript(t, env,
		"remember me",
		"/prompt use creative",
		"/model mistral",
		"/clear",
	)

	active, err := env.App.Chat.Active()
	require.NoError(t, err)
	assert.Empty(t, active.Messages)
	assert.Equal(t, model.DefaultTitle, active.Title)
	assert.Equal(t, "mistral", active.Model)
	assert.Contains(t, active.SystemPrompt, "creative")
}

func TestREPL_PromptSaveAndExport(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	runScript(t, env,
		"/prompt save Pirate Mode = Talk like a pirate.",
		"/prompt export "+path,
	)

	tpl, err := env.App.Prompts.Get("pirate-mode")
	require.NoError(t, err)
	assert.Equal(t, "Talk like a pirate.", tpl.Prompt)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Pirate Mode")
}

func TestREPL_ExportAndErrors(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "chat.md")
	runScript(t, env,
		"Hi",
		"/export "+path,
		"/bogus",
		"/lst",
		"/switch",
	)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Hello world")

	out := env.out.String()
	assert.Contains(t, out, "unknown command /bogus")
	assert.Contains(t, out, "did you mean /list?")
	assert.Contains(t, out, "usage: /switch")
}

func TestREPL_SettingsTest(t *testing.T) {
	env := newTestEnv(t)
	runScript(t, env, "/settings test "+env.srv.URL, "/settings")

	out := env.out.String()
	assert.Contains(t, out, "Connected")
	assert.Contains(t, out, "llama3")
}

// =============================================================================
// COMMANDS
// =============================================================================

func TestRunAsk(t *testing.T) {
	env := newTestEnv(t)
	err := RunAsk(context.Background(), env.Env, Args{Command: CmdAsk, Rest: []string{"Say", "hi"}, Plain: true})
	require.NoError(t, err)

	assert.Equal(t, "Hello world\n", env.out.String())
	sessions := env.App.Chat.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "Say hi", sessions[0].Title)
}

func TestRunAsk_NoModel(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s, err := env.App.Chat.NewSession(ctx)
	require.NoError(t, err)
	require.NoError(t, env.App.Chat.SetModel(ctx, s.ID, ""))

	err = RunAsk(ctx, env.Env, Args{Command: CmdAsk, Session: s.ID, Rest: []string{"hi"}})
	assert.ErrorContains(t, err, "--model")
}

func TestRunSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, RunAsk(ctx, env.Env, Args{Command: CmdAsk, Rest: []string{"Question"}, Plain: true}))
	env.out.Reset()

	require.NoError(t, RunSessions(ctx, env.Env, Args{Command: CmdSessions, JSON: true}))
	var list []sessionSummary
	require.NoError(t, json.Unmarshal(env.out.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Question", list[0].Title)
	assert.Equal(t, 2, list[0].Messages)

	path := filepath.Join(t.TempDir(), "out.md")
	require.NoError(t, RunSessions(ctx, env.Env, Args{Command: CmdSessions, Subcommand: "export", Rest: []string{"1"}, Output: path}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# Question"))

	require.NoError(t, RunSessions(ctx, env.Env, Args{Command: CmdSessions, Subcommand: "delete", Rest: []string{"1"}, Yes: true}))
	assert.Empty(t, env.App.Chat.Sessions())

	err = RunSessions(ctx, env.Env, Args{Command: CmdSessions, Subcommand: "show"})
	assert.ErrorContains(t, err, "usage")
}

func TestRunPrompts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, RunPrompts(ctx, env.Env, Args{Subcommand: "add", Rest: []string{"Haiku", "Answer", "in", "haiku."}}))
	tpl, err := env.App.Prompts.Get("haiku")
	require.NoError(t, err)
	assert.Equal(t, "Answer in haiku.", tpl.Prompt)

	path := filepath.Join(t.TempDir(), "p.yaml")
	require.NoError(t, RunPrompts(ctx, env.Env, Args{Subcommand: "export", Output: path}))

	require.NoError(t, RunPrompts(ctx, env.Env, Args{Subcommand: "delete", Rest: []string{"haiku"}}))
	_, err = env.App.Prompts.Get("haiku")
	require.Error(t, err)

	require.NoError(t, RunPrompts(ctx, env.Env, Args{Subcommand: "import", Rest: []string{path}}))
	_, err = env.App.Prompts.Get("haiku")
	assert.NoError(t, err)
}

func TestRunStatus(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, RunStatus(context.Background(), env.Env, Args{JSON: true}))

	var report statusReport
	require.NoError(t, json.Unmarshal(env.out.Bytes(), &report))
	assert.True(t, report.Connected)
	assert.Equal(t, "0.5.7", report.Version)
	assert.Equal(t, []string{"llama3", "mistral"}, report.Models)
}

func TestRunStatus_Unreachable(t *testing.T) {
	env := newTestEnv(t)
	env.srv.Close()
	err := RunStatus(context.Background(), env.Env, Args{})
	assert.ErrorContains(t, err, "not reachable")
}

func TestRunConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	var out bytes.Buffer

	require.NoError(t, RunConfig(&out, Args{ConfigPath: path, Subcommand: "set", Rest: []string{"storage.persist", "end"}}))

	out.Reset()
	require.NoError(t, RunConfig(&out, Args{ConfigPath: path, Subcommand: "get", Rest: []string{"storage.persist"}}))
	assert.Equal(t, "end\n", out.String())

	err := RunConfig(&out, Args{ConfigPath: path, Subcommand: "set", Rest: []string{"storage.driver", "floppy"}})
	var verrs config.ValidateErrors
	assert.True(t, errors.As(err, &verrs))

	assert.Error(t, RunConfig(&out, Args{ConfigPath: path, Subcommand: "init"}), "init refuses to overwrite")
}

func TestRunSessions_DeleteNeedsConfirmation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.App.Chat.NewSession(ctx)
	require.NoError(t, err)

	confirmIsTTY = func() bool { return false }
	t.Cleanup(func() { confirmIsTTY = IsTTY })
	err = RunSessions(ctx, env.Env, Args{Subcommand: "delete", Rest: []string{"1"}})
	assert.ErrorIs(t, err, ErrConfirmationRequired)
	assert.Len(t, env.App.Chat.Sessions(), 1)

	confirmIsTTY = func() bool { return true }
	confirmInput = strings.NewReader("n\n")
	t.Cleanup(func() { confirmInput = os.Stdin })
	require.NoError(t, RunSessions(ctx, env.Env, Args{Subcommand: "delete", Rest: []string{"1"}}))
	assert.Len(t, env.App.Chat.Sessions(), 1, "declined")

	confirmInput = strings.NewReader("yes\n")
	require.NoError(t, RunSessions(ctx, env.Env, Args{Subcommand: "delete", Rest: []string{"1"}}))
	assert.Empty(t, env.App.Chat.Sessions())
}

// =============================================================================
// ERRORS AND SUGGESTIONS
// =============================================================================

func TestSuggestCommand(t *testing.T) {
	names := slashCommandNames()
	assert.Equal(t, "list", SuggestCommand("lst", names))
	assert.Equal(t, "switch", SuggestCommand("swich", names))
	assert.Equal(t, "", SuggestCommand("list", names), "exact match")
	assert.Equal(t, "", SuggestCommand("xyzzyplugh", names))
	assert.Equal(t, 3, levenshteinDistance("kitten", "sitting"))
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitSuccess},
		{errors.New("boom"), ExitGeneralError},
		{fmt.Errorf("send: %w", chat.ErrNoModel), ExitUsageError},
		{&session.NotFoundError{ID: "x"}, ExitNotFoundError},
		{&UnreachableError{Endpoint: "http://x"}, ExitNetworkError},
		{config.ValidateErrors{{Field: "a", Message: "b"}}, ExitConfigError},
		{context.DeadlineExceeded, ExitTimeoutError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GetExitCode(tt.err), "%v", tt.err)
	}
}

func TestDisplayError_JSON(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, &UnreachableError{Endpoint: "http://x"}, true)

	var resp JSONResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "network_error", resp.ErrorType)
	assert.Contains(t, resp.Error, "http://x")
}
