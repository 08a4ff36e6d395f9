// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/rigchat/internal/logging"
	"github.com/jeranaias/rigchat/internal/model"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the Ollama client.
type ClientError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Cause      error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches any ClientError of the same Type, so the sentinels below work
// with errors.Is.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	return ok && t.Type == e.Type
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	// ErrTypeConnection: the request could not be initiated or the server
	// answered non-2xx. Nothing was streamed.
	ErrTypeConnection
	// ErrTypeStream: the stream broke after it started, or the server
	// reported an error record mid-stream.
	ErrTypeStream
	// ErrTypeInvalidResponse: a non-streaming response could not be decoded.
	ErrTypeInvalidResponse
)

// String returns the error type name.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeConnection:
		return "connection"
	case ErrTypeStream:
		return "stream"
	case ErrTypeInvalidResponse:
		return "invalid_response"
	default:
		return "unknown"
	}
}

// Sentinel errors for easy checking.
var (
	ErrConnection = &ClientError{Type: ErrTypeConnection, Message: "cannot reach Ollama"}
	ErrStream     = &ClientError{Type: ErrTypeStream, Message: "stream interrupted"}
)

// IsConnectionError reports whether err is a ConnectionError.
func IsConnectionError(err error) bool {
	return errors.Is(err, ErrConnection)
}

// IsStreamError reports whether err is a StreamTransportError.
func IsStreamError(err error) bool {
	return errors.Is(err, ErrStream)
}

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// DefaultBaseURL is the endpoint of a local Ollama install.
const DefaultBaseURL = "http://localhost:11434"

// ClientConfig holds configuration options for the Ollama client.
type ClientConfig struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434)
	BaseURL string

	// Timeout for non-streaming requests (default: 30s). Streams have no
	// timeout and end only by completion, error or cancellation.
	Timeout time.Duration

	// ProbeTimeout bounds the capability probe (default: 5s)
	ProbeTimeout time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:      DefaultBaseURL,
		Timeout:      30 * time.Second,
		ProbeTimeout: 5 * time.Second,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the Ollama API.
//
// The Client is safe for concurrent use. SetBaseURL may be called while
// requests are in flight; they keep the URL they started with.
type Client struct {
	mu           sync.RWMutex
	config       ClientConfig
	httpClient   *http.Client
	streamClient *http.Client
}

// NewClient creates a client for baseURL with default timeouts.
func NewClient(baseURL string) *Client {
	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	return NewClientWithConfig(cfg)
}

// NewClientWithConfig creates a client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config

	// Fill in defaults for any zero values
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = 5 * time.Second
	}

	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		// No client timeout for streaming; the context governs it.
		streamClient: &http.Client{},
	}
}

// BaseURL returns the current endpoint.
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config.BaseURL
}

// SetBaseURL points the client at a new endpoint.
func (c *Client) SetBaseURL(baseURL string) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c.mu.Lock()
	c.config.BaseURL = strings.TrimRight(baseURL, "/")
	c.mu.Unlock()
}

func (c *Client) url(path string) string {
	return c.BaseURL() + path
}

// connectionError wraps a transport failure or non-2xx response.
func connectionError(msg string, resp *http.Response, cause error) *ClientError {
	e := &ClientError{Type: ErrTypeConnection, Message: msg, Cause: cause}
	if resp != nil {
		e.StatusCode = resp.StatusCode
		var ollamaErr OllamaError
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(body, &ollamaErr) == nil && ollamaErr.Error != "" {
			e.Message = msg + ": " + ollamaErr.Error
		} else {
			e.Message = msg + ": " + resp.Status
		}
	}
	return e
}

// =============================================================================
// CAPABILITY PROBE
// =============================================================================

// Version queries /api/version.
func (c *Client) Version(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("/api/version"), nil)
	if err != nil {
		return "", connectionError("failed to create request", nil, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", connectionError("Ollama is not reachable", nil, err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", connectionError("unexpected status from Ollama", resp, nil)
	}

	var v VersionResponse
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		// Reachable is all the probe needs.
		return "", nil
	}
	return v.Version, nil
}

// Probe reports whether the server answers the capability request. It never
// fails; any error maps to Disconnected.
func (c *Client) Probe(ctx context.Context) model.ConnectionState {
	c.mu.RLock()
	timeout := c.config.ProbeTimeout
	c.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	version, err := c.Version(ctx)
	if err != nil {
		logging.Debug("PROBE_FAILED", logging.Fields{"endpoint": c.BaseURL(), "error": err.Error()})
		return model.Disconnected
	}
	logging.Debug("PROBE_OK", logging.Fields{"endpoint": c.BaseURL(), "version": version})
	return model.Connected
}

// =============================================================================
// MODEL OPERATIONS
// =============================================================================

// ListModels retrieves all available models from Ollama.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("/api/tags"), nil)
	if err != nil {
		return nil, connectionError("failed to create request", nil, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, connectionError("Ollama is not reachable", nil, err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, connectionError("failed to list models", resp, nil)
	}

	var result ListModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}

	return result.Models, nil
}

// ListModelNames returns the advertised model identifiers, or an empty
// slice on any failure.
func (c *Client) ListModelNames(ctx context.Context) []string {
	models, err := c.ListModels(ctx)
	if err != nil {
		logging.Warn("LIST_MODELS_FAILED", logging.Fields{"error": err.Error()})
		return []string{}
	}
	names := make([]string, 0, len(models))
	for _, m := range models {
		if m.Name != "" {
			names = append(names, m.Name)
		}
	}
	return names
}

// =============================================================================
// STREAMING CHAT
// =============================================================================

// StreamChat starts a streaming completion for the history, with the system
// prompt prepended when set. A ConnectionError means nothing was streamed.
// The returned Engine owns the response body; the caller must Close it.
func (c *Client) StreamChat(ctx context.Context, modelName string, history []*model.Message, systemPrompt string) (*Engine, error) {
	reqBody := ChatRequest{
		Model:    modelName,
		Messages: BuildMessages(history, systemPrompt),
		Stream:   true,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, connectionError("failed to marshal request", nil, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/api/chat"), bytes.NewReader(body))
	if err != nil {
		return nil, connectionError("failed to create request", nil, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/x-ndjson")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, connectionError("Ollama is not reachable", nil, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer drainAndClose(resp.Body)
		return nil, connectionError("chat request failed", resp, nil)
	}

	logging.Debug("STREAM_OPEN", logging.Fields{"model": modelName, "messages": len(reqBody.Messages)})
	return NewEngine(ctx, resp.Body), nil
}

// =============================================================================
// CONTEXT CLEAR
// =============================================================================

// ClearContext asks the server to unload modelName, dropping its cached
// context. Failures are logged and swallowed.
func (c *Client) ClearContext(ctx context.Context, modelName string) {
	if err := c.clearContext(ctx, modelName); err != nil {
		logging.Warn("CLEAR_CONTEXT_FAILED", logging.Fields{"model": modelName, "error": err.Error()})
		return
	}
	logging.Debug("CLEAR_CONTEXT_OK", logging.Fields{"model": modelName})
}

func (c *Client) clearContext(ctx context.Context, modelName string) error {
	keepAlive := 0
	body, err := json.Marshal(ChatRequest{
		Model:     modelName,
		Messages:  []Message{},
		Stream:    false,
		KeepAlive: &keepAlive,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/api/chat"), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return connectionError("clear context", nil, err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return connectionError("clear context", resp, nil)
	}
	return nil
}

// drainAndClose lets the transport reuse the connection.
func drainAndClose(r io.ReadCloser) {
	io.Copy(io.Discard, io.LimitReader(r, 64<<10))
	r.Close()
}
