// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"time"

	"github.com/jeranaias/rigchat/internal/model"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// Message is a chat message on the wire.
type Message struct {
	Role    string   `json:"role"`             // "system", "user", "assistant"
	Content string   `json:"content"`          // The message content
	Images  []string `json:"images,omitempty"` // Base64 image payloads
}

// ChatRequest is the request body for the /api/chat endpoint.
type ChatRequest struct {
	Model     string    `json:"model"`                // Model name (e.g., "llama3.2")
	Messages  []Message `json:"messages"`             // Conversation history
	Stream    bool      `json:"stream"`               // Enable streaming
	KeepAlive *int      `json:"keep_alive,omitempty"` // Seconds to keep the model loaded; 0 unloads
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// VersionResponse is the response from the /api/version endpoint.
type VersionResponse struct {
	Version string `json:"version"`
}

// ModelInfo contains information about a model.
type ModelInfo struct {
	Name       string       `json:"name"`
	ModifiedAt time.Time    `json:"modified_at"`
	Size       int64        `json:"size"`
	Digest     string       `json:"digest"`
	Details    ModelDetails `json:"details,omitempty"`
}

// ModelDetails contains detailed information about a model.
type ModelDetails struct {
	Format            string   `json:"format"`
	Family            string   `json:"family"`
	Families          []string `json:"families"`
	ParameterSize     string   `json:"parameter_size"`
	QuantizationLevel string   `json:"quantization_level"`
}

// ListModelsResponse is the response from the /api/tags endpoint.
type ListModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// OllamaError is the error body returned by the server, both as a non-2xx
// response and as a record inside a stream.
type OllamaError struct {
	Error string `json:"error"`
}

// streamRecord is one NDJSON event of a streaming chat response. Message is
// a pointer so a record without a message is distinguishable from one with
// empty content.
type streamRecord struct {
	Model   string `json:"model"`
	Message *struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done               bool   `json:"done"`
	DoneReason         string `json:"done_reason,omitempty"`
	Error              string `json:"error,omitempty"`
	TotalDuration      int64  `json:"total_duration,omitempty"`       // nanoseconds
	LoadDuration       int64  `json:"load_duration,omitempty"`        // nanoseconds
	PromptEvalCount    int    `json:"prompt_eval_count,omitempty"`    // tokens in prompt
	PromptEvalDuration int64  `json:"prompt_eval_duration,omitempty"` // nanoseconds
	EvalCount          int    `json:"eval_count,omitempty"`           // tokens generated
	EvalDuration       int64  `json:"eval_duration,omitempty"`        // nanoseconds
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) Message {
	return Message{Role: string(model.RoleSystem), Content: content}
}

// BuildMessages converts a session history to wire messages, with the
// system prompt first when it is not blank.
func BuildMessages(history []*model.Message, systemPrompt string) []Message {
	out := make([]Message, 0, len(history)+1)
	if !model.IsBlank(systemPrompt) {
		out = append(out, NewSystemMessage(systemPrompt))
	}
	for _, m := range history {
		if m == nil {
			continue
		}
		msg := Message{Role: string(m.Role), Content: m.Content}
		if len(m.Images) > 0 {
			msg.Images = append([]string(nil), m.Images...)
		}
		out = append(out, msg)
	}
	return out
}

// FormatSize formats the model size in human-readable form.
func (m *ModelInfo) FormatSize() string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case m.Size >= GB:
		return formatStatsFloat(float64(m.Size)/GB) + " GB"
	case m.Size >= MB:
		return formatStatsFloat(float64(m.Size)/MB) + " MB"
	case m.Size >= KB:
		return formatStatsFloat(float64(m.Size)/KB) + " KB"
	default:
		return formatStatsInt(int(m.Size)) + " B"
	}
}
