// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// json_output.go - JSON output for --json mode.

package cli

import (
	"encoding/json"
	"io"
	"time"
)

// JSONResponse is the envelope for errors reported in --json mode.
type JSONResponse struct {
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	ErrorType string    `json:"error_type,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewJSONErrorResponse wraps err for JSON output.
func NewJSONErrorResponse(err error) *JSONResponse {
	return &JSONResponse{
		Success:   false,
		Error:     err.Error(),
		ErrorType: errorType(err),
		Timestamp: time.Now(),
	}
}

// writeJSON writes v to w as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
