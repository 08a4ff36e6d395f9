// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error display and exit codes for CLI commands.
//
// Commands always return errors and let main decide how to show them.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/rigchat/internal/chat"
	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/ollama"
	"github.com/jeranaias/rigchat/internal/prompts"
	"github.com/jeranaias/rigchat/internal/session"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess       = 0
	ExitGeneralError  = 1
	ExitUsageError    = 2
	ExitConfigError   = 3
	ExitNetworkError  = 5
	ExitNotFoundError = 7
	ExitTimeoutError  = 8
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UnreachableError reports that the Ollama server did not answer a probe.
type UnreachableError struct {
	Endpoint string
	Hint     string
}

func (e *UnreachableError) Error() string {
	msg := fmt.Sprintf("Ollama is not reachable at %s", e.Endpoint)
	if e.Hint != "" {
		msg += ". " + e.Hint
	}
	return msg
}

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError writes err to w, as JSON when jsonMode is set.
func DisplayError(w io.Writer, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		writeJSON(w, NewJSONErrorResponse(err))
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
}

// GetExitCode maps an error to a process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var verrs config.ValidateErrors
	var verr config.ValidationError
	var unreachable *UnreachableError
	switch {
	case errors.As(err, &verrs), errors.As(err, &verr):
		return ExitConfigError
	case chat.IsPrecondition(err), errors.Is(err, prompts.ErrEmptyName), errors.Is(err, prompts.ErrEmptyPrompt):
		return ExitUsageError
	case session.IsNotFound(err), errors.Is(err, prompts.ErrNotFound):
		return ExitNotFoundError
	case errors.As(err, &unreachable), ollama.IsConnectionError(err):
		return ExitNetworkError
	case errors.Is(err, context.DeadlineExceeded):
		return ExitTimeoutError
	}
	return ExitGeneralError
}

// errorType names the category of err for JSON output.
func errorType(err error) string {
	switch GetExitCode(err) {
	case ExitConfigError:
		return "config_error"
	case ExitUsageError:
		return "usage_error"
	case ExitNotFoundError:
		return "not_found_error"
	case ExitNetworkError:
		return "network_error"
	case ExitTimeoutError:
		return "timeout_error"
	}
	return "generic_error"
}
