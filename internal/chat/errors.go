// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
)

// PreconditionError reports a send or reset rejected before any state
// changed.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return "cannot send: " + e.Reason
}

// Is matches PreconditionErrors by reason; a reasonless target matches any.
func (e *PreconditionError) Is(target error) bool {
	t, ok := target.(*PreconditionError)
	if !ok {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

// Precondition sentinels.
var (
	ErrPrecondition = &PreconditionError{}
	ErrNoContent    = &PreconditionError{Reason: "message is empty"}
	ErrNotConnected = &PreconditionError{Reason: "not connected to Ollama"}
	ErrNoSession    = &PreconditionError{Reason: "no chat selected"}
	ErrNoModel      = &PreconditionError{Reason: "no model selected"}
)

// ErrAlreadySending is returned when a send is already in flight for the
// session.
var ErrAlreadySending = errors.New("a message is already being sent in this chat")

// IsPrecondition reports whether err is a PreconditionError.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrPrecondition)
}
