// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// confirm.go - Confirmation for destructive commands.
//
//  1. --yes proceeds without prompting
//  2. --json and non-terminal stdin require --yes
//  3. otherwise the user is asked on the terminal

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ConfirmationOptions controls RequireConfirmation.
type ConfirmationOptions struct {
	// Yes is set by --yes and skips the prompt.
	Yes bool
	// JSONMode forbids interactive prompts.
	JSONMode bool
}

// ErrConfirmationRequired is returned when a prompt is impossible and
// --yes was not given.
var ErrConfirmationRequired = errors.New("confirmation required: pass --yes")

var (
	confirmInput io.Reader = os.Stdin
	confirmIsTTY           = IsTTY
)

// RequireConfirmation asks before action runs. It reports false when the
// user declines.
func RequireConfirmation(out io.Writer, action string, opts ConfirmationOptions) (bool, error) {
	if opts.Yes {
		return true, nil
	}
	if opts.JSONMode || !confirmIsTTY() {
		return false, ErrConfirmationRequired
	}
	return PromptYesNo(out, action+"?"), nil
}

// PromptYesNo asks a y/N question and reads one line of input.
func PromptYesNo(out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)

	reader := bufio.NewReader(confirmInput)
	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return false
	}
	response := strings.ToLower(strings.TrimSpace(input))
	return response == "y" || response == "yes"
}
