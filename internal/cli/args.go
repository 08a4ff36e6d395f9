// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// args.go - Argument parsing shared by every rigchat command.

package cli

import (
	"strings"
)

// =============================================================================
// ARG PARSER
// =============================================================================

// ArgParser splits raw arguments into flags and positionals.
// It handles:
//   - Long flags: --flag value or --flag=value
//   - Short flags: -f value
//   - Boolean flags: names registered as boolean never consume a value
//   - Positional arguments: arguments without flags
//   - "--" ends flag parsing
type ArgParser struct {
	flags      map[string][]string // String flags, repeated values kept in order
	boolFlags  map[string]bool
	positional []string
	raw        []string
}

// NewArgParser parses raw. Names in boolNames are boolean flags.
//
// Example:
//
//	args := NewArgParser([]string{"ask", "--plain", "--model", "llama3", "hi"}, "plain")
//	args.Positional(0)     // "ask"
//	args.Flag("model")     // "llama3"
//	args.BoolFlag("plain") // true
func NewArgParser(raw []string, boolNames ...string) *ArgParser {
	isBool := make(map[string]bool, len(boolNames))
	for _, n := range boolNames {
		isBool[n] = true
	}

	parser := &ArgParser{
		flags:      make(map[string][]string),
		boolFlags:  make(map[string]bool),
		positional: make([]string, 0),
		raw:        raw,
	}

	for i := 0; i < len(raw); i++ {
		arg := raw[i]

		if arg == "--" {
			parser.positional = append(parser.positional, raw[i+1:]...)
			break
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			parser.positional = append(parser.positional, arg)
			continue
		}

		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		switch {
		case isBool[name]:
			parser.boolFlags[name] = !hasValue || value == "true" || value == "1"
		case hasValue:
			parser.flags[name] = append(parser.flags[name], value)
		case i+1 < len(raw) && !strings.HasPrefix(raw[i+1], "-"):
			parser.flags[name] = append(parser.flags[name], raw[i+1])
			i++
		default:
			parser.boolFlags[name] = true
		}
	}

	return parser
}

// Flag returns the last value of a string flag, trying each name in turn.
func (p *ArgParser) Flag(names ...string) string {
	for _, name := range names {
		if vals := p.flags[strings.TrimLeft(name, "-")]; len(vals) > 0 {
			return vals[len(vals)-1]
		}
	}
	return ""
}

// FlagValues returns every value of a repeated flag.
func (p *ArgParser) FlagValues(names ...string) []string {
	var out []string
	for _, name := range names {
		out = append(out, p.flags[strings.TrimLeft(name, "-")]...)
	}
	return out
}

// BoolFlag reports whether any of the boolean flags is set.
func (p *ArgParser) BoolFlag(names ...string) bool {
	for _, name := range names {
		if p.boolFlags[strings.TrimLeft(name, "-")] {
			return true
		}
	}
	return false
}

// Positional returns the positional argument at index, or "".
func (p *ArgParser) Positional(index int) string {
	if index < 0 || index >= len(p.positional) {
		return ""
	}
	return p.positional[index]
}

// PositionalFrom returns all positional arguments starting from index.
func (p *ArgParser) PositionalFrom(index int) []string {
	if index < 0 || index >= len(p.positional) {
		return []string{}
	}
	return p.positional[index:]
}

// PositionalCount returns the number of positional arguments.
func (p *ArgParser) PositionalCount() int {
	return len(p.positional)
}

// Raw returns the original raw arguments.
func (p *ArgParser) Raw() []string {
	return p.raw
}
