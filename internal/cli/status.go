// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - Server status command.
//
// Command: status
// Short:   Probe the Ollama server and list its models
//
// Examples:
//   rigchat status
//   rigchat status --json

package cli

import (
	"context"
	"fmt"

	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/ollama"
)

// statusReport is the --json output.
type statusReport struct {
	Endpoint  string   `json:"endpoint"`
	Connected bool     `json:"connected"`
	Version   string   `json:"version,omitempty"`
	Models    []string `json:"models"`
	Sessions  int      `json:"sessions"`
	Store     string   `json:"store"`
}

// RunStatus handles the "status" command.
func RunStatus(ctx context.Context, env Env, args Args) error {
	a := env.App
	client := a.Client

	report := statusReport{
		Endpoint: client.BaseURL(),
		Models:   []string{},
		Sessions: a.Sessions.Len(),
		Store:    a.Config().Storage.Driver,
	}

	var infos []ollama.ModelInfo
	if a.Chat.Connect(ctx) == model.Connected {
		report.Connected = true
		report.Version, _ = client.Version(ctx)
		infos, _ = client.ListModels(ctx)
		for _, m := range infos {
			report.Models = append(report.Models, m.Name)
		}
	}

	if args.JSON {
		return writeJSON(env.Out, report)
	}

	state := model.Disconnected
	if report.Connected {
		state = model.Connected
	}
	fmt.Fprintln(env.Out, TitleStyle.Render("rigchat status"))
	fmt.Fprintln(env.Out, RenderLabel("Endpoint", report.Endpoint)+" "+RenderStatus(report.Connected, state.String()))
	if report.Version != "" {
		fmt.Fprintln(env.Out, RenderLabel("Ollama", report.Version))
	}
	fmt.Fprintln(env.Out, RenderLabel("Store", report.Store))
	fmt.Fprintln(env.Out, RenderLabel("Chats", fmt.Sprint(report.Sessions)))
	fmt.Fprintln(env.Out, RenderLabel("Default model", orNone(a.Chat.Settings().DefaultModel)))

	if len(infos) > 0 {
		fmt.Fprintln(env.Out)
		fmt.Fprintln(env.Out, TitleStyle.Render("Models"))
		for _, m := range infos {
			fmt.Fprintln(env.Out, "  "+RenderLabel(m.Name, m.FormatSize()))
		}
	}
	if !report.Connected {
		return &UnreachableError{Endpoint: report.Endpoint}
	}
	return nil
}
