// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// prompts_cmd.go - Prompt template management.
//
// Command: prompts [subcommand]
//
// Subcommands:
//   list (default)          List templates
//   add NAME TEXT...        Save a template (same name overwrites)
//   delete KEY              Delete a template
//   export [-o FILE]        Write templates as YAML
//   import FILE             Read templates from YAML

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/rigchat/internal/util"
)

// RunPrompts handles the "prompts" command.
func RunPrompts(ctx context.Context, env Env, args Args) error {
	lib := env.App.Prompts

	switch args.Subcommand {
	case "", "list", "ls":
		for _, t := range lib.List() {
			fmt.Fprintln(env.Out, TitleStyle.Render(t.Name)+" "+DimStyle.Render("("+t.Key+")"))
			fmt.Fprintln(env.Out, "  "+util.Ellipsize(util.SingleLine(t.Prompt), 100))
		}
		return nil

	case "add", "save":
		if len(args.Rest) < 2 {
			return errors.New("usage: rigchat prompts add NAME TEXT")
		}
		t, err := lib.Upsert(ctx, args.Rest[0], strings.Join(args.Rest[1:], " "))
		if err != nil {
			return err
		}
		fmt.Fprintln(env.Err, SuccessStyle.Render("Saved")+" "+t.Key)
		return nil

	case "delete", "rm":
		if len(args.Rest) == 0 {
			return errors.New("usage: rigchat prompts delete KEY")
		}
		return lib.Delete(ctx, args.Rest[0])

	case "export":
		if args.Output == "" {
			return lib.ExportYAML(env.Out)
		}
		f, err := os.OpenFile(args.Output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return err
		}
		if err := lib.ExportYAML(f); err != nil {
			f.Close()
			return err
		}
		return f.Close()

	case "import":
		if len(args.Rest) == 0 {
			return errors.New("usage: rigchat prompts import FILE")
		}
		f, err := os.Open(args.Rest[0])
		if err != nil {
			return err
		}
		defer f.Close()
		n, err := lib.ImportYAML(ctx, f)
		if err != nil {
			return err
		}
		fmt.Fprintf(env.Err, "%s %d prompts\n", SuccessStyle.Render("Imported"), n)
		return nil
	}
	return errors.New("unknown prompts command: " + args.Subcommand)
}
