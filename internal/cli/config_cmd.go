// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Configuration file management.
//
// Command: config [subcommand]
//
// Subcommands:
//   show (default)     Print the effective configuration
//   get KEY            Print one value (dot notation, e.g. storage.driver)
//   set KEY VALUE      Change one value and save the config file
//   keys               List settable keys
//   path               Print the config file path
//   init               Write a config file with defaults

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jeranaias/rigchat/internal/config"
)

// RunConfig handles the "config" command. It works on the config file
// directly and does not open the store.
func RunConfig(out io.Writer, args Args) error {
	path := args.ConfigPath
	if path == "" {
		p, err := config.ConfigPathTOML()
		if err != nil {
			return err
		}
		path = p
	}

	load := func() (*config.Config, error) {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			cfg := config.Default()
			cfg.SetDefaults()
			return cfg, nil
		}
		return config.LoadFromPath(path)
	}

	switch args.Subcommand {
	case "", "show":
		cfg, err := load()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, cfg.String())
		return nil

	case "get":
		if len(args.Rest) == 0 {
			return errors.New("usage: rigchat config get KEY")
		}
		cfg, err := load()
		if err != nil {
			return err
		}
		v, err := cfg.Get(args.Rest[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, v)
		return nil

	case "set":
		if len(args.Rest) < 2 {
			return errors.New("usage: rigchat config set KEY VALUE")
		}
		cfg, err := load()
		if err != nil {
			return err
		}
		if err := cfg.Set(args.Rest[0], args.Rest[1]); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := config.EnsureConfigDir(); err != nil {
			return err
		}
		if err := config.SaveTOML(cfg, path); err != nil {
			return err
		}
		fmt.Fprintln(out, SuccessStyle.Render("Saved")+" "+args.Rest[0]+" = "+args.Rest[1])
		return nil

	case "keys":
		for _, k := range config.GetAllKeys() {
			fmt.Fprintln(out, k)
		}
		return nil

	case "path":
		fmt.Fprintln(out, path)
		return nil

	case "init":
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := config.EnsureConfigDir(); err != nil {
			return err
		}
		cfg := config.Default()
		if err := config.SaveTOML(cfg, path); err != nil {
			return err
		}
		fmt.Fprintln(out, SuccessStyle.Render("Wrote")+" "+path)
		return nil
	}
	return errors.New("unknown config command: " + args.Subcommand)
}
