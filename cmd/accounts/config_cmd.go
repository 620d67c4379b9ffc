// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewConfigCmd creates the config subcommand.
func NewConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after applying the config file, environment and
flags, as YAML. The JWT secret and any database password are redacted.`,
		RunE: runConfig,
	}
}

func runConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		return oops.Code("CONFIG_RENDER_FAILED").Wrap(err)
	}
	if _, err := cmd.OutOrStdout().Write(out); err != nil {
		return oops.Code("CONFIG_RENDER_FAILED").Wrap(err)
	}

	if err := cfg.Validate(); err != nil {
		cmd.PrintErrf("# warning: %v\n", err)
	} else if cfg.InsecureSecret() {
		cmd.PrintErrln("# warning: the built-in development JWT secret is in use")
	}
	return nil
}
