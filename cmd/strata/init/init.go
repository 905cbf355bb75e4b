// Package initcmder provides the init command for initializing a local
// .strata directory in the current working directory.
package initcmder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/strata/pkg/cliui"
	"github.com/papercomputeco/strata/pkg/config"
	"github.com/papercomputeco/strata/pkg/dotdir"
)

const initLongDesc string = `Initialize a new .strata/ directory in the current working directory.

Creates a local .strata/ directory that takes precedence over the default
~/.strata/ directory for the local store and configuration. With --preset,
also writes a config.toml for a deployment shape:

  local            local-only, in-memory sync queue
  postgres         local store plus a remote PostgreSQL tier
  postgres-kafka   as postgres, publishing status events to kafka

An existing config.toml is kept unless --force is given.

Examples:
  strata init
  strata init --preset postgres`

const initShortDesc string = "Initialize a local .strata/ directory"

type initCommander struct {
	preset string
	force  bool
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "",
		"Write config.toml from a preset ("+strings.Join(config.ValidPresetNames(), ", ")+")")
	cmd.Flags().BoolVar(&cmder.force, "force", false, "Overwrite an existing config.toml")
	_ = cmd.RegisterFlagCompletionFunc("preset", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return config.ValidPresetNames(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func (c *initCommander) run(w io.Writer) error {
	var cfg *config.Config
	if c.preset != "" {
		var err error
		cfg, err = config.PresetConfig(c.preset)
		if err != nil {
			return err
		}
	}

	dir, created, err := dotdir.NewManager().InitLocal()
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(w, "  %s Initialized .strata directory: %s\n", cliui.SuccessMark, dir)
	} else {
		fmt.Fprintf(w, "  %s Already initialized: %s\n", cliui.DimStyle.Render("●"), dir)
	}

	if cfg == nil {
		return nil
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return err
	}

	path := cfger.GetTarget()
	if _, err := os.Stat(path); err == nil && !c.force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", filepath.Base(path))
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking config: %w", err)
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}
	fmt.Fprintf(w, "  %s Wrote %s preset to %s\n", cliui.SuccessMark, c.preset, path)
	return nil
}
