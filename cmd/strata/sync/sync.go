// Package synccmder provides the `strata sync` CLI command.
package synccmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/papercomputeco/strata/pkg/cliui"
	"github.com/papercomputeco/strata/pkg/config"
	"github.com/papercomputeco/strata/pkg/logger"
	"github.com/papercomputeco/strata/pkg/registry"
	"github.com/papercomputeco/strata/pkg/syncqueue"
	"github.com/papercomputeco/strata/pkg/utils"
)

type syncCommander struct {
	sqlitePath  string
	remoteDSN   string
	maxAttempts uint
	list        bool

	debug     bool
	configDir string
	viper     *viper.Viper
	out       io.Writer
}

var syncFlags = []string{
	config.FlagSQLite,
	config.FlagRemoteDSN,
	config.FlagMaxAttempts,
}

const syncLongDesc string = `Replay writes queued while the remote store was unreachable.

Opens the local store, checks the remote store and drains the durable sync
queue in order. Use --list to inspect the queue without replaying it.

Stop "strata serve" first when it uses the same local store: the server
drains on its own once it reconnects.

Examples:
  strata sync
  strata sync --list`

const syncShortDesc string = "Replay queued remote writes"

// ErrNoRemote is returned when sync runs without a remote store configured.
var ErrNoRemote = errors.New("no remote store configured (set remote.dsn or --remote-dsn)")

// NewSyncCmd creates the sync cobra command.
func NewSyncCmd() *cobra.Command {
	cmder := &syncCommander{}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: syncShortDesc,
		Long:  syncLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, syncFlags)
			cmder.viper = v
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagRemoteDSN, &cmder.remoteDSN)
	config.AddUintFlag(cmd, config.Flags, config.FlagMaxAttempts, &cmder.maxAttempts)
	cmd.Flags().BoolVar(&cmder.list, "list", false, "List queued writes without replaying them")

	return cmd
}

func (c *syncCommander) run(ctx context.Context) error {
	cfg, err := config.FromViper(c.viper)
	if err != nil {
		return err
	}
	// The in-memory queue would always be empty here.
	cfg.Sync.Queue = config.QueueSQLite

	log := zap.NewNop()
	if c.debug {
		log = logger.NewLogger(true)
	}

	reg, err := registry.New(ctx, cfg, registry.Options{ConfigDir: c.configDir, Logger: log})
	if err != nil {
		return err
	}
	defer func() { _ = reg.Close() }()

	if c.list {
		items, err := reg.Queue.Items(ctx)
		if err != nil {
			return err
		}
		printItems(c.out, items)
		return nil
	}

	if !reg.Store.HasRemote() {
		return ErrNoRemote
	}

	if err := cliui.Step(c.out, "Connecting to remote store", func() error {
		return reg.Store.Reconnect(ctx)
	}); err != nil {
		return err
	}

	var result syncqueue.DrainResult
	if err := cliui.Step(c.out, "Replaying queued writes", func() error {
		var drainErr error
		result, drainErr = reg.Drain(ctx)
		return drainErr
	}); err != nil {
		return err
	}

	fmt.Fprintln(c.out)
	cliui.KeyValues(c.out, []cliui.Pair{
		{Key: "Synced", Value: strconv.Itoa(result.Synced)},
		{Key: "Failed", Value: strconv.Itoa(result.Failed)},
		{Key: "Dropped", Value: strconv.Itoa(result.Dropped)},
		{Key: "Remaining", Value: strconv.Itoa(result.Remaining)},
	})
	fmt.Fprintln(c.out)

	if result.Remaining > 0 {
		fmt.Fprintf(c.out, "  %s %s\n\n", cliui.FailMark, "Some writes are still queued; run sync again later.")
	}
	return nil
}

func printItems(w io.Writer, items []syncqueue.Item) {
	if len(items) == 0 {
		fmt.Fprintf(w, "  %s Sync queue is empty.\n", cliui.SuccessMark)
		return
	}

	fmt.Fprintf(w, "\n  %s %s\n\n", cliui.KeyStyle.Render("Queued writes:"), strconv.Itoa(len(items)))
	for i, item := range items {
		line := fmt.Sprintf("%s %s/%s", item.Operation, item.TargetStore(), item.Key())
		if item.Attempts > 0 {
			line += fmt.Sprintf(" (attempts %d: %s)", item.Attempts, utils.Truncate(item.LastError, 60))
		}
		fmt.Fprintf(w, "  %s %s %s\n",
			cliui.DimStyle.Render(fmt.Sprintf("%d.", i+1)),
			cliui.DimStyle.Render(item.CreatedAt.Format("2006-01-02 15:04:05")),
			line,
		)
	}
	fmt.Fprintln(w)
}
