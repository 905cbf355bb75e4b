// Package stratacmder is the root strata command.
package stratacmder

import (
	"github.com/spf13/cobra"

	versioncmder "github.com/papercomputeco/strata/cmd/version"
	configcmder "github.com/papercomputeco/strata/cmd/strata/config"
	initcmder "github.com/papercomputeco/strata/cmd/strata/init"
	servecmder "github.com/papercomputeco/strata/cmd/strata/serve"
	statuscmder "github.com/papercomputeco/strata/cmd/strata/status"
	synccmder "github.com/papercomputeco/strata/cmd/strata/sync"
)

const strataLongDesc string = `Strata is hierarchical conversation memory with offline-first storage.

Conversations are kept in three tiers: an in-process cache, a local SQLite
store and an optional remote PostgreSQL store. Writes never wait on the
remote; while it is unreachable they are queued and replayed on reconnect.

Run the server using:
  strata serve         Run the API and MCP server
  strata status        Show connectivity and sync queue state
  strata sync          Replay queued remote writes now`

const strataShortDesc string = "Strata - Conversation Memory"

func NewStrataCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "strata",
		Short:        strataShortDesc,
		Long:         strataLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .strata/ directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(synccmder.NewSyncCmd())
	cmd.AddCommand(statuscmder.NewStatusCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
