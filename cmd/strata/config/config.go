// Package configcmder provides the config command for managing persistent
// strata configuration stored in the .strata/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent strata configuration.

Configuration is stored as config.toml in the .strata/ directory and provides
default values for command flags. CLI flags and STRATA_* environment
variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure, for example:
  storage.sqlite_path, storage.cache_ttl, remote.dsn, remote.reconnect_interval,
  sync.queue, sync.max_attempts, sync.backoff, compression.target_size,
  events.provider, events.brokers, api.listen, client.api_target

Use subcommands to get, set, or list configuration values:
  strata config set <key> <value>    Set a configuration value
  strata config get <key>            Get a configuration value
  strata config list                 List all configuration values

Examples:
  strata config set remote.dsn postgres://strata@localhost:5432/strata
  strata config set sync.backoff 1m
  strata config get remote.dsn
  strata config list`

const configShortDesc string = "Manage persistent strata configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

// configDir reads the persistent --config-dir flag when the command is
// attached to the root command.
func configDir(cmd *cobra.Command) string {
	dir, _ := cmd.Flags().GetString("config-dir")
	return dir
}
