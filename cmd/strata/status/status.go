// Package statuscmder provides the status command showing connectivity and
// sync queue state of a running strata server.
package statuscmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/strata/pkg/cliui"
	"github.com/papercomputeco/strata/pkg/config"
	"github.com/papercomputeco/strata/pkg/registry"
)

type statusCommander struct {
	apiTarget string
	asJSON    bool

	viper *viper.Viper
	out   io.Writer
}

const statusLongDesc string = `Show connectivity and sync queue state.

Asks the running strata server (client.api_target) whether the remote store
is reachable and how many writes are waiting to be replayed.

Examples:
  strata status
  strata status --api-target http://localhost:8081 --json`

const statusShortDesc string = "Show connectivity and sync queue state"

const requestTimeout = 5 * time.Second

// statusResponse mirrors the API envelope of GET /v1/sync.
type statusResponse struct {
	Success bool            `json:"success"`
	Data    registry.Status `json:"data"`
	Error   string          `json:"error"`
}

func NewStatusCmd() *cobra.Command {
	cmder := &statusCommander{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagAPITarget})
			cmder.viper = v
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.apiTarget = cmder.viper.GetString("client.api_target")
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &cmder.apiTarget)
	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Print the raw status as JSON")

	return cmd
}

func (c *statusCommander) run(ctx context.Context) error {
	st, err := fetchStatus(ctx, c.apiTarget)
	if err != nil {
		return err
	}

	if c.asJSON {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	render(c.out, c.apiTarget, st)
	return nil
}

func fetchStatus(ctx context.Context, target string) (registry.Status, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	url := strings.TrimRight(target, "/") + "/v1/sync"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return registry.Status{}, fmt.Errorf("building request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return registry.Status{}, fmt.Errorf("contacting strata server at %s: %w", target, err)
	}
	defer resp.Body.Close()

	var body statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return registry.Status{}, fmt.Errorf("decoding status: %w", err)
	}
	if !body.Success {
		return registry.Status{}, fmt.Errorf("strata server returned %d: %s", resp.StatusCode, body.Error)
	}
	return body.Data, nil
}

func render(w io.Writer, target string, st registry.Status) {
	remote := "not configured"
	if st.HasRemote {
		remote = cliui.Connectivity(st.Online)
	}

	pairs := []cliui.Pair{
		{Key: "Server", Value: cliui.DimStyle.Render(target)},
		{Key: "Remote", Value: remote},
	}
	if st.OfflineSince != nil {
		pairs = append(pairs, cliui.Pair{
			Key:   "Offline for",
			Value: cliui.FormatDuration(time.Since(*st.OfflineSince).Round(time.Second)),
		})
	}
	pairs = append(pairs,
		cliui.Pair{Key: "Queued", Value: strconv.Itoa(st.Queued)},
		cliui.Pair{Key: "Retry armed", Value: strconv.FormatBool(st.RetryPending)},
		cliui.Pair{Key: "Cached", Value: strconv.Itoa(st.Cached)},
		cliui.Pair{Key: "Stored", Value: strconv.Itoa(st.Stored)},
	)

	fmt.Fprintln(w)
	cliui.KeyValues(w, pairs)
	fmt.Fprintln(w)
}
