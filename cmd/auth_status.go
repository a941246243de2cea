package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"promptd/internal/config"
)

// DefaultStatusTimeout bounds the request to the daemon.
const DefaultStatusTimeout = 10 * time.Second

// statusServer filters the output to a single MCP server.
var statusServer string

// serverAuthStatus mirrors the daemon's /api/servers response.
type serverAuthStatus struct {
	Name       string `json:"name"`
	URL        string `json:"url"`
	Authorized bool   `json:"authorized"`
	Method     string `json:"method"`
	Details    struct {
		HasConfigToken bool `json:"hasConfigToken"`
		HasEnvToken    bool `json:"hasEnvToken"`
		HasOAuthToken  bool `json:"hasOAuthToken"`
		HasCustomAuth  bool `json:"hasCustomAuth"`
	} `json:"details"`
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authorization status for configured MCP servers",
	Long: `Show which MCP servers have a usable credential and where it
comes from (config token, environment token, OAuth token, or a custom
validator).

Examples:
  promptd auth status                  # Show all servers
  promptd auth status --server jira    # Show a single server`,
	RunE: runAuthStatus,
}

func init() {
	authStatusCmd.Flags().StringVar(&statusServer, "server", "", "MCP server name to show status for")
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	endpoint := authEndpoint
	if endpoint == "" {
		loaded, err := config.LoadConfig(config.GetDefaultConfigPathOrPanic())
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		endpoint = loaded.Serve.EffectivePublicURL()
	}

	servers, err := fetchServerStatuses(endpoint)
	if err != nil {
		return err
	}

	if statusServer != "" {
		filtered := servers[:0]
		for _, srv := range servers {
			if srv.Name == statusServer {
				filtered = append(filtered, srv)
			}
		}
		if len(filtered) == 0 {
			return fmt.Errorf("unknown server: %s", statusServer)
		}
		servers = filtered
	}

	if len(servers) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), text.FgYellow.Sprint("No MCP servers configured"))
		return nil
	}

	renderStatusTable(cmd, servers)
	return nil
}

func fetchServerStatuses(endpoint string) ([]serverAuthStatus, error) {
	client := &http.Client{Timeout: DefaultStatusTimeout}

	resp, err := client.Get(endpoint + "/api/servers")
	if err != nil {
		return nil, fmt.Errorf("failed to reach promptd at %s (is the daemon running?): %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected response from %s: %s", endpoint, resp.Status)
	}

	var servers []serverAuthStatus
	if err := json.NewDecoder(resp.Body).Decode(&servers); err != nil {
		return nil, fmt.Errorf("failed to decode server status: %w", err)
	}
	return servers, nil
}

func renderStatusTable(cmd *cobra.Command, servers []serverAuthStatus) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleRounded)

	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("SERVER"),
		text.FgHiCyan.Sprint("AUTHORIZED"),
		text.FgHiCyan.Sprint("METHOD"),
		text.FgHiCyan.Sprint("CONFIG"),
		text.FgHiCyan.Sprint("ENV"),
		text.FgHiCyan.Sprint("OAUTH"),
		text.FgHiCyan.Sprint("CUSTOM"),
	})

	for _, srv := range servers {
		authorized := text.FgRed.Sprint("no")
		if srv.Authorized {
			authorized = text.FgGreen.Sprint("yes")
		}
		t.AppendRow(table.Row{
			srv.Name,
			authorized,
			srv.Method,
			yesNo(srv.Details.HasConfigToken),
			yesNo(srv.Details.HasEnvToken),
			yesNo(srv.Details.HasOAuthToken),
			yesNo(srv.Details.HasCustomAuth),
		})
	}

	t.Render()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "-"
}
