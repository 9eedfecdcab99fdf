package cli

import (
	"github.com/spf13/cobra"

	"github.com/lucasnoah/hirefactory/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web dashboard and JSON API",
	Long: `Start an HTTP server with a dashboard of recent runs and a JSON API:

  POST /api/runs              {"request": "..."} runs the pipeline, returns the report
  GET  /api/runs              archived runs, newest first (?limit=N)
  GET  /api/runs/{id}         one archived report
  GET  /api/candidates        recent candidates (?limit=N)
  GET  /api/candidates/{id}   candidate with interviews, proposals and compliance rows
  GET  /api/policies          stored policies, or ranked matches with ?q=...&type=...
  GET  /api/stats             analytics summaries (?since=2026-01-01)
  GET  /healthz               liveness

The server stops gracefully on interrupt.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		return web.NewServer(a.orch, a.db, a.archive, a.policies, addr).Start(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "address to listen on")
}
