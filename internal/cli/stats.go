package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/hirefactory/internal/analytics"
	"github.com/lucasnoah/hirefactory/internal/db"
)

// statsReport is the JSON shape of 'stats --json'.
type statsReport struct {
	Since      string                        `json:"since,omitempty"`
	Runs       analytics.RunCount            `json:"runs"`
	Stages     []analytics.StageFallbackRate `json:"stages"`
	Compliance []analytics.ComplianceSummary `json:"compliance"`
	Proposals  analytics.ProposalStats       `json:"proposals"`
	Funnel     []analytics.FunnelStage       `json:"funnel"`
}

func collectStats(database *db.DB, since string) (*statsReport, error) {
	st := &statsReport{Since: since}
	var err error
	if st.Runs, err = analytics.QueryRunCount(database, since); err != nil {
		return nil, err
	}
	if st.Stages, err = analytics.QueryStageFallbackRates(database, since); err != nil {
		return nil, err
	}
	if st.Compliance, err = analytics.QueryComplianceSummary(database, since); err != nil {
		return nil, err
	}
	if st.Proposals, err = analytics.QueryProposalStats(database, since); err != nil {
		return nil, err
	}
	if st.Funnel, err = analytics.QueryCandidateFunnel(database); err != nil {
		return nil, err
	}
	return st, nil
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize runs, stage fallbacks, compliance results and proposals",
	RunE: func(cmd *cobra.Command, args []string) error {
		since, _ := cmd.Flags().GetString("since")
		if since != "" {
			if _, err := time.Parse(time.DateOnly, since); err != nil {
				return fmt.Errorf("--since must be YYYY-MM-DD: %w", err)
			}
		}

		cfg, err := loadValidConfig()
		if err != nil {
			return err
		}
		database, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		st, err := collectStats(database, since)
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSONTo(cmd.OutOrStdout(), st)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Runs: %d (%d failed)\n\n", st.Runs.Runs, st.Runs.Failed)

		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "STAGE\tTOTAL\tCOMPLETED\tFALLBACK\tFAILED\tFALLBACK%\tFAILED%")
		for _, s := range st.Stages {
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%.1f\t%.1f\n",
				s.Stage, s.Total, s.Completed, s.Fallback, s.Failed, s.FallbackPct, s.FailedPct)
		}
		w.Flush()

		fmt.Fprintln(out)
		w = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CHECK\tTOTAL\tPASS\tFAIL\tFALLBACK\tPASS%")
		for _, c := range st.Compliance {
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%.1f\n", c.CheckType, c.Total, c.Passed, c.Failed, c.Fallback, c.PassRate)
		}
		w.Flush()

		p := st.Proposals
		fmt.Fprintf(out, "\nProposals: %d\n", p.Count)
		if p.Count > 0 {
			fmt.Fprintf(out, "  base  avg %.0f  min %.0f  p50 %.0f  p95 %.0f  max %.0f\n",
				p.AvgBase, p.MinBase, p.P50Base, p.P95Base, p.MaxBase)
			fmt.Fprintf(out, "  avg equity %.0f  avg bonus %.0f\n", p.AvgEquity, p.AvgBonus)
		}

		fmt.Fprintln(out, "\nCandidates")
		for _, f := range st.Funnel {
			fmt.Fprintf(out, "  %-20s %4d  %5.1f%%\n", f.Status, f.Count, f.Pct)
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().String("since", "", "only count rows on or after this date (YYYY-MM-DD)")
	statsCmd.Flags().Bool("json", false, "print as JSON")
}
