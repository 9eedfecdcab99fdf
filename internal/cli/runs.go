package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/hirefactory/internal/config"
	"github.com/lucasnoah/hirefactory/internal/db"
	"github.com/lucasnoah/hirefactory/internal/pipeline"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect archived pipeline runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		cfg, err := loadValidConfig()
		if err != nil {
			return err
		}
		archive, err := openArchive(cfg)
		if err != nil {
			return err
		}
		reports, err := archive.List()
		if err != nil {
			return err
		}
		// newest first
		for i, j := 0, len(reports)-1; i < j; i, j = i+1, j-1 {
			reports[i], reports[j] = reports[j], reports[i]
		}
		if limit > 0 && len(reports) > limit {
			reports = reports[:limit]
		}

		if len(reports) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No archived runs.")
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RUN\tSTARTED\tVERDICT\tCANDIDATE\tFALLBACKS\tREQUEST")
		for _, r := range reports {
			verdict, candidate := "-", "-"
			if r.Output != nil {
				verdict = r.Output.Review.ValidationStatus
				candidate = r.Output.Candidate.CandidateID
			}
			fallbacks := "-"
			if fb := r.Fallbacks(); len(fb) > 0 {
				fallbacks = strings.Join(fb, ",")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				r.RunID, r.StartedAt, verdict, candidate, fallbacks, truncateLine(r.Request, 50))
		}
		return w.Flush()
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show an archived run's execution log and final output",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadValidConfig()
		if err != nil {
			return err
		}
		archive, err := openArchive(cfg)
		if err != nil {
			return err
		}
		rep, err := archive.Get(args[0])
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSONTo(cmd.OutOrStdout(), rep)
		}
		if err := rep.WriteText(cmd.OutOrStdout()); err != nil {
			return err
		}
		if events, err := runEvents(cmd, cfg, rep.RunID); err == nil && len(events) > 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "\nEVENTS")
			for _, e := range events {
				line := fmt.Sprintf("  %s %-10s %s", e.Timestamp, e.Stage, e.Event)
				if e.Detail != "" {
					line += ": " + e.Detail
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
		}
		if prompts, _ := cmd.Flags().GetBool("prompts"); prompts {
			writeExchanges(cmd, rep)
		}
		return nil
	},
}

// runEvents reads the stored pipeline events for a run.
func runEvents(cmd *cobra.Command, cfg *config.Config, runID string) ([]db.PipelineEvent, error) {
	database, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	defer database.Close()
	return database.GetPipelineEvents(cmd.Context(), runID)
}

func writeExchanges(cmd *cobra.Command, rep *pipeline.Report) {
	out := cmd.OutOrStdout()
	for _, s := range rep.Stages {
		fmt.Fprintf(out, "\n=== %s prompt ===\n", strings.ToUpper(s.Stage))
		if s.Prompt == "" {
			fmt.Fprintln(out, "(none)")
		} else {
			fmt.Fprintln(out, strings.TrimRight(s.Prompt, "\n"))
		}
		fmt.Fprintf(out, "=== %s reply ===\n", strings.ToUpper(s.Stage))
		if s.Reply == "" {
			fmt.Fprintln(out, "(none)")
		} else {
			fmt.Fprintln(out, strings.TrimRight(s.Reply, "\n"))
		}
	}
}

var candidateCmd = &cobra.Command{
	Use:   "candidate",
	Short: "Inspect candidate records",
}

var candidateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List candidates, most recently updated first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		cfg, err := loadValidConfig()
		if err != nil {
			return err
		}
		database, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		list, err := database.ListCandidates(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No candidates.")
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tEMAIL\tLOCATION\tSTATUS\tUPDATED")
		for _, c := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", c.CandidateID, c.Name, c.Email, c.Location, c.Status, c.UpdatedAt)
		}
		return w.Flush()
	},
}

// candidateView is the JSON shape of 'candidate show --json'.
type candidateView struct {
	Candidate  *db.Candidate             `json:"candidate"`
	Interviews []db.InterviewSchedule    `json:"interviews"`
	Proposals  []db.CompensationProposal `json:"proposals"`
	Compliance []db.ComplianceLog        `json:"compliance"`
}

var candidateShowCmd = &cobra.Command{
	Use:   "show <candidate-id>",
	Short: "Show a candidate with interviews, proposals and compliance results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadValidConfig()
		if err != nil {
			return err
		}
		database, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		ctx := cmd.Context()
		c, err := database.GetCandidate(ctx, args[0])
		if err != nil {
			return err
		}
		if c == nil {
			return fmt.Errorf("candidate %s not found", args[0])
		}
		v := candidateView{Candidate: c}
		if v.Interviews, err = database.ListInterviewSchedules(ctx, c.CandidateID); err != nil {
			return err
		}
		if v.Proposals, err = database.ListCompensationProposals(ctx, c.CandidateID); err != nil {
			return err
		}
		if v.Compliance, err = database.ListComplianceLogs(ctx, c.CandidateID); err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSONTo(cmd.OutOrStdout(), v)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Candidate %s\n", c.CandidateID)
		fmt.Fprintf(out, "  Name:     %s\n", c.Name)
		fmt.Fprintf(out, "  Email:    %s\n", c.Email)
		fmt.Fprintf(out, "  Location: %s\n", c.Location)
		fmt.Fprintf(out, "  Status:   %s\n", c.Status)

		fmt.Fprintf(out, "\nInterviews (%d)\n", len(v.Interviews))
		for _, s := range v.Interviews {
			fmt.Fprintf(out, "  %s  %s  %s with %s, %s [%s]\n",
				s.InterviewLogID, s.ScheduledDate, s.InterviewType, s.Recruiter, s.TechInterviewer, s.Status)
		}
		fmt.Fprintf(out, "\nProposals (%d)\n", len(v.Proposals))
		for _, p := range v.Proposals {
			fmt.Fprintf(out, "  #%d  base %.0f  equity %.0f  bonus %.0f [%s]\n",
				p.ProposalID, p.BaseSalary, p.EquityAmount, p.BonusTarget, p.Status)
		}
		fmt.Fprintf(out, "\nCompliance (%d)\n", len(v.Compliance))
		for _, l := range v.Compliance {
			fmt.Fprintf(out, "  %-18s %-5s %s (%s)\n", l.CheckType, l.Result, l.Details, l.CheckedBy)
		}
		return nil
	},
}

func init() {
	runsListCmd.Flags().Int("limit", 20, "maximum runs to list (0 = all)")
	runsShowCmd.Flags().Bool("json", false, "print the archived report as JSON")
	runsShowCmd.Flags().Bool("prompts", false, "also print each stage's prompt and model reply")
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)

	candidateListCmd.Flags().Int("limit", 50, "maximum candidates to list")
	candidateShowCmd.Flags().Bool("json", false, "print as JSON")
	candidateCmd.AddCommand(candidateListCmd)
	candidateCmd.AddCommand(candidateShowCmd)
}
