package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/lucasnoah/hirefactory/internal/orchestrator"
	"github.com/lucasnoah/hirefactory/internal/pipeline"
	"github.com/lucasnoah/hirefactory/internal/tui"
)

// ExampleRequest is the sample request run by 'run --example'.
const ExampleRequest = `Find candidate data for Raja. He's applying for SOE-1 Software Development Engineer ` +
	`position in Bangalore. Compute his compensation based on our salary bands and policy ` +
	`COMP-POL-India-2025-v3.2. Schedule an interview and send him the details.`

func writeJSONTo(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var runCmd = &cobra.Command{
	Use:   "run [request...]",
	Short: "Run the pipeline for one recruitment request",
	Long: `Run Interpret, Coordinate, Research, Execute and Review for one request and
print the execution log and final output. The request is taken from the
arguments, from stdin when the only argument is "-", or is the built-in
example with --example.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		example, _ := cmd.Flags().GetBool("example")
		asJSON, _ := cmd.Flags().GetBool("json")

		var request string
		switch {
		case example:
			request = ExampleRequest
		case len(args) == 1 && args[0] == "-":
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read request: %w", err)
			}
			request = string(data)
		default:
			request = strings.Join(args, " ")
		}
		if strings.TrimSpace(request) == "" {
			return errors.New("no request given (pass text, '-' for stdin, or --example)")
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		rep, err := a.orch.Run(cmd.Context(), request)
		if err != nil {
			var se *orchestrator.StageError
			if errors.As(err, &se) {
				w := cmd.ErrOrStderr()
				fmt.Fprintln(w, "EXECUTION LOG")
				for i, line := range se.AuditLog {
					fmt.Fprintf(w, "%d. %s\n", i+1, line)
				}
			}
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON {
			return writeJSONTo(out, rep)
		}
		return rep.WriteText(out)
	},
}

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Enter requests one at a time until quit, exit or q",
	RunE: func(cmd *cobra.Command, args []string) error {
		plain, _ := cmd.Flags().GetBool("plain")

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if !plain && isTerminal(cmd.InOrStdin()) && isTerminal(cmd.OutOrStdout()) {
			return tui.Run(cmd.Context(), a.orch)
		}
		return tui.RunPlain(cmd.Context(), a.orch, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func isTerminal(v interface{}) bool {
	f, ok := v.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

// readRequests returns the non-blank, non-comment lines of r.
func readRequests(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}

// BatchResult is one line of 'batch --json' output.
type BatchResult struct {
	Request          string   `json:"request"`
	RunID            string   `json:"run_id,omitempty"`
	CandidateID      string   `json:"candidate_id,omitempty"`
	ValidationStatus string   `json:"validation_status,omitempty"`
	Fallbacks        []string `json:"fallbacks,omitempty"`
	Error            string   `json:"error,omitempty"`
}

func batchResult(request string, rep *pipeline.Report, err error) BatchResult {
	res := BatchResult{Request: request}
	if err != nil {
		res.Error = err.Error()
		var se *orchestrator.StageError
		if errors.As(err, &se) {
			res.RunID = se.RunID
		}
		return res
	}
	res.RunID = rep.RunID
	res.Fallbacks = rep.Fallbacks()
	if rep.Output != nil {
		res.CandidateID = rep.Output.Candidate.CandidateID
		res.ValidationStatus = rep.Output.Review.ValidationStatus
	}
	return res
}

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Run one request per line from a file ('-' for stdin)",
	Long: `Run every non-blank line of the file as a separate request, in order.
Lines starting with # are skipped. A failed request is reported and the batch
continues; the command exits non-zero if any request failed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		var in io.Reader = cmd.InOrStdin()
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open batch file: %w", err)
			}
			defer f.Close()
			in = f
		}
		requests, err := readRequests(in)
		if err != nil {
			return fmt.Errorf("read batch file: %w", err)
		}
		if len(requests) == 0 {
			return errors.New("batch file has no requests")
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		w := cmd.OutOrStdout()
		enc := json.NewEncoder(w)
		failed := 0
		for i, req := range requests {
			if err := cmd.Context().Err(); err != nil {
				return err
			}
			rep, runErr := a.orch.Run(cmd.Context(), req)
			res := batchResult(req, rep, runErr)
			if runErr != nil {
				failed++
			}
			if asJSON {
				if err := enc.Encode(res); err != nil {
					return err
				}
				continue
			}
			if runErr != nil {
				fmt.Fprintf(w, "[%d/%d] FAILED  %s\n        %v\n", i+1, len(requests), req, runErr)
				continue
			}
			fb := ""
			if len(res.Fallbacks) > 0 {
				fb = " (fallback: " + strings.Join(res.Fallbacks, ", ") + ")"
			}
			fmt.Fprintf(w, "[%d/%d] %-8s %s  run %s  candidate %s%s\n",
				i+1, len(requests), res.ValidationStatus, req, res.RunID, res.CandidateID, fb)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d request(s) failed", failed, len(requests))
		}
		return nil
	},
}

func init() {
	runCmd.Flags().Bool("example", false, "run the built-in example request (Raja, SOE-1, Bangalore)")
	runCmd.Flags().Bool("json", false, "print the full report as JSON")
	interactiveCmd.Flags().Bool("plain", false, "line-oriented prompt instead of the full-screen interface")
	batchCmd.Flags().Bool("json", false, "print one JSON result per line")
}
