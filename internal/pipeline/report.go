package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// StageSummary describes how one stage produced its record.
type StageSummary struct {
	Stage    string        `json:"stage"`
	Fallback bool          `json:"fallback"`
	Reason   string        `json:"reason,omitempty"`
	Dropped  int           `json:"dropped,omitempty"`
	Notes    []string      `json:"notes,omitempty"`
	Duration time.Duration `json:"duration_ns"`
	Prompt   string        `json:"-"`
	Reply    string        `json:"-"`
}

// Report is what a completed run hands back to front ends.
type Report struct {
	RunID      string         `json:"run_id"`
	Request    string         `json:"request"`
	Output     *FinalOutput   `json:"final_output"`
	AuditLog   []string       `json:"audit_log"`
	Stages     []StageSummary `json:"stages"`
	StartedAt  string         `json:"started_at"`
	FinishedAt string         `json:"finished_at"`
}

// Fallbacks returns the names of stages that substituted fallback data.
func (r *Report) Fallbacks() []string {
	var out []string
	for _, s := range r.Stages {
		if s.Fallback {
			out = append(out, s.Stage)
		}
	}
	return out
}

// Duration is the wall time between start and finish, zero when either is unparseable.
func (r *Report) Duration() time.Duration {
	start, err := time.Parse(time.RFC3339Nano, r.StartedAt)
	if err != nil {
		return 0
	}
	end, err := time.Parse(time.RFC3339Nano, r.FinishedAt)
	if err != nil {
		return 0
	}
	return end.Sub(start)
}

// WriteText prints the execution log followed by the final output as
// indented JSON.
func (r *Report) WriteText(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s\n\n", r.RunID)
	b.WriteString("EXECUTION LOG\n")
	for i, line := range r.AuditLog {
		fmt.Fprintf(&b, "%d. %s\n", i+1, line)
	}
	if fb := r.Fallbacks(); len(fb) > 0 {
		fmt.Fprintf(&b, "\nFallback data used by: %s\n", strings.Join(fb, ", "))
	}
	b.WriteString("\nFINAL OUTPUT\n")
	out, err := json.MarshalIndent(r.Output, "", "  ")
	if err != nil {
		return fmt.Errorf("encode final output: %w", err)
	}
	b.Write(out)
	b.WriteString("\n")
	_, err = io.WriteString(w, b.String())
	return err
}
