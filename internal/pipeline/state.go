package pipeline

import "fmt"

// Phase is the position of a run in the fixed stage sequence.
type Phase string

const (
	PhaseInitial      Phase = "initial"
	PhaseInterpreting Phase = "interpreting"
	PhaseCoordinating Phase = "coordinating"
	PhaseResearching  Phase = "researching"
	PhaseExecuting    Phase = "executing"
	PhaseReviewing    Phase = "reviewing"
	PhaseDone         Phase = "done"
	PhaseFailed       Phase = "failed"
)

// nextPhase is the only forward transition allowed from each phase.
var nextPhase = map[Phase]Phase{
	PhaseInitial:      PhaseInterpreting,
	PhaseInterpreting: PhaseCoordinating,
	PhaseCoordinating: PhaseResearching,
	PhaseResearching:  PhaseExecuting,
	PhaseExecuting:    PhaseReviewing,
	PhaseReviewing:    PhaseDone,
}

// Terminal reports whether no further transition is possible.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// State is the in-memory record threaded through one run. Each stage fills
// its own field; no stage revises an earlier one.
type State struct {
	RawRequest         string              `json:"raw_request"`
	InterpretedTask    *InterpretedTask    `json:"interpreted_task"`
	CoordinatedContext *CoordinatedContext `json:"coordinated_context"`
	ResearchResult     *ResearchResult     `json:"research_result"`
	ExecutionResult    *ExecutionResult    `json:"execution_result"`
	ReviewResult       *ReviewResult       `json:"review_result"`
	AuditLog           []string            `json:"audit_log"`
	FinalOutput        *FinalOutput        `json:"final_output"`
	Phase              Phase               `json:"phase"`
}

// NewState returns an empty state for raw.
func NewState(raw string) *State {
	return &State{RawRequest: raw, AuditLog: []string{}, Phase: PhaseInitial}
}

// Advance moves the state to next. Only the linear chain and a move to
// failed from a non-terminal phase are accepted.
func (s *State) Advance(next Phase) error {
	if s.Phase.Terminal() {
		return fmt.Errorf("run already %s, cannot move to %s", s.Phase, next)
	}
	if next == PhaseFailed {
		s.Phase = next
		return nil
	}
	if nextPhase[s.Phase] != next {
		return fmt.Errorf("invalid transition %s -> %s", s.Phase, next)
	}
	s.Phase = next
	return nil
}

// Record appends one line to the audit log.
func (s *State) Record(line string) {
	s.AuditLog = append(s.AuditLog, line)
}

// Finish assembles the final output. It requires every stage record and
// may only be called once.
func (s *State) Finish() (*FinalOutput, error) {
	if s.FinalOutput != nil {
		return nil, fmt.Errorf("final output already set")
	}
	if s.ExecutionResult == nil || s.ResearchResult == nil || s.ReviewResult == nil {
		return nil, fmt.Errorf("final output requires research, execution and review results")
	}
	s.FinalOutput = &FinalOutput{
		Candidate: *s.ExecutionResult,
		Research:  *s.ResearchResult,
		Review:    *s.ReviewResult,
	}
	return s.FinalOutput, nil
}
