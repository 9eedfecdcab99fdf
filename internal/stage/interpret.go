package stage

import (
	"context"
	"errors"
	"strings"

	"github.com/lucasnoah/hirefactory/internal/agent"
	"github.com/lucasnoah/hirefactory/internal/pipeline"
	"github.com/lucasnoah/hirefactory/internal/prompt"
)

// NextAgentCoordinator is the only downstream agent the interpreter names.
const NextAgentCoordinator = "COORDINATOR"

func parseInterpretedTask(payload string) (pipeline.InterpretedTask, error) {
	task, err := agent.DecodeJSON[pipeline.InterpretedTask](payload)
	if err != nil {
		return task, err
	}
	if strings.TrimSpace(task.Objective) == "" {
		return task, errors.New("reply has no objective")
	}
	if task.NextAgent == "" {
		task.NextAgent = NextAgentCoordinator
	}
	return task, nil
}

// InterpretFallback is the task used when the reply cannot be parsed.
func InterpretFallback(raw string) pipeline.InterpretedTask {
	return pipeline.InterpretedTask{
		Objective: raw,
		RequiredData: pipeline.RequiredData{
			CandidateInfo: pipeline.StringList{"name", "email", "location"},
			JobDetails:    pipeline.StringList{"title", "level", "location"},
			SalaryBands:   "unknown",
			Policies:      pipeline.StringList{"compensation", "hiring"},
		},
		Constraints:     pipeline.StringList{"Follow company policies"},
		SuccessCriteria: pipeline.StringList{"Valid output", "Compliant with policies"},
		NextAgent:       NextAgentCoordinator,
	}
}

// Interpret turns the raw request into a structured task.
func (e *Engine) Interpret(ctx context.Context, raw string) (*pipeline.InterpretedTask, Trace, error) {
	step, err := newStep(e, Interpret, parseInterpretedTask)
	if err != nil {
		return nil, Trace{}, err
	}
	out, err := step.Perform(ctx, e.gen, prompt.Vars{"request": raw}, func() pipeline.InterpretedTask {
		return InterpretFallback(raw)
	})
	if err != nil {
		return nil, Trace{}, err
	}
	trace := traceFrom(out)
	if trace.Fallback {
		e.logf("interpret: reply unusable (%s), using raw request as objective", out.Reason)
	}
	task := out.Value
	return &task, trace, nil
}
