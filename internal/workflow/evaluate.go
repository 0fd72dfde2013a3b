package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/llmflow/llmflow/internal/llm"
	"github.com/llmflow/llmflow/internal/worklog"
)

// DefaultRubric is used when the caller provides no rubric.
const DefaultRubric = "Evaluate the quality, clarity, and completeness of the output."

const evaluatorSystemPrompt = `You are an evaluator. Given the following output and rubric, return a JSON object: {"score": float, "feedback": str}. Score must be between 0 and 1.`

const unparseableFeedback = "<unparseable evaluator output>"

type evaluation struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

// parseEvaluation extracts the evaluator's JSON object from its
// response. Models wrap JSON in prose, so it slices from the first
// opening brace to the last closing brace before unmarshalling.
// Scores outside [0, 1] are clamped. An unparseable response yields
// score zero with placeholder feedback so the loop can keep revising.
func parseEvaluation(response string) (evaluation, bool) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end < start {
		return evaluation{Feedback: unparseableFeedback}, false
	}

	var ev evaluation
	if err := json.Unmarshal([]byte(response[start:end+1]), &ev); err != nil {
		return evaluation{Feedback: unparseableFeedback}, false
	}

	if ev.Score < 0 {
		ev.Score = 0
	}
	if ev.Score > 1 {
		ev.Score = 1
	}
	return ev, true
}

// evaluate scores answer against rubric. The evaluator call never
// streams; its output is structural, not an answer. A generation
// failure is returned to the caller, but an unparseable response is
// degraded to a zero score so one bad evaluation does not abort the
// refinement loop.
func evaluate(ctx context.Context, cfg OptimizeConfig, answer, rubric string, iteration int) (evaluation, error) {
	prompt := fmt.Sprintf("Output to evaluate:\n%s\n\nRubric:\n%s", answer, rubric)

	resp, err := cfg.Client.Generate(ctx, llm.Request{
		Prompt: prompt,
		System: evaluatorSystemPrompt,
		Model:  cfg.Model,
	})
	if err != nil {
		cfg.Log.Log(worklog.Record{Step: worklog.StepEvaluate, Iteration: worklog.Iteration(iteration), Status: worklog.StatusError, Detail: err.Error()})
		return evaluation{}, err
	}

	ev, ok := parseEvaluation(resp.Text)
	if !ok {
		cfg.Log.Log(worklog.Record{Step: worklog.StepEvaluate, Iteration: worklog.Iteration(iteration), Status: worklog.StatusError, Score: worklog.Score(0), Detail: unparseableFeedback})
		return ev, nil
	}

	cfg.Log.Log(worklog.Record{Step: worklog.StepEvaluate, Iteration: worklog.Iteration(iteration), Status: worklog.StatusOK, Score: worklog.Score(ev.Score), Detail: ev.Feedback})
	return ev, nil
}
