package workflow

import (
	"context"
	"fmt"
	"io"

	"github.com/llmflow/llmflow/internal/engine"
	"github.com/llmflow/llmflow/internal/llm"
	"github.com/llmflow/llmflow/internal/worklog"
)

const reviseTemplate = "Revise the following output based on this feedback.\n\nOutput:\n%s\n\nFeedback:\n%s\n\nReturn the improved output only."

// OptimizeConfig configures the generate/evaluate/revise loop.
type OptimizeConfig struct {
	Client llm.Client
	// Prompt is the task given to the generator.
	Prompt string
	// Rubric describes what the evaluator should score. Empty means
	// DefaultRubric.
	Rubric string
	// Target is the score at which refinement stops. Reaching it
	// exactly counts as met.
	Target float64
	// MaxIters caps evaluate/revise cycles. Zero skips evaluation
	// entirely and returns the first draft.
	MaxIters int

	Model  string
	Stream bool

	Log     *worklog.Logger
	Verbose bool
	Stderr  io.Writer
}

// Result is the outcome of one refinement run. Answer is always the
// latest draft, even when the target was never reached.
type Result struct {
	Answer      string
	Score       float64
	Evaluations int
	TargetMet   bool
}

// Optimize generates a draft, then alternates evaluation and revision
// until the score reaches cfg.Target or cfg.MaxIters evaluations have
// run. Exhausting the budget returns the last draft alongside a
// TargetNotMetError so callers can still print the answer.
func Optimize(ctx context.Context, cfg OptimizeConfig) (Result, error) {
	rubric := cfg.Rubric
	if rubric == "" {
		rubric = DefaultRubric
	}

	resp, err := cfg.Client.Generate(ctx, llm.Request{
		Prompt: cfg.Prompt,
		Model:  cfg.Model,
		Stream: cfg.Stream,
	})
	if err != nil {
		cfg.Log.Log(worklog.Record{Step: worklog.StepGenerate, Status: worklog.StatusError, Detail: err.Error()})
		return Result{}, &ExecError{Step: "generate", Err: err}
	}
	answer := resp.Text
	cfg.Log.Log(worklog.Record{Step: worklog.StepGenerate, Status: worklog.StatusOK, Detail: fmt.Sprintf("%d tokens", engine.TokenCount(answer, resp.OutputTokens))})

	result := Result{Answer: answer}

	for iteration := 1; iteration <= cfg.MaxIters; iteration++ {
		ev, err := evaluate(ctx, cfg, answer, rubric, iteration)
		if err != nil {
			return Result{}, &ExecError{Step: "evaluate", Err: err}
		}
		result.Score = ev.Score
		result.Evaluations = iteration
		statusLine(cfg.Stderr, cfg.Verbose, "evaluate", "iteration %d: score %.2f", iteration, ev.Score)

		if ev.Score >= cfg.Target {
			result.TargetMet = true
			result.Answer = answer
			return result, nil
		}
		if iteration == cfg.MaxIters {
			break
		}

		revised, err := cfg.Client.Generate(ctx, llm.Request{
			Prompt: fmt.Sprintf(reviseTemplate, answer, ev.Feedback),
			Model:  cfg.Model,
			Stream: cfg.Stream,
		})
		if err != nil {
			cfg.Log.Log(worklog.Record{Step: worklog.StepRevise, Iteration: worklog.Iteration(iteration), Status: worklog.StatusError, Detail: err.Error()})
			return Result{}, &ExecError{Step: "revise", Err: err}
		}
		answer = revised.Text
		result.Answer = answer
		cfg.Log.Log(worklog.Record{Step: worklog.StepRevise, Iteration: worklog.Iteration(iteration), Status: worklog.StatusOK})
	}

	if cfg.MaxIters < 1 {
		return result, nil
	}
	return result, &TargetNotMetError{Score: result.Score, Target: cfg.Target, Iterations: cfg.MaxIters}
}
