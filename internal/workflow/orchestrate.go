package workflow

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/llmflow/llmflow/internal/engine"
	"github.com/llmflow/llmflow/internal/llm"
	"github.com/llmflow/llmflow/internal/plan"
	"github.com/llmflow/llmflow/internal/worklog"
)

const synthesisSystemPrompt = "Synthesize the following worker results."

// OrchestrateConfig configures the planner/worker/synthesizer loop.
type OrchestrateConfig struct {
	Client llm.Client
	// Request is the user's task, handed to the planner verbatim on
	// the first iteration.
	Request string
	// Iterations caps the plan/dispatch/synthesize cycles. Values
	// below 1 run a single iteration.
	Iterations int

	MaxWorkers     int
	TaskTimeout    time.Duration
	MaxInputTokens int

	Model  string
	Stream bool

	Log     *worklog.Logger
	Verbose bool
	Stderr  io.Writer
}

// Orchestrate runs up to cfg.Iterations rounds of plan, dispatch, and
// synthesize. An empty plan before any work has run means the planner
// answered directly; its raw text is the answer. An empty plan after
// at least one round means the planner is satisfied with the last
// synthesis.
func Orchestrate(ctx context.Context, cfg OrchestrateConfig) (string, error) {
	iterations := cfg.Iterations
	if iterations < 1 {
		iterations = 1
	}

	pool := engine.NewPool(engine.PoolConfig{
		Client:         cfg.Client,
		MaxWorkers:     cfg.MaxWorkers,
		TaskTimeout:    cfg.TaskTimeout,
		MaxInputTokens: cfg.MaxInputTokens,
		Log:            cfg.Log,
		Verbose:        cfg.Verbose,
		Stderr:         cfg.Stderr,
	})

	request := cfg.Request
	lastSynthesis := ""
	dispatched := false

	for iteration := 1; iteration <= iterations; iteration++ {
		statusLine(cfg.Stderr, cfg.Verbose, "plan", "iteration %d/%d", iteration, iterations)

		resp, err := cfg.Client.Generate(ctx, llm.Request{
			Prompt: request,
			System: plan.SystemPrompt,
			Model:  cfg.Model,
			Stream: cfg.Stream,
		})
		if err != nil {
			cfg.Log.Log(worklog.Record{Step: worklog.StepPlan, Iteration: worklog.Iteration(iteration), Status: worklog.StatusError, Detail: err.Error()})
			return "", &ExecError{Step: "plan", Err: err}
		}

		p, err := plan.Parse(resp.Text)
		if err != nil {
			cfg.Log.Log(worklog.Record{Step: worklog.StepPlan, Iteration: worklog.Iteration(iteration), Status: worklog.StatusError, Detail: err.Error()})
			return "", err
		}
		cfg.Log.Log(worklog.Record{Step: worklog.StepPlan, Iteration: worklog.Iteration(iteration), Status: worklog.StatusOK, Detail: fmt.Sprintf("%d tasks", len(p.Tasks))})

		if len(p.Tasks) == 0 {
			if !dispatched {
				return p.Raw, nil
			}
			return lastSynthesis, nil
		}

		prompts := make([]string, len(p.Tasks))
		for i, step := range p.Tasks {
			prompts[i] = step.Prompt
		}
		tasks := engine.NewTasks(prompts, "", cfg.Model)
		cfg.Log.Log(worklog.Record{Step: worklog.StepDispatch, Iteration: worklog.Iteration(iteration), Status: worklog.StatusOK, Detail: fmt.Sprintf("%d tasks", len(tasks))})
		statusLine(cfg.Stderr, cfg.Verbose, "dispatch", "%d tasks", len(tasks))

		round := pool.Run(ctx, tasks)
		dispatched = true

		texts := round.SuccessTexts()
		if len(texts) == 0 {
			cfg.Log.Log(worklog.Record{Step: worklog.StepSynthesize, Iteration: worklog.Iteration(iteration), Status: worklog.StatusError, Detail: engine.ErrNoSuccess.Error()})
			return "", &ExecError{Step: "dispatch", Err: engine.ErrNoSuccess}
		}

		var parts []string
		if p.AggregatePrompt != "" {
			parts = append(parts, p.AggregatePrompt)
		}
		parts = append(parts, texts...)

		synth, err := cfg.Client.Generate(ctx, llm.Request{
			Prompt: strings.Join(parts, "\n\n"),
			System: synthesisSystemPrompt,
			Model:  cfg.Model,
			Stream: cfg.Stream,
		})
		if err != nil {
			cfg.Log.Log(worklog.Record{Step: worklog.StepSynthesize, Iteration: worklog.Iteration(iteration), Status: worklog.StatusError, Detail: err.Error()})
			return "", &ExecError{Step: "synthesize", Err: err}
		}
		lastSynthesis = synth.Text
		cfg.Log.Log(worklog.Record{Step: worklog.StepSynthesize, Iteration: worklog.Iteration(iteration), Status: worklog.StatusOK, Detail: fmt.Sprintf("%d tokens", engine.TokenCount(synth.Text, synth.OutputTokens))})

		request = cfg.Request + "\n\nPrevious synthesis:\n" + lastSynthesis
	}

	return lastSynthesis, nil
}
