package workflow

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/llmflow/llmflow/internal/engine"
	"github.com/llmflow/llmflow/internal/llm"
	"github.com/llmflow/llmflow/internal/worklog"
)

// ParallelConfig configures the fan-out workflow. Voting mode is
// selected by Votes >= 2; otherwise Sections drive the round. The CLI
// guarantees the two modes are mutually exclusive.
type ParallelConfig struct {
	Client llm.Client
	// Prompt is the instruction applied to every section or vote.
	Prompt string
	System string
	Model  string

	MaxWorkers     int
	TaskTimeout    time.Duration
	MaxInputTokens int

	// Sections holds the pre-split input for sectioning mode. Each
	// task's prompt is Prompt, a blank line, then the section.
	Sections []string
	// Aggregate reduces sectioned results. Defaults to concat.
	Aggregate engine.Policy

	// Votes runs the bare prompt this many times.
	Votes int
	// VoteMode reduces votes. Defaults to majority.
	VoteMode engine.Policy
	// Dedupe collapses identical answers before voting.
	Dedupe bool

	Log     *worklog.Logger
	Verbose bool
	Stderr  io.Writer
}

// Parallel runs one bounded worker-pool round and aggregates it.
func Parallel(ctx context.Context, cfg ParallelConfig) (string, error) {
	var prompts []string
	var policy engine.Policy

	if cfg.Votes >= 2 {
		prompts = make([]string, cfg.Votes)
		for i := range prompts {
			prompts[i] = cfg.Prompt
		}
		policy = cfg.VoteMode
		if policy == "" {
			policy = engine.PolicyMajority
		}
	} else {
		if len(cfg.Sections) == 0 {
			return "", &ExecError{Step: "section", Err: fmt.Errorf("no sections found in input")}
		}
		prompts = make([]string, len(cfg.Sections))
		for i, section := range cfg.Sections {
			prompts[i] = cfg.Prompt + "\n\n" + section
		}
		policy = cfg.Aggregate
		if policy == "" {
			policy = engine.PolicyConcat
		}
	}

	tasks := engine.NewTasks(prompts, cfg.System, cfg.Model)
	cfg.Log.Log(worklog.Record{Step: worklog.StepDispatch, Status: worklog.StatusOK, Detail: fmt.Sprintf("%d tasks", len(tasks))})
	statusLine(cfg.Stderr, cfg.Verbose, "parallel", "dispatching %d tasks", len(tasks))

	pool := engine.NewPool(engine.PoolConfig{
		Client:         cfg.Client,
		MaxWorkers:     cfg.MaxWorkers,
		TaskTimeout:    cfg.TaskTimeout,
		MaxInputTokens: cfg.MaxInputTokens,
		Log:            cfg.Log,
		Verbose:        cfg.Verbose,
		Stderr:         cfg.Stderr,
	})
	round := pool.Run(ctx, tasks)

	out, err := engine.Aggregate(round, policy, cfg.Dedupe)
	if err != nil {
		cfg.Log.Log(worklog.Record{Step: worklog.StepAggregate, Status: worklog.StatusError, Detail: err.Error()})
		return "", &ExecError{Step: "aggregate", Err: err}
	}
	cfg.Log.Log(worklog.Record{Step: worklog.StepAggregate, Status: worklog.StatusOK, Detail: string(policy)})

	return out, nil
}
