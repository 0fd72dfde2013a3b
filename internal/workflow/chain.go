package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/llmflow/llmflow/internal/engine"
	"github.com/llmflow/llmflow/internal/llm"
	"github.com/llmflow/llmflow/internal/worklog"
)

// ChainConfig configures the sequential chain.
type ChainConfig struct {
	Client llm.Client
	// Prompts run in order; at least two are required. Each step after
	// the first receives the previous result appended to its prompt.
	Prompts []string
	// GateJSON requires every step's output to parse as JSON.
	GateJSON bool
	Model    string
	Stream   bool
	Log      *worklog.Logger
	Verbose  bool
	// Stderr receives intermediate step results. Defaults to os.Stderr.
	Stderr io.Writer
}

// Chain runs the prompts sequentially and returns the last step's
// result. Intermediate results print to Stderr between step markers so
// stdout stays clean for the final answer.
func Chain(ctx context.Context, cfg ChainConfig) (string, error) {
	if len(cfg.Prompts) < 2 {
		return "", fmt.Errorf("at least 2 prompts are required, got %d", len(cfg.Prompts))
	}
	stderr := cfg.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	result := ""
	for i, prompt := range cfg.Prompts {
		step := i + 1
		p := prompt
		if result != "" {
			p = prompt + "\n\n" + result
		}

		statusLine(stderr, cfg.Verbose, "chain", "step %d/%d", step, len(cfg.Prompts))
		resp, err := cfg.Client.Generate(ctx, llm.Request{Prompt: p, Model: cfg.Model, Stream: cfg.Stream})
		if err != nil {
			cfg.Log.Log(worklog.Record{Step: worklog.StepChain, TaskID: worklog.TaskID(step), Status: worklog.StatusError, Detail: err.Error()})
			return "", &ExecError{Step: fmt.Sprintf("chain step %d", step), Err: err}
		}
		result = resp.Text

		if cfg.GateJSON && !json.Valid([]byte(result)) {
			cfg.Log.Log(worklog.Record{Step: worklog.StepChain, TaskID: worklog.TaskID(step), Status: worklog.StatusError, Detail: "gate rejected output: not valid JSON"})
			return "", &ExecError{Step: fmt.Sprintf("chain step %d", step), Err: fmt.Errorf("gate rejected output: not valid JSON")}
		}

		cfg.Log.Log(worklog.Record{
			Step:   worklog.StepChain,
			TaskID: worklog.TaskID(step),
			Status: worklog.StatusOK,
			Detail: fmt.Sprintf("%d tokens", engine.TokenCount(result, resp.OutputTokens)),
		})

		if step < len(cfg.Prompts) {
			fmt.Fprintf(stderr, "\n--- Step %d Result ---\n%s\n--- End Step %d Result ---\n\n", step, result, step)
		}
	}

	return result, nil
}
