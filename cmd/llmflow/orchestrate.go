package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/llmflow/llmflow/internal/llm"
	"github.com/llmflow/llmflow/internal/workflow"
)

var (
	orchestrateIterations    int
	orchestrateMaxWorkers    int
	orchestrateTimeout       time.Duration
	orchestrateMaxInputToken int
	orchestrateNoStream      bool
)

var orchestrateCmd = &cobra.Command{
	Use:   "orchestrate [request]...",
	Short: "Let a planner decompose a request into worker tasks",
	Long: `Hand a request to a planning call that breaks it into worker tasks,
run the tasks concurrently, and synthesize the worker results into one
answer. With --iterations above 1, the synthesis is fed back to the
planner for another round; the planner ends the run early by returning
an empty task list.

If the very first plan is empty, the planner's own response is the
answer. A round where every worker fails is an execution error.`,
	RunE: runOrchestrate,
}

func init() {
	orchestrateCmd.Flags().IntVar(&orchestrateIterations, "iterations", 1, "Maximum plan/dispatch/synthesize rounds")
	orchestrateCmd.Flags().IntVar(&orchestrateMaxWorkers, "max-workers", 0, "Concurrent task cap (default: derived from CPU count)")
	orchestrateCmd.Flags().DurationVar(&orchestrateTimeout, "timeout", 0, "Per-task timeout; tasks over it are dropped")
	orchestrateCmd.Flags().IntVar(&orchestrateMaxInputToken, "max-input-tokens", 0, "Drop worker results over this token count")
	orchestrateCmd.Flags().BoolVar(&orchestrateNoStream, "no-stream", false, "Disable streaming output")
}

func runOrchestrate(cmd *cobra.Command, args []string) error {
	request := strings.Join(args, " ")
	if request == "" {
		var err error
		if request, err = readStdin(); err != nil {
			return err
		}
	}
	if request == "" {
		return usagef("no request: pass arguments or pipe text on stdin")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := openLog()
	if err != nil {
		return err
	}
	defer log.Close()

	ctx, cancel := signalContext()
	defer cancel()

	client, err := newClient(ctx, cfg)
	if err != nil {
		return err
	}

	maxWorkers := orchestrateMaxWorkers
	if maxWorkers == 0 {
		maxWorkers = cfg.Defaults.MaxWorkers
	}

	answer, err := workflow.Orchestrate(ctx, workflow.OrchestrateConfig{
		Client:         client,
		Request:        request,
		Iterations:     orchestrateIterations,
		MaxWorkers:     maxWorkers,
		TaskTimeout:    orchestrateTimeout,
		MaxInputTokens: orchestrateMaxInputToken,
		Model:          llm.ResolveModel(flagModel, cfg.Defaults.Model),
		Stream:         !orchestrateNoStream,
		Log:            log,
		Verbose:        flagVerbose,
		Stderr:         os.Stderr,
	})
	if err != nil {
		return err
	}

	fmt.Println(answer)
	return nil
}
