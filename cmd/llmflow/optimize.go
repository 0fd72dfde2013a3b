package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/llmflow/llmflow/internal/llm"
	"github.com/llmflow/llmflow/internal/workflow"
)

var (
	optimizeRubric   string
	optimizeTarget   float64
	optimizeMaxIters int
	optimizeNoStream bool
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize [prompt]...",
	Short: "Generate, evaluate against a rubric, revise until good",
	Long: `Generate output for a prompt, score it against a rubric with an
evaluator call, and revise it until the score reaches --target or
--max-iters evaluations have run.

The rubric is free text, or @FILE to read one from a file:

  llmflow optimize "Write a launch announcement" --rubric @tone.md --target 0.85

When the iteration budget runs out below the target, the best draft is
still printed and the command exits with status 30, so scripts can tell
"good" from "best effort".`,
	RunE: runOptimize,
}

func init() {
	optimizeCmd.Flags().StringVar(&optimizeRubric, "rubric", "", "Evaluation rubric, or @FILE to read it from a file")
	optimizeCmd.Flags().Float64Var(&optimizeTarget, "target", 0.9, "Score (0-1) at which refinement stops")
	optimizeCmd.Flags().IntVar(&optimizeMaxIters, "max-iters", 5, "Maximum evaluate/revise iterations")
	optimizeCmd.Flags().BoolVar(&optimizeNoStream, "no-stream", false, "Disable streaming output")
}

func runOptimize(cmd *cobra.Command, args []string) error {
	prompt := strings.Join(args, " ")
	if prompt == "" {
		var err error
		if prompt, err = readStdin(); err != nil {
			return err
		}
	}
	if prompt == "" {
		return usagef("no prompt: pass arguments or pipe text on stdin")
	}
	if optimizeTarget < 0 || optimizeTarget > 1 {
		return usagef("--target must be between 0 and 1, got %g", optimizeTarget)
	}

	rubric := optimizeRubric
	if strings.HasPrefix(rubric, "@") {
		data, err := os.ReadFile(strings.TrimPrefix(rubric, "@"))
		if err != nil {
			return fmt.Errorf("read rubric file: %w", err)
		}
		rubric = string(data)
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

	result, err := workflow.Optimize(ctx, workflow.OptimizeConfig{
		Client:   client,
		Prompt:   prompt,
		Rubric:   rubric,
		Target:   optimizeTarget,
		MaxIters: optimizeMaxIters,
		Model:    llm.ResolveModel(flagModel, cfg.Defaults.Model),
		Stream:   !optimizeNoStream,
		Log:      log,
		Verbose:  flagVerbose,
		Stderr:   os.Stderr,
	})

	// The answer prints even when the target was missed; the exit
	// code carries the verdict.
	if result.Answer != "" {
		fmt.Println(result.Answer)
	}
	return err
}
