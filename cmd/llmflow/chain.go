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
	chainPromptsFile string
	chainGateJSON    bool
	chainNoStream    bool
)

var chainCmd = &cobra.Command{
	Use:   "chain [prompt]...",
	Short: "Run prompts sequentially, feeding each result forward",
	Long: `Run two or more prompts as a sequential chain. Each step after the
first receives the previous step's result appended to its prompt, so a
task can be decomposed into deterministic stages:

  llmflow chain "Draft an outline for a post about Go contexts" \
                "Expand the outline into a full post" \
                "Tighten the prose and fix any errors"

Intermediate results print to stderr between step markers; only the
final step's result goes to stdout. With --gate-json, every step's
output must parse as JSON or the chain stops with an execution error.`,
	RunE: runChain,
}

func init() {
	chainCmd.Flags().StringVar(&chainPromptsFile, "prompts-file", "", "Read prompts from a file, one per line")
	chainCmd.Flags().BoolVar(&chainGateJSON, "gate-json", false, "Require every step's output to be valid JSON")
	chainCmd.Flags().BoolVar(&chainNoStream, "no-stream", false, "Disable streaming output")
}

// readPromptsFile loads one prompt per line, skipping blank lines.
func readPromptsFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts file: %w", err)
	}

	var prompts []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			prompts = append(prompts, line)
		}
	}
	return prompts, nil
}

func runChain(cmd *cobra.Command, args []string) error {
	prompts := args
	if chainPromptsFile != "" {
		if len(args) > 0 {
			return usagef("pass prompts as arguments or via --prompts-file, not both")
		}
		var err error
		if prompts, err = readPromptsFile(chainPromptsFile); err != nil {
			return err
		}
	}
	if len(prompts) < 2 {
		return usagef("at least 2 prompts are required, got %d", len(prompts))
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

	answer, err := workflow.Chain(ctx, workflow.ChainConfig{
		Client:   client,
		Prompts:  prompts,
		GateJSON: chainGateJSON,
		Model:    llm.ResolveModel(flagModel, cfg.Defaults.Model),
		Stream:   !chainNoStream,
		Log:      log,
		Verbose:  flagVerbose,
		Stderr:   os.Stderr,
	})
	if err != nil {
		return err
	}

	fmt.Println(answer)
	return nil
}
