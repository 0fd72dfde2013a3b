package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/llmflow/llmflow/internal/engine"
	"github.com/llmflow/llmflow/internal/llm"
	"github.com/llmflow/llmflow/internal/section"
	"github.com/llmflow/llmflow/internal/workflow"
)

var (
	parallelInput         string
	parallelSystem        string
	parallelSection       int
	parallelSectionRegex  string
	parallelAggregate     string
	parallelVote          int
	parallelVoteMode      string
	parallelDedupe        bool
	parallelMaxWorkers    int
	parallelTimeout       time.Duration
	parallelMaxInputToken int
)

var parallelCmd = &cobra.Command{
	Use:   "parallel <prompt>",
	Short: "Fan a prompt out over input sections or repeated votes",
	Long: `Run one prompt many times concurrently and reduce the results to a
single output.

Sectioning mode splits the input (from --input or stdin) into chunks
and applies the prompt to each:

  llmflow parallel "Summarize this section." --input report.txt --section 4000
  llmflow parallel "List the action items." --input notes.md --section-regex '(?m)^## '

Voting mode runs the bare prompt N times and picks a winner:

  llmflow parallel "Is this function thread-safe? Answer yes or no." --vote 5

Task failures and timeouts never abort the round; the survivors are
aggregated (--aggregate for sections, --vote-mode for votes). The json
aggregate emits one entry per task with its status, so a round with no
successes still produces output.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return usagef("parallel needs exactly one prompt argument")
		}
		return nil
	},
	RunE: runParallel,
}

func init() {
	parallelCmd.Flags().StringVar(&parallelInput, "input", "", "Input file to section (default: stdin)")
	parallelCmd.Flags().StringVar(&parallelSystem, "system", "", "System prompt for every task")
	parallelCmd.Flags().IntVar(&parallelSection, "section", 0, "Split input into chunks of this many characters")
	parallelCmd.Flags().StringVar(&parallelSectionRegex, "section-regex", "", "Split input at matches of this regular expression")
	parallelCmd.Flags().StringVar(&parallelAggregate, "aggregate", "concat", "Section aggregation: concat or json")
	parallelCmd.Flags().IntVar(&parallelVote, "vote", 0, "Run the prompt this many times and vote on the answer")
	parallelCmd.Flags().StringVar(&parallelVoteMode, "vote-mode", "majority", "Vote aggregation: majority or max-tokens")
	parallelCmd.Flags().BoolVar(&parallelDedupe, "dedupe", false, "Collapse identical answers before voting")
	parallelCmd.Flags().IntVar(&parallelMaxWorkers, "max-workers", 0, "Concurrent task cap (default: derived from CPU count)")
	parallelCmd.Flags().DurationVar(&parallelTimeout, "timeout", 0, "Per-task timeout; tasks over it are dropped")
	parallelCmd.Flags().IntVar(&parallelMaxInputToken, "max-input-tokens", 0, "Drop results over this token count")
}

func runParallel(cmd *cobra.Command, args []string) error {
	prompt := args[0]

	modeCount := 0
	if parallelSection > 0 {
		modeCount++
	}
	if parallelSectionRegex != "" {
		modeCount++
	}
	if parallelVote > 0 {
		modeCount++
	}
	if modeCount == 0 {
		return usagef("one of --section, --section-regex, or --vote is required")
	}
	if modeCount > 1 {
		return usagef("--section, --section-regex, and --vote are mutually exclusive")
	}
	if parallelVote == 1 {
		return usagef("--vote needs at least 2 votes")
	}

	aggregate, err := engine.ParsePolicy(parallelAggregate)
	if err != nil || (aggregate != engine.PolicyConcat && aggregate != engine.PolicyJSON) {
		return usagef("--aggregate must be concat or json, got %q", parallelAggregate)
	}
	voteMode, err := engine.ParsePolicy(parallelVoteMode)
	if err != nil || (voteMode != engine.PolicyMajority && voteMode != engine.PolicyMaxTokens) {
		return usagef("--vote-mode must be majority or max-tokens, got %q", parallelVoteMode)
	}

	var sections []string
	if parallelVote == 0 {
		input, err := readParallelInput()
		if err != nil {
			return err
		}
		if parallelSection > 0 {
			sections, err = section.BySize(input, parallelSection)
		} else {
			sections, err = section.ByRegex(input, parallelSectionRegex)
		}
		if err != nil {
			return usagef("%v", err)
		}
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

	maxWorkers := parallelMaxWorkers
	if maxWorkers == 0 {
		maxWorkers = cfg.Defaults.MaxWorkers
	}

	out, err := workflow.Parallel(ctx, workflow.ParallelConfig{
		Client:         client,
		Prompt:         prompt,
		System:         parallelSystem,
		Model:          llm.ResolveModel(flagModel, cfg.Defaults.Model),
		MaxWorkers:     maxWorkers,
		TaskTimeout:    parallelTimeout,
		MaxInputTokens: parallelMaxInputToken,
		Sections:       sections,
		Aggregate:      aggregate,
		Votes:          parallelVote,
		VoteMode:       voteMode,
		Dedupe:         parallelDedupe,
		Log:            log,
		Verbose:        flagVerbose,
		Stderr:         os.Stderr,
	})
	if err != nil {
		return err
	}

	fmt.Println(out)
	return nil
}

// readParallelInput reads the sectioning input from --input or piped
// stdin. Empty input is allowed here; it surfaces as "no sections
// found" from the workflow.
func readParallelInput() (string, error) {
	if parallelInput != "" {
		data, err := os.ReadFile(parallelInput)
		if err != nil {
			return "", fmt.Errorf("read input file: %w", err)
		}
		return string(data), nil
	}
	if isatty.IsTerminal(os.Stdin.Fd()) {
		return "", nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}
