package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/llmflow/llmflow/internal/config"
	"github.com/llmflow/llmflow/internal/llm"
	"github.com/llmflow/llmflow/internal/plan"
	"github.com/llmflow/llmflow/internal/workflow"
	"github.com/llmflow/llmflow/internal/worklog"
)

var (
	flagModel   string
	flagConfig  string
	flagLog     string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "llmflow",
	Short: "Composable LLM workflows from the command line",
	Long: `llmflow runs multi-step LLM workflows as unix-style commands: final
answers on stdout, progress and diagnostics on stderr, exit codes you
can script against.

Workflows:
  chain        Run prompts sequentially, feeding each result forward
  route        Classify input and dispatch it to a matching handler
  parallel     Fan a prompt out over input sections or repeated votes
  orchestrate  Let a planner decompose a request into worker tasks
  optimize     Generate, evaluate against a rubric, revise until good

Exit codes: 0 success, 10 plan parse failure, 20 execution failure,
30 refinement target not reached (answer still printed), 2 usage.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the workflow's code.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// usageError marks command-line validation failures, exit code 2.
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...interface{}) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// exitCode maps workflow errors onto the documented exit contract.
func exitCode(err error) int {
	var usageErr *usageError
	var parseErr *plan.ParseError
	var notMet *workflow.TargetNotMetError
	var execErr *workflow.ExecError
	switch {
	case errors.As(err, &usageErr):
		return 2
	case errors.As(err, &parseErr):
		return 10
	case errors.As(err, &notMet):
		return 30
	case errors.As(err, &execErr):
		return 20
	}
	return 1
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagModel, "model", "m", "", "Model to use for all LLM calls")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default: XDG config, then nearest .llmflow.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagLog, "log", "", "Append a JSONL execution log to this file")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Print progress to stderr")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{msg: err.Error()}
	})

	rootCmd.AddCommand(chainCmd)
	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(parallelCmd)
	rootCmd.AddCommand(orchestrateCmd)
	rootCmd.AddCommand(optimizeCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads configuration, honoring --config.
func loadConfig() (*config.Config, error) {
	if flagConfig != "" {
		return config.LoadFromPath(flagConfig)
	}
	return config.Load()
}

// newClient builds the generation client from config. Stream deltas
// go to stderr so stdout stays the answer-only stream.
func newClient(ctx context.Context, cfg *config.Config) (llm.Client, error) {
	return llm.NewAnthropicClient(ctx, llm.AnthropicConfig{
		APIKey:       cfg.Anthropic.APIKey,
		UseBedrock:   cfg.Anthropic.UseBedrock,
		AWSRegion:    cfg.Anthropic.AWSRegion,
		AWSProfile:   cfg.Anthropic.AWSProfile,
		MaxTokens:    cfg.Defaults.MaxOutputTokens,
		StreamWriter: os.Stderr,
	})
}

// openLog opens the JSONL execution log when --log is set.
func openLog() (*worklog.Logger, error) {
	return worklog.Open(flagLog)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nReceived interrupt, shutting down...")
		cancel()
	}()

	return ctx, cancel
}

// readStdin reads piped input. It refuses an interactive terminal so
// a forgotten argument fails fast instead of hanging.
func readStdin() (string, error) {
	if isatty.IsTerminal(os.Stdin.Fd()) {
		return "", usagef("no input: pass arguments or pipe text on stdin")
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
