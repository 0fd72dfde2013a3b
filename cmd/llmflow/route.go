package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/llmflow/llmflow/internal/llm"
	"github.com/llmflow/llmflow/internal/routes"
	"github.com/llmflow/llmflow/internal/workflow"
)

var (
	routeFile             string
	routeClassifierSystem string
	routeClassifierPrompt string
	routePrintLabel       bool
	routeListLabels       bool
	routeNoStream         bool
)

var routeCmd = &cobra.Command{
	Use:   "route [input]...",
	Short: "Classify input and dispatch it to a matching handler",
	Long: `Classify input against the labels of a routes file, then answer it
with the matching route's handler. Input comes from the arguments or
from stdin.

The routes file is a YAML (or JSON) mapping of label to route:

  billing:
    system: You are a billing specialist.
    template: "Answer this billing question: {input}"
  support:
    model: claude-haiku-4-5-20251001

Each route may set a handler system prompt, a model override, and a
prompt template with an {input} placeholder. The classifier must answer
with exactly one label; anything else is an execution error.`,
	RunE: runRoute,
}

func init() {
	routeCmd.Flags().StringVar(&routeFile, "routes", "", "Routes file mapping labels to handlers (required)")
	routeCmd.Flags().StringVar(&routeClassifierSystem, "classifier-system", "", "Custom system prompt for the classifier")
	routeCmd.Flags().StringVar(&routeClassifierPrompt, "classifier-prompt", "", "Custom classifier prompt template ({labels}, {input})")
	routeCmd.Flags().BoolVar(&routePrintLabel, "print-label", false, "Prefix the answer with the chosen label")
	routeCmd.Flags().BoolVar(&routeListLabels, "list-labels", false, "Print the labels of the routes file and exit")
	routeCmd.Flags().BoolVar(&routeNoStream, "no-stream", false, "Disable streaming output")
}

func runRoute(cmd *cobra.Command, args []string) error {
	if routeFile == "" {
		return usagef("--routes is required")
	}
	table, err := routes.Load(routeFile)
	if err != nil {
		return err
	}

	if routeListLabels {
		for _, label := range table.Labels() {
			fmt.Println(label)
		}
		return nil
	}

	input := strings.Join(args, " ")
	if input == "" {
		if input, err = readStdin(); err != nil {
			return err
		}
	}
	if input == "" {
		return usagef("no input: pass arguments or pipe text on stdin")
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

	label, answer, err := workflow.Route(ctx, workflow.RouteConfig{
		Client:           client,
		Input:            input,
		Table:            table,
		ClassifierSystem: routeClassifierSystem,
		ClassifierPrompt: routeClassifierPrompt,
		Model:            llm.ResolveModel(flagModel, cfg.Defaults.Model),
		Stream:           !routeNoStream,
		Log:              log,
		Verbose:          flagVerbose,
		Stderr:           os.Stderr,
	})
	if err != nil {
		return err
	}

	if routePrintLabel {
		fmt.Printf("[%s] %s\n", label, answer)
		return nil
	}
	fmt.Println(answer)
	return nil
}
