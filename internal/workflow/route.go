package workflow

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/llmflow/llmflow/internal/llm"
	"github.com/llmflow/llmflow/internal/routes"
	"github.com/llmflow/llmflow/internal/worklog"
)

// classifierSystemPrompt pins the classifier to the label set.
const classifierSystemPrompt = "You are a classifier. Respond with exactly one of the provided labels, nothing else."

// defaultClassifierTemplate builds the classification prompt.
// Custom templates may use the same {labels} and {input} placeholders.
const defaultClassifierTemplate = "Classify the following input into one of these categories: {labels}\n\nInput: {input}"

// RouteConfig configures the classification router.
type RouteConfig struct {
	Client llm.Client
	Input  string
	Table  *routes.Table
	// ClassifierSystem overrides the classifier system instruction.
	ClassifierSystem string
	// ClassifierPrompt overrides the classification prompt template.
	ClassifierPrompt string
	Model            string
	Stream           bool
	Log              *worklog.Logger
	Verbose          bool
	Stderr           io.Writer
}

// Route classifies the input against the table's labels and dispatches
// it to the chosen route's handler. The classifier's trimmed response
// must exactly match a label.
func Route(ctx context.Context, cfg RouteConfig) (label, answer string, err error) {
	labels := cfg.Table.Labels()

	tmpl := cfg.ClassifierPrompt
	if tmpl == "" {
		tmpl = defaultClassifierTemplate
	}
	classifierPrompt := strings.NewReplacer(
		"{labels}", strings.Join(labels, ", "),
		"{input}", cfg.Input,
	).Replace(tmpl)

	system := cfg.ClassifierSystem
	if system == "" {
		system = classifierSystemPrompt
	}

	resp, err := cfg.Client.Generate(ctx, llm.Request{
		Prompt: classifierPrompt,
		System: system,
		Model:  cfg.Model,
		Stream: cfg.Stream,
	})
	if err != nil {
		cfg.Log.Log(worklog.Record{Step: worklog.StepClassify, Status: worklog.StatusError, Detail: err.Error()})
		return "", "", &ExecError{Step: "classify", Err: err}
	}

	label = strings.TrimSpace(resp.Text)
	rt, ok := cfg.Table.Get(label)
	if !ok {
		cfg.Log.Log(worklog.Record{Step: worklog.StepClassify, Status: worklog.StatusError, Detail: fmt.Sprintf("unknown label %q", label)})
		return "", "", &ExecError{Step: "classify", Err: fmt.Errorf("classifier returned unknown label %q (want one of: %s)", label, strings.Join(labels, ", "))}
	}
	cfg.Log.Log(worklog.Record{Step: worklog.StepClassify, Status: worklog.StatusOK, Detail: label})
	statusLine(cfg.Stderr, cfg.Verbose, "route", "classified as %q", label)

	model := cfg.Model
	if rt.Model != "" {
		model = rt.Model
	}

	handled, err := cfg.Client.Generate(ctx, llm.Request{
		Prompt: rt.RenderPrompt(cfg.Input),
		System: rt.System,
		Model:  model,
		Stream: cfg.Stream,
	})
	if err != nil {
		cfg.Log.Log(worklog.Record{Step: worklog.StepHandle, Status: worklog.StatusError, Detail: err.Error()})
		return label, "", &ExecError{Step: "handle", Err: err}
	}
	cfg.Log.Log(worklog.Record{Step: worklog.StepHandle, Status: worklog.StatusOK, Detail: label})

	return label, handled.Text, nil
}
