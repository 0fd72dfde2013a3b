package engine

import "fmt"

// Status classifies a task's terminal outcome.
type Status string

const (
	// StatusSuccess indicates the generation call returned text.
	StatusSuccess Status = "success"
	// StatusFailure indicates the generation call failed.
	StatusFailure Status = "failure"
	// StatusDropped indicates the result was discarded by policy.
	StatusDropped Status = "dropped"
)

// DropReason says why a dropped outcome was discarded.
type DropReason string

const (
	// DropTimeout marks a task whose call exceeded the per-task timeout.
	DropTimeout DropReason = "timeout"
	// DropTokenBudget marks a successful result over the token ceiling.
	DropTokenBudget DropReason = "token-budget"
)

// Task is one unit of work for the generation backend.
// Tasks are immutable once created.
type Task struct {
	// ID is unique within a round, assigned in creation order from 1.
	// It is used for result ordering and log correlation, never for
	// addressing.
	ID int
	// Prompt is the user-turn text.
	Prompt string
	// System is an optional system instruction.
	System string
	// Model optionally overrides the run's model.
	Model string
}

// NewTasks builds a task list from prompts, all sharing one system
// instruction and model.
func NewTasks(prompts []string, system, model string) []Task {
	tasks := make([]Task, len(prompts))
	for i, p := range prompts {
		tasks[i] = Task{ID: i + 1, Prompt: p, System: system, Model: model}
	}
	return tasks
}

// Outcome is the terminal result of one Task, produced exactly once.
type Outcome struct {
	// Status tags which of the remaining fields are meaningful.
	Status Status
	// Text is the generated text. Success only.
	Text string
	// TokenCount is the output size in tokens. Success only.
	TokenCount int
	// Err is the generation error. Failure only.
	Err error
	// Reason says why the result was discarded. Dropped only.
	Reason DropReason
}

// Success builds a successful outcome.
func Success(text string, tokenCount int) Outcome {
	return Outcome{Status: StatusSuccess, Text: text, TokenCount: tokenCount}
}

// Failure builds a failed outcome.
func Failure(err error) Outcome {
	return Outcome{Status: StatusFailure, Err: err}
}

// Dropped builds a dropped outcome.
func Dropped(reason DropReason) Outcome {
	return Outcome{Status: StatusDropped, Reason: reason}
}

// StatusLabel returns the keyword used in the execution log and the
// json provenance output: "ok", "error", or "dropped".
func (o Outcome) StatusLabel() string {
	switch o.Status {
	case StatusSuccess:
		return "ok"
	case StatusFailure:
		return "error"
	default:
		return "dropped"
	}
}

// detail returns a short description of the outcome for the log.
func (o Outcome) detail() string {
	switch o.Status {
	case StatusSuccess:
		return fmt.Sprintf("%d tokens", o.TokenCount)
	case StatusFailure:
		if o.Err != nil {
			return o.Err.Error()
		}
		return "failed"
	default:
		return string(o.Reason)
	}
}

// TaskResult pairs a task with its outcome.
type TaskResult struct {
	Task    Task
	Outcome Outcome
}

// RoundResult holds one batch's results, ordered by input task
// position rather than completion order.
type RoundResult []TaskResult

// Successes returns the successful results in task order.
func (r RoundResult) Successes() []TaskResult {
	var succ []TaskResult
	for _, tr := range r {
		if tr.Outcome.Status == StatusSuccess {
			succ = append(succ, tr)
		}
	}
	return succ
}

// SuccessTexts returns the successful texts in task order.
func (r RoundResult) SuccessTexts() []string {
	var texts []string
	for _, tr := range r {
		if tr.Outcome.Status == StatusSuccess {
			texts = append(texts, tr.Outcome.Text)
		}
	}
	return texts
}

// SuccessCount reports how many tasks succeeded.
func (r RoundResult) SuccessCount() int {
	return len(r.Successes())
}
