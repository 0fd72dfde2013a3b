// Package plan defines the orchestration planner's contract: the
// system prompt that requests a structured plan and the strict parser
// for the response.
package plan

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SystemPrompt instructs the planning call to emit a structured plan.
const SystemPrompt = `You are an expert orchestrator. Given a user request, break it down into a list of JSON tasks (each with a unique id and a prompt) and an aggregate_prompt for synthesizing the results. Return a JSON object: {"tasks": [{"id": 1, "prompt": "..."}], "aggregate_prompt": "..."}. If no further tasks are needed, return an empty list for 'tasks'.`

// Step is one planned sub-task.
type Step struct {
	ID     int    `json:"id"`
	Prompt string `json:"prompt"`
}

// Plan is the parsed planner output. An empty Tasks list is the
// planner's signal that no further work is needed.
type Plan struct {
	Tasks           []Step
	AggregatePrompt string
	// Raw is the planner's complete response text. When the plan is
	// empty on the first round, this text is the final answer.
	Raw string
}

// ParseError reports a planner response that did not contain a usable
// plan. It is terminal for the round.
type ParseError struct {
	Response string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse plan: %v (response: %q)", e.Err, preview(e.Response))
}

func (e *ParseError) Unwrap() error { return e.Err }

// payload mirrors the planner's JSON contract.
type payload struct {
	Tasks           []Step `json:"tasks"`
	AggregatePrompt string `json:"aggregate_prompt"`
}

// Parse extracts the plan object from a planner response. The response
// may wrap the JSON in prose; only the outermost object is considered.
// Every planned task must carry a non-empty prompt.
func Parse(response string) (*Plan, error) {
	jsonStart := strings.Index(response, "{")
	jsonEnd := strings.LastIndex(response, "}")
	if jsonStart == -1 || jsonEnd <= jsonStart {
		return nil, &ParseError{Response: response, Err: fmt.Errorf("no JSON object in response")}
	}

	var p payload
	if err := json.Unmarshal([]byte(response[jsonStart:jsonEnd+1]), &p); err != nil {
		return nil, &ParseError{Response: response, Err: err}
	}

	for i, step := range p.Tasks {
		if strings.TrimSpace(step.Prompt) == "" {
			return nil, &ParseError{Response: response, Err: fmt.Errorf("task %d has no prompt", i+1)}
		}
	}

	return &Plan{Tasks: p.Tasks, AggregatePrompt: p.AggregatePrompt, Raw: response}, nil
}

func preview(s string) string {
	if len(s) > 200 {
		return s[:200] + "... (truncated)"
	}
	return s
}
