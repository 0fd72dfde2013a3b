package plan

import (
	"errors"
	"testing"
)

func TestParseWellFormedPlan(t *testing.T) {
	response := `Here is the plan:
{"tasks": [{"id": 1, "prompt": "research"}, {"id": 2, "prompt": "summarize"}], "aggregate_prompt": "merge the findings"}
Let me know if you need changes.`

	p, err := Parse(response)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(p.Tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(p.Tasks))
	}
	if p.Tasks[0].ID != 1 || p.Tasks[0].Prompt != "research" {
		t.Errorf("task 0 = %+v, want id 1 prompt %q", p.Tasks[0], "research")
	}
	if p.AggregatePrompt != "merge the findings" {
		t.Errorf("aggregate prompt = %q, want %q", p.AggregatePrompt, "merge the findings")
	}
	if p.Raw != response {
		t.Error("raw response not preserved")
	}
}

func TestParseEmptyTaskListIsTerminalNotError(t *testing.T) {
	p, err := Parse(`{"tasks": [], "aggregate_prompt": ""}`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(p.Tasks) != 0 {
		t.Errorf("got %d tasks, want 0", len(p.Tasks))
	}
}

func TestParseFailures(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"no JSON at all", "I would break this into three research phases."},
		{"malformed JSON", `{"tasks": [{"id": 1, "prompt": }]}`},
		{"task without prompt", `{"tasks": [{"id": 1, "prompt": "ok"}, {"id": 2, "prompt": "  "}]}`},
		{"only a closing brace", "done }"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.response)
			if err == nil {
				t.Fatal("Parse succeeded, want error")
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Errorf("error type = %T, want *ParseError", err)
			}
		})
	}
}

func TestParseErrorTruncatesLongResponses(t *testing.T) {
	long := make([]byte, 1000)
	for i := range long {
		long[i] = 'x'
	}

	_, err := Parse(string(long))
	if err == nil {
		t.Fatal("Parse succeeded, want error")
	}
	if len(err.Error()) > 400 {
		t.Errorf("error message is %d chars, want a truncated preview", len(err.Error()))
	}
}
