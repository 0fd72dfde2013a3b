package workflow

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/llmflow/llmflow/internal/engine"
	"github.com/llmflow/llmflow/internal/llm"
	"github.com/llmflow/llmflow/internal/worklog"
)

func TestParallelSectionsComposePrompts(t *testing.T) {
	client := &fakeClient{fn: func(req llm.Request) (llm.Response, error) {
		section := strings.TrimPrefix(req.Prompt, "Summarize this section.\n\n")
		return llm.Response{Text: "sum:" + section}, nil
	}}

	got, err := Parallel(context.Background(), ParallelConfig{
		Client:   client,
		Prompt:   "Summarize this section.",
		Sections: []string{"alpha", "beta", "gamma"},
		Stderr:   &bytes.Buffer{},
	})
	if err != nil {
		t.Fatalf("Parallel failed: %v", err)
	}

	want := "sum:alpha\n\nsum:beta\n\nsum:gamma"
	if got != want {
		t.Errorf("answer = %q, want %q: concat must follow input order", got, want)
	}
}

func TestParallelVoteMajority(t *testing.T) {
	var calls int64
	client := &fakeClient{fn: func(req llm.Request) (llm.Response, error) {
		if req.Prompt != "pick a number" {
			return llm.Response{}, fmt.Errorf("vote prompt = %q, want the bare prompt", req.Prompt)
		}
		if atomic.AddInt64(&calls, 1) == 2 {
			return llm.Response{Text: "seven"}, nil
		}
		return llm.Response{Text: "four"}, nil
	}}

	got, err := Parallel(context.Background(), ParallelConfig{
		Client: client,
		Prompt: "pick a number",
		Votes:  3,
		Stderr: &bytes.Buffer{},
	})
	if err != nil {
		t.Fatalf("Parallel failed: %v", err)
	}
	if got != "four" {
		t.Errorf("answer = %q, want majority %q", got, "four")
	}
	if calls != 3 {
		t.Errorf("made %d calls, want 3", calls)
	}
}

func TestParallelVoteModeMaxTokens(t *testing.T) {
	var calls int64
	client := &fakeClient{fn: func(req llm.Request) (llm.Response, error) {
		if atomic.AddInt64(&calls, 1) == 1 {
			return llm.Response{Text: "short", OutputTokens: 5}, nil
		}
		return llm.Response{Text: "much longer answer", OutputTokens: 50}, nil
	}}

	got, err := Parallel(context.Background(), ParallelConfig{
		Client:   client,
		Prompt:   "explain",
		Votes:    2,
		VoteMode: engine.PolicyMaxTokens,
		Stderr:   &bytes.Buffer{},
	})
	if err != nil {
		t.Fatalf("Parallel failed: %v", err)
	}
	if got != "much longer answer" {
		t.Errorf("answer = %q, want the larger result", got)
	}
}

func TestParallelEmptySections(t *testing.T) {
	_, err := Parallel(context.Background(), ParallelConfig{
		Client: &fakeClient{},
		Prompt: "summarize",
		Stderr: &bytes.Buffer{},
	})
	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecError, got %v", err)
	}
	if execErr.Step != "section" {
		t.Errorf("Step = %q, want %q", execErr.Step, "section")
	}
	if !strings.Contains(err.Error(), "no sections found") {
		t.Errorf("error = %q, should say no sections were found", err)
	}
}

func TestParallelAllFailuresConcat(t *testing.T) {
	client := &fakeClient{fn: func(req llm.Request) (llm.Response, error) {
		return llm.Response{}, fmt.Errorf("backend down")
	}}

	_, err := Parallel(context.Background(), ParallelConfig{
		Client:   client,
		Prompt:   "summarize",
		Sections: []string{"a", "b"},
		Stderr:   &bytes.Buffer{},
	})
	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecError, got %v", err)
	}
	if execErr.Step != "aggregate" {
		t.Errorf("Step = %q, want %q", execErr.Step, "aggregate")
	}
	if !errors.Is(err, engine.ErrNoSuccess) {
		t.Errorf("error should wrap the no-success sentinel, got %v", err)
	}
}

func TestParallelAllFailuresJSONStillAnswers(t *testing.T) {
	client := &fakeClient{fn: func(req llm.Request) (llm.Response, error) {
		return llm.Response{}, fmt.Errorf("backend down")
	}}

	got, err := Parallel(context.Background(), ParallelConfig{
		Client:    client,
		Prompt:    "summarize",
		Sections:  []string{"a", "b"},
		Aggregate: engine.PolicyJSON,
		Stderr:    &bytes.Buffer{},
	})
	if err != nil {
		t.Fatalf("json aggregation must report failures, not error: %v", err)
	}

	var entries []struct {
		Index  int     `json:"index"`
		Text   *string `json:"text"`
		Status string  `json:"status"`
	}
	if err := json.Unmarshal([]byte(got), &entries); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, got)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	for i, e := range entries {
		if e.Status != "error" {
			t.Errorf("entry %d status = %q, want %q", i, e.Status, "error")
		}
		if e.Text != nil {
			t.Errorf("entry %d text = %q, want null", i, *e.Text)
		}
	}
}

func TestParallelLogsDispatchAndAggregate(t *testing.T) {
	var logBuf bytes.Buffer
	client := &fakeClient{fn: func(req llm.Request) (llm.Response, error) {
		return llm.Response{Text: "ok"}, nil
	}}

	_, err := Parallel(context.Background(), ParallelConfig{
		Client:   client,
		Prompt:   "summarize",
		Sections: []string{"a", "b"},
		Log:      worklog.New(&logBuf),
		Stderr:   &bytes.Buffer{},
	})
	if err != nil {
		t.Fatalf("Parallel failed: %v", err)
	}

	steps := make(map[string]int)
	scanner := bufio.NewScanner(&logBuf)
	for scanner.Scan() {
		var rec worklog.Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("bad log line: %v\n%s", err, scanner.Text())
		}
		steps[rec.Step]++
	}
	if steps[worklog.StepDispatch] != 1 {
		t.Errorf("dispatch records = %d, want 1", steps[worklog.StepDispatch])
	}
	if steps[worklog.StepWorker] != 2 {
		t.Errorf("worker records = %d, want 2", steps[worklog.StepWorker])
	}
	if steps[worklog.StepAggregate] != 1 {
		t.Errorf("aggregate records = %d, want 1", steps[worklog.StepAggregate])
	}
}
