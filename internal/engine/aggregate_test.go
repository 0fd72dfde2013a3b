package engine

import (
	"encoding/json"
	"errors"
	"testing"
)

// successRound builds a round of all-successful outcomes; token count
// equals text length for easy max-tokens scripting.
func successRound(texts ...string) RoundResult {
	round := make(RoundResult, len(texts))
	for i, text := range texts {
		round[i] = TaskResult{Task: Task{ID: i + 1}, Outcome: Success(text, len(text))}
	}
	return round
}

func TestParsePolicy(t *testing.T) {
	for _, valid := range []string{"concat", "json", "majority", "max-tokens"} {
		if _, err := ParsePolicy(valid); err != nil {
			t.Errorf("ParsePolicy(%q): %v", valid, err)
		}
	}
	if _, err := ParsePolicy("vote"); err == nil {
		t.Error("ParsePolicy(\"vote\") succeeded, want error")
	}
}

func TestConcatSkipsNonSuccesses(t *testing.T) {
	round := RoundResult{
		{Task: Task{ID: 1}, Outcome: Success("A", 1)},
		{Task: Task{ID: 2}, Outcome: Failure(errors.New("boom"))},
		{Task: Task{ID: 3}, Outcome: Success("B", 1)},
	}

	got, err := Aggregate(round, PolicyConcat, false)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if want := "A\n\nB"; got != want {
		t.Errorf("concat = %q, want %q", got, want)
	}
}

func TestMajorityVote(t *testing.T) {
	tests := []struct {
		name  string
		texts []string
		want  string
	}{
		{"clear majority", []string{"x", "y", "x", "x"}, "x"},
		{"tie goes to earliest", []string{"x", "y"}, "x"},
		{"groups by trimmed text, returns first occurrence", []string{" x ", "y", "x"}, " x "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Aggregate(successRound(tt.texts...), PolicyMajority, false)
			if err != nil {
				t.Fatalf("Aggregate: %v", err)
			}
			if got != tt.want {
				t.Errorf("majority(%q) = %q, want %q", tt.texts, got, tt.want)
			}
		})
	}
}

func TestMaxTokensEarliestTieWins(t *testing.T) {
	round := RoundResult{
		{Task: Task{ID: 1}, Outcome: Success("T1", 5)},
		{Task: Task{ID: 2}, Outcome: Success("T2", 9)},
		{Task: Task{ID: 3}, Outcome: Success("T3", 9)},
	}

	got, err := Aggregate(round, PolicyMaxTokens, false)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if got != "T2" {
		t.Errorf("max-tokens = %q, want %q (earliest among ties)", got, "T2")
	}
}

func TestDedupeChangesMajority(t *testing.T) {
	round := successRound("x", "y", "y")

	raw, err := Aggregate(round, PolicyMajority, false)
	if err != nil {
		t.Fatalf("raw vote: %v", err)
	}
	if raw != "y" {
		t.Fatalf("raw majority = %q, want %q", raw, "y")
	}

	collapsed, err := Aggregate(round, PolicyMajority, true)
	if err != nil {
		t.Fatalf("deduped vote: %v", err)
	}
	// After collapsing the duplicate "y", the counts tie and the
	// earliest entry wins.
	if collapsed != "x" {
		t.Errorf("deduped majority = %q, want %q", collapsed, "x")
	}
	if collapsed == raw {
		t.Error("dedupe did not change the vote result")
	}
}

func TestDedupeNoOpForConcatAndJSON(t *testing.T) {
	round := successRound("a", "a")

	got, err := Aggregate(round, PolicyConcat, true)
	if err != nil {
		t.Fatalf("concat: %v", err)
	}
	if want := "a\n\na"; got != want {
		t.Errorf("concat with dedupe = %q, want %q", got, want)
	}

	doc, err := Aggregate(round, PolicyJSON, true)
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	var entries []provenanceEntry
	if err := json.Unmarshal([]byte(doc), &entries); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("json with dedupe has %d entries, want 2", len(entries))
	}
}

func TestJSONPreservesProvenance(t *testing.T) {
	round := RoundResult{
		{Task: Task{ID: 1}, Outcome: Success("A", 3)},
		{Task: Task{ID: 2}, Outcome: Failure(errors.New("boom"))},
		{Task: Task{ID: 3}, Outcome: Dropped(DropTokenBudget)},
	}

	doc, err := Aggregate(round, PolicyJSON, false)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	var entries []provenanceEntry
	if err := json.Unmarshal([]byte(doc), &entries); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}

	wantStatus := []string{"ok", "error", "dropped"}
	for i, e := range entries {
		if e.Index != i {
			t.Errorf("entry %d index = %d, want %d", i, e.Index, i)
		}
		if e.Status != wantStatus[i] {
			t.Errorf("entry %d status = %q, want %q", i, e.Status, wantStatus[i])
		}
	}
	if entries[0].Text == nil || *entries[0].Text != "A" {
		t.Errorf("entry 0 text = %v, want %q", entries[0].Text, "A")
	}
	for _, i := range []int{1, 2} {
		if entries[i].Text != nil {
			t.Errorf("entry %d text = %q, want null", i, *entries[i].Text)
		}
	}
}

func TestEmptyRoundAggregation(t *testing.T) {
	for _, policy := range []Policy{PolicyConcat, PolicyMajority, PolicyMaxTokens} {
		_, err := Aggregate(RoundResult{}, policy, false)
		if !errors.Is(err, ErrNoSuccess) {
			t.Errorf("%s on empty round: err = %v, want ErrNoSuccess", policy, err)
		}
	}

	got, err := Aggregate(RoundResult{}, PolicyJSON, false)
	if err != nil {
		t.Fatalf("json on empty round: %v", err)
	}
	if got != "[]" {
		t.Errorf("json on empty round = %q, want %q", got, "[]")
	}
}
