package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Policy selects how a round's outcomes reduce to one output.
type Policy string

const (
	// PolicyConcat joins success texts with blank lines.
	PolicyConcat Policy = "concat"
	// PolicyJSON emits a provenance array covering every task.
	PolicyJSON Policy = "json"
	// PolicyMajority picks the most common success text.
	PolicyMajority Policy = "majority"
	// PolicyMaxTokens picks the largest success by token count.
	PolicyMaxTokens Policy = "max-tokens"
)

// ParsePolicy validates a policy name from the CLI.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicyConcat, PolicyJSON, PolicyMajority, PolicyMaxTokens:
		return p, nil
	default:
		return "", fmt.Errorf("unknown aggregation policy %q", s)
	}
}

// ErrNoSuccess is returned when a policy that needs successful
// outcomes finds none.
var ErrNoSuccess = errors.New("no successful outcomes to aggregate")

// Aggregate reduces a round to one output under the policy.
//
// With dedupe set, success texts that are identical after trimming
// surrounding whitespace collapse to their first occurrence before
// majority or max-tokens voting; dedupe has no effect on concat or
// json. Ties in both voting policies go to the earliest occurrence,
// so output is deterministic for a fixed round.
func Aggregate(round RoundResult, policy Policy, dedupe bool) (string, error) {
	switch policy {
	case PolicyConcat:
		return aggregateConcat(round)
	case PolicyJSON:
		return aggregateJSON(round)
	case PolicyMajority:
		return aggregateMajority(survivors(round, dedupe))
	case PolicyMaxTokens:
		return aggregateMaxTokens(survivors(round, dedupe))
	default:
		return "", fmt.Errorf("unknown aggregation policy %q", policy)
	}
}

// survivors returns the successful results, collapsing trim-identical
// texts to their first occurrence when dedupe is set.
func survivors(round RoundResult, dedupe bool) []TaskResult {
	succ := round.Successes()
	if !dedupe {
		return succ
	}
	seen := make(map[string]bool, len(succ))
	kept := make([]TaskResult, 0, len(succ))
	for _, tr := range succ {
		key := strings.TrimSpace(tr.Outcome.Text)
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, tr)
	}
	return kept
}

func aggregateConcat(round RoundResult) (string, error) {
	texts := round.SuccessTexts()
	if len(texts) == 0 {
		return "", ErrNoSuccess
	}
	return strings.Join(texts, "\n\n"), nil
}

// provenanceEntry is one element of the json policy's output array.
type provenanceEntry struct {
	Index  int     `json:"index"`
	Text   *string `json:"text"`
	Status string  `json:"status"`
}

// aggregateJSON preserves full provenance: one entry per task in task
// order, text null for failures and drops. An empty round yields [].
func aggregateJSON(round RoundResult) (string, error) {
	entries := make([]provenanceEntry, 0, len(round))
	for i, tr := range round {
		e := provenanceEntry{Index: i, Status: tr.Outcome.StatusLabel()}
		if tr.Outcome.Status == StatusSuccess {
			text := tr.Outcome.Text
			e.Text = &text
		}
		entries = append(entries, e)
	}

	out, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal provenance: %w", err)
	}
	return string(out), nil
}

func aggregateMajority(succ []TaskResult) (string, error) {
	if len(succ) == 0 {
		return "", ErrNoSuccess
	}

	type group struct {
		count int
		first int
		text  string
	}
	groups := make(map[string]*group)
	for i, tr := range succ {
		key := strings.TrimSpace(tr.Outcome.Text)
		g, ok := groups[key]
		if !ok {
			g = &group{first: i, text: tr.Outcome.Text}
			groups[key] = g
		}
		g.count++
	}

	var best *group
	for _, g := range groups {
		if best == nil || g.count > best.count || (g.count == best.count && g.first < best.first) {
			best = g
		}
	}
	return best.text, nil
}

func aggregateMaxTokens(succ []TaskResult) (string, error) {
	if len(succ) == 0 {
		return "", ErrNoSuccess
	}

	best := succ[0]
	for _, tr := range succ[1:] {
		if tr.Outcome.TokenCount > best.Outcome.TokenCount {
			best = tr
		}
	}
	return best.Outcome.Text, nil
}
