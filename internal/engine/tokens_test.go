package engine

import (
	"strings"
	"testing"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty floors at one", "", 1},
		{"short floors at one", "abc", 1},
		{"four bytes per token", strings.Repeat("a", 400), 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateTokens(tt.text); got != tt.want {
				t.Errorf("EstimateTokens(%d bytes) = %d, want %d", len(tt.text), got, tt.want)
			}
		})
	}
}

func TestTokenCountPrefersReported(t *testing.T) {
	if got := TokenCount("xxxx", 7); got != 7 {
		t.Errorf("TokenCount with usage = %d, want 7", got)
	}
	if got := TokenCount(strings.Repeat("a", 40), 0); got != 10 {
		t.Errorf("TokenCount without usage = %d, want estimate 10", got)
	}
}
