package engine

// EstimateTokens approximates the token count of text when the backend
// does not report usage: one token per four bytes, with a floor of one.
func EstimateTokens(text string) int {
	n := len(text) / 4
	if n < 1 {
		n = 1
	}
	return n
}

// TokenCount prefers the backend-reported count over the estimate.
func TokenCount(text string, reported int) int {
	if reported > 0 {
		return reported
	}
	return EstimateTokens(text)
}
