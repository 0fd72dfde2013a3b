// Package section splits input text into chunks for the parallel
// workflow's sectioning mode.
package section

import (
	"fmt"
	"regexp"
)

// BySize splits text into chunks of size runes; the final chunk keeps
// the remainder.
func BySize(text string, size int) ([]string, error) {
	if size < 1 {
		return nil, fmt.Errorf("section size must be positive, got %d", size)
	}

	runes := []rune(text)
	var chunks []string
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks, nil
}

// ByRegex splits text at every match of pattern. Each match starts a
// new chunk and stays attached to the content that follows it, so a
// heading pattern keeps headings with their sections. Text before the
// first match becomes its own chunk; with no matches the whole text is
// one chunk.
func ByRegex(text, pattern string) ([]string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile section pattern: %w", err)
	}

	locs := re.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		if text == "" {
			return nil, nil
		}
		return []string{text}, nil
	}

	var chunks []string
	if locs[0][0] > 0 {
		chunks = append(chunks, text[:locs[0][0]])
	}
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		chunks = append(chunks, text[loc[0]:end])
	}
	return chunks, nil
}
