package tagger

import "strings"

// ParseResponse extracts tags from a model response. Tags may be separated by
// commas or newlines; list markers and a leading "tags:" label are stripped.
// Results are lowercased and deduplicated, order preserved.
func ParseResponse(raw string) []string {
	raw = strings.ReplaceAll(raw, "\n", ",")

	seen := make(map[string]bool)
	tags := make([]string, 0)

	for _, part := range strings.Split(raw, ",") {
		tag := strings.TrimSpace(part)
		tag = strings.TrimPrefix(tag, "- ")
		tag = strings.TrimPrefix(tag, "* ")

		lower := strings.ToLower(tag)
		lower = strings.TrimSpace(strings.TrimPrefix(lower, "tags:"))

		// Skip conversational preamble the smaller models sometimes emit.
		if lower == "" || strings.HasPrefix(lower, "here") || strings.HasPrefix(lower, "i see") {
			continue
		}

		if !seen[lower] {
			seen[lower] = true
			tags = append(tags, lower)
		}
	}

	return tags
}
