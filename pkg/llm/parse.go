package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Result represents a parsed model response.
type Result struct {
	Entries []string
	Summary string
	Raw     string
}

// truncatedSummary replaces the summary when only the entries array could
// be salvaged from a cut-off response.
const truncatedSummary = "Response was truncated due to token limit. Please verify the generated entries."

// CleanJSON strips Markdown code fences the model sometimes wraps around
// its JSON despite instructions.
func CleanJSON(content string) string {
	cleaned := strings.TrimSpace(content)
	if strings.HasPrefix(cleaned, "```") {
		if idx := strings.Index(cleaned, "\n"); idx != -1 {
			cleaned = cleaned[idx+1:]
		} else {
			cleaned = strings.TrimPrefix(cleaned, "```json")
			cleaned = strings.TrimPrefix(cleaned, "```")
		}
	}
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	return strings.TrimSpace(cleaned)
}

// parseResult decodes the model's JSON response into a Result. A response
// truncated mid-object is repaired when the entries array survived intact.
func parseResult(raw string) (*Result, error) {
	content := CleanJSON(raw)
	if content == "" {
		return nil, fmt.Errorf("model response is empty")
	}

	var parsed struct {
		Entries []string `json:"entries"`
		Summary *string  `json:"summary"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		repaired, ok := repairTruncated(content)
		if !ok {
			preview := content
			if len(preview) > 200 {
				preview = preview[:200]
			}
			return nil, fmt.Errorf("model response is not valid JSON: %w | preview=%q", err, preview)
		}
		return &Result{Entries: repaired, Summary: truncatedSummary, Raw: raw}, nil
	}

	if parsed.Entries == nil {
		return nil, fmt.Errorf("model response missing entries field")
	}

	summary := ""
	if parsed.Summary != nil {
		summary = *parsed.Summary
	}
	return &Result{Entries: parsed.Entries, Summary: summary, Raw: raw}, nil
}

// repairTruncated extracts the entries array from a JSON object that was
// cut off by the output token limit.
func repairTruncated(content string) ([]string, bool) {
	if !strings.HasPrefix(content, `{"`) || strings.HasSuffix(content, "}") {
		return nil, false
	}

	idx := strings.Index(content, `"entries"`)
	if idx == -1 {
		return nil, false
	}

	start := strings.Index(content[idx:], "[")
	if start == -1 {
		return nil, false
	}
	start += idx

	depth := 0
	end := -1
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		c := content[i]
		if inString {
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				end = i + 1
			}
		}
		if end != -1 {
			break
		}
	}
	if end == -1 {
		return nil, false
	}

	var entries []string
	if err := json.Unmarshal([]byte(content[start:end]), &entries); err != nil {
		return nil, false
	}
	return entries, true
}
