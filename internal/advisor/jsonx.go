package advisor

import (
	"encoding/json"
	"strings"
)

// ExtractJSON pulls the first parseable JSON object out of noisy model
// output. Strategies are tried in order: the whole string, the string
// with code fences stripped, and the outermost brace pair. The second
// return value is false when no strategy yields valid JSON.
func ExtractJSON(raw string) (json.RawMessage, bool) {
	if raw == "" {
		return nil, false
	}

	candidates := []string{strings.TrimSpace(raw)}

	if strings.Contains(raw, "```") {
		stripped := strings.ReplaceAll(raw, "```json", "")
		stripped = strings.ReplaceAll(stripped, "```", "")
		candidates = append(candidates, strings.TrimSpace(stripped))
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start != -1 && end > start {
		candidates = append(candidates, raw[start:end+1])
	}

	seen := make(map[string]struct{})
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if _, dup := seen[candidate]; dup {
			continue
		}
		seen[candidate] = struct{}{}

		var probe map[string]any
		if err := json.Unmarshal([]byte(candidate), &probe); err == nil {
			return json.RawMessage(candidate), true
		}
	}
	return nil, false
}
