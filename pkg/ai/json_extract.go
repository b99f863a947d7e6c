package ai

import (
	"encoding/json"
	"strings"
)

// ExtractJSON returns the first JSON object or array found in model output.
// Models occasionally wrap structured output in Markdown fences or prose even
// in JSON mode; anything outside the outermost value is dropped.
func ExtractJSON(s string) string {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return raw
	}
	if json.Valid([]byte(raw)) {
		return raw
	}

	objStart := strings.Index(raw, "{")
	arrStart := strings.Index(raw, "[")
	start, end := -1, -1
	switch {
	case objStart >= 0 && (arrStart < 0 || objStart < arrStart):
		start = objStart
		end = strings.LastIndex(raw, "}")
	case arrStart >= 0:
		start = arrStart
		end = strings.LastIndex(raw, "]")
	}
	if start >= 0 && end > start {
		candidate := raw[start : end+1]
		if json.Valid([]byte(candidate)) {
			return candidate
		}
	}
	return raw
}
