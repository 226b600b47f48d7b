package ai

import (
	"encoding/json"
	"strings"
)

// Model output is untrusted: it may wrap JSON in markdown fences or prose.
// These helpers pull the first parseable JSON value out of mixed text and
// fall back to a caller-supplied default instead of erroring.

// stripFences removes a surrounding markdown code fence if present.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[i+1:]
	} else {
		text = text[3:]
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// extractJSON finds the first balanced array or object in text and unmarshals
// it into v. Returns false when nothing parseable is found.
func extractJSON(text string, v any) bool {
	text = stripFences(text)

	for _, pair := range [][2]byte{{'[', ']'}, {'{', '}'}} {
		start := strings.IndexByte(text, pair[0])
		end := strings.LastIndexByte(text, pair[1])
		if start == -1 || end <= start {
			continue
		}
		if json.Unmarshal([]byte(text[start:end+1]), v) == nil {
			return true
		}
	}
	return json.Unmarshal([]byte(text), v) == nil
}

// ExtractList unmarshals a JSON array of objects from mixed model output,
// returning def when none can be found.
func ExtractList(text string, def []map[string]any) []map[string]any {
	var out []map[string]any
	if extractJSON(text, &out) && out != nil {
		return out
	}
	return def
}

// ExtractObject unmarshals a JSON object from mixed model output, returning
// def when none can be found.
func ExtractObject(text string, def map[string]any) map[string]any {
	var out map[string]any
	if extractJSON(text, &out) && out != nil {
		return out
	}
	return def
}
