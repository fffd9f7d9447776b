package gateway

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ExtractJSONObject parses provider reply text into a JSON object. When
// direct parsing fails it salvages the substring between the first '{' and
// the last '}' (models often wrap JSON in prose), and as a last resort runs
// the salvaged substring through jsonrepair to fix trailing commas, bare
// keys, and similar LLM damage.
//
// The brace heuristic is deliberately narrow and has a known failure mode:
// unbalanced braces inside prose can over- or under-match. Callers treat a
// false return as a parse failure, never as an empty reply.
func ExtractJSONObject(text string) (map[string]any, bool) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(text), &fields); err == nil {
		return fields, true
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	candidate := text[start : end+1]

	if err := json.Unmarshal([]byte(candidate), &fields); err == nil {
		return fields, true
	}

	repaired, err := jsonrepair.JSONRepair(candidate)
	if err != nil {
		return nil, false
	}
	if err := json.Unmarshal([]byte(repaired), &fields); err != nil {
		return nil, false
	}
	return fields, true
}
