package agent

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	// fencedJSONPattern matches a JSON object inside a markdown code
	// fence, with or without the json language tag.
	fencedJSONPattern = regexp.MustCompile("```(?:json)?\\s*(\\{[\\s\\S]*?\\})\\s*```")

	// rawJSONPattern matches the outermost object containing a "text"
	// key anywhere in the response.
	rawJSONPattern = regexp.MustCompile(`\{[\s\S]*"text"[\s\S]*\}`)
)

// ParseResult parses the model's final answer into a Result. The model
// is instructed to return the output schema but is not guaranteed to
// obey it, so this is a parsing boundary with fallbacks: direct JSON,
// then a fenced JSON block, then a raw JSON object, then the whole
// response as plain text. It never fails.
func ParseResult(response string) *Result {
	if strings.TrimSpace(response) == "" {
		return (&Result{Text: "No response generated."}).normalize()
	}

	if r, ok := decodeResult(response); ok {
		return r
	}

	if m := fencedJSONPattern.FindStringSubmatch(response); m != nil {
		if r, ok := decodeResult(m[1]); ok {
			return r
		}
	}

	if m := rawJSONPattern.FindString(response); m != "" {
		if r, ok := decodeResult(m); ok {
			return r
		}
	}

	return (&Result{Text: response}).normalize()
}

// decodeResult decodes s as a JSON object with the answer schema.
// Non-object JSON values are rejected. Fields that fail to decode are
// dropped rather than failing the whole answer.
func decodeResult(s string) (*Result, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &fields); err != nil {
		return nil, false
	}

	r := &Result{}
	if raw, ok := fields["text"]; ok {
		_ = json.Unmarshal(raw, &r.Text)
	}
	if raw, ok := fields["tables"]; ok {
		_ = json.Unmarshal(raw, &r.Tables)
	}
	if raw, ok := fields["chart_data"]; ok {
		_ = json.Unmarshal(raw, &r.ChartData)
	}
	return r.normalize(), true
}
