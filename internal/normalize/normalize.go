// Package normalize turns a raw LLM text reply into a validated
// internal/response.Response, trying progressively looser extraction
// strategies before giving up, and coercing JSON nulls to zero values since
// models frequently emit `"field": null` for schema-required strings.
package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/diffsec/parsentry/internal/response"
)

// ParseError is returned when none of the extraction strategies could
// locate a well-formed JSON object in the model's reply.
type ParseError struct {
	Raw    string
	Detail string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse LLM response as JSON: %s", e.Detail)
}

var fencedJSONBlock = regexp.MustCompile("(?s)```(?:json)?\\s*\\n(.*?)\\n```")

// Parse extracts a response.Response from raw model output, trying:
//  1. the entire reply as JSON,
//  2. the first fenced ```json``` code block,
//  3. the substring between the first '{' and the last '}'.
//
// It returns *ParseError if none succeed.
func Parse(raw string) (*response.Response, error) {
	trimmed := strings.TrimSpace(raw)

	if resp, err := tryUnmarshal(trimmed); err == nil {
		return resp, nil
	}

	if m := fencedJSONBlock.FindStringSubmatch(raw); m != nil {
		if resp, err := tryUnmarshal(strings.TrimSpace(m[1])); err == nil {
			return resp, nil
		}
	}

	if start := strings.IndexByte(raw, '{'); start >= 0 {
		if end := strings.LastIndexByte(raw, '}'); end > start {
			candidate := raw[start : end+1]
			if resp, err := tryUnmarshal(candidate); err == nil {
				return resp, nil
			}
		}
	}

	return nil, &ParseError{Raw: raw, Detail: "no valid JSON object found in response"}
}

func tryUnmarshal(candidate string) (*response.Response, error) {
	if candidate == "" {
		return nil, fmt.Errorf("empty candidate")
	}
	coerced, err := coerceNulls([]byte(candidate))
	if err != nil {
		return nil, err
	}
	var resp response.Response
	dec := json.NewDecoder(bytes.NewReader(coerced))
	if err := dec.Decode(&resp); err != nil {
		return nil, err
	}
	resp.ConfidenceScore = response.NormalizeConfidenceScore(resp.ConfidenceScore)
	resp.Sanitize()
	return &resp, nil
}

// coerceNulls walks a decoded JSON value tree and replaces any null found
// where a string is expected with "" before re-encoding, since
// encoding/json refuses to unmarshal `null` into a non-pointer string
// field. Non-string fields (arrays, objects, numbers) are left untouched;
// a null in one of those positions is a genuine schema violation, not the
// "model emitted null for an empty string" pattern this exists to fix.
func coerceNulls(raw []byte) ([]byte, error) {
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	coerced := coerceNullStrings(generic)
	return json.Marshal(coerced)
}

// stringFields lists the Response JSON keys that are always strings, so a
// null there should become "" rather than be rejected outright.
var stringFields = map[string]bool{
	"scratchpad":          true,
	"analysis":             true,
	"poc":                  true,
	"identifier":           true,
	"source_context":       true,
	"security_function":    true,
	"operation_type":       true,
	"rule_id":              true,
	"rule_description":     true,
	"violation_path":       true,
	"severity":             true,
	"component":            true,
	"required_improvement": true,
	"specific_guidance":    true,
	"priority":             true,
}

func coerceNullStrings(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			if child == nil && stringFields[k] {
				out[k] = ""
				continue
			}
			out[k] = coerceNullStrings(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = coerceNullStrings(child)
		}
		return out
	default:
		return v
	}
}
