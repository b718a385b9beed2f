// Package analyzer implements question classification and adaptive answer
// orchestration: routing a financial question, planning the minimum data
// fetch, generating an answer outline, and streaming a composed answer with
// paragraph-indexed source attribution.
package analyzer

import (
	"encoding/json"
	"strings"
)

// ExtractJSON recovers a single JSON object from free-form model output.
// Strategies are tried in order, first success wins:
//  1. parse the entire trimmed string
//  2. parse the content of the first fenced code block labeled json
//  3. parse the first balanced {...} span found by brace counting
//
// ok is false when all three fail, which is a normal outcome for bad or
// partial model output. Re-running on a successful result's serialized form
// returns the same object.
func ExtractJSON(text string) (json.RawMessage, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, false
	}

	if raw, ok := parseObject(trimmed); ok {
		return raw, true
	}
	if fenced, ok := fencedJSONBlock(trimmed); ok {
		if raw, ok := parseObject(fenced); ok {
			return raw, true
		}
	}
	if span, ok := balancedBraceSpan(trimmed); ok {
		if raw, ok := parseObject(span); ok {
			return raw, true
		}
	}
	return nil, false
}

// ExtractJSONInto recovers a JSON object from text and unmarshals it into v
func ExtractJSONInto(text string, v any) bool {
	raw, ok := ExtractJSON(text)
	if !ok {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

func parseObject(s string) (json.RawMessage, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") {
		return nil, false
	}
	if !json.Valid([]byte(s)) {
		return nil, false
	}
	return json.RawMessage(s), true
}

// fencedJSONBlock returns the content of the first ```json fenced block
func fencedJSONBlock(s string) (string, bool) {
	lower := strings.ToLower(s)
	start := strings.Index(lower, "```json")
	if start < 0 {
		return "", false
	}
	rest := s[start+len("```json"):]
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

// balancedBraceSpan returns the first balanced {...} span. Braces inside
// JSON string literals are ignored.
func balancedBraceSpan(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
