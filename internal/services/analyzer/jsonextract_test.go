package analyzer

import (
	"encoding/json"
	"testing"
)

func TestExtractJSON_WholeString(t *testing.T) {
	raw, ok := ExtractJSON(`{"period_type": "annual", "num_periods": 3}`)
	if !ok {
		t.Fatal("expected extraction to succeed")
	}
	var parsed map[string]any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed["period_type"] != "annual" {
		t.Errorf("period_type = %v, want annual", parsed["period_type"])
	}
}

func TestExtractJSON_FencedBlock(t *testing.T) {
	text := "Here is the result:\n```json\n{\"sections\": []}\n```\nHope that helps."
	raw, ok := ExtractJSON(text)
	if !ok {
		t.Fatal("expected extraction to succeed")
	}
	if string(raw) != `{"sections": []}` {
		t.Errorf("raw = %s", raw)
	}
}

func TestExtractJSON_EmbeddedInProse(t *testing.T) {
	text := `The classification is {"period_type": "quarterly", "specific_quarters": ["2024-Q3"]} based on the question.`
	raw, ok := ExtractJSON(text)
	if !ok {
		t.Fatal("expected extraction to succeed")
	}
	var parsed struct {
		PeriodType string   `json:"period_type"`
		Quarters   []string `json:"specific_quarters"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed.PeriodType != "quarterly" || len(parsed.Quarters) != 1 {
		t.Errorf("parsed = %+v", parsed)
	}
}

func TestExtractJSON_BracesInsideStrings(t *testing.T) {
	text := `prefix {"title": "Growth {and} Risk", "n": 1} suffix`
	raw, ok := ExtractJSON(text)
	if !ok {
		t.Fatal("expected extraction to succeed")
	}
	var parsed struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed.Title != "Growth {and} Risk" {
		t.Errorf("title = %q", parsed.Title)
	}
}

func TestExtractJSON_NoObject(t *testing.T) {
	for _, text := range []string{"", "   ", "no json here", "[1, 2, 3]", "{unclosed"} {
		if raw, ok := ExtractJSON(text); ok {
			t.Errorf("ExtractJSON(%q) = %s, want failure", text, raw)
		}
	}
}

func TestExtractJSON_Idempotent(t *testing.T) {
	text := "```json\n{\"a\": 1}\n```"
	raw, ok := ExtractJSON(text)
	if !ok {
		t.Fatal("first extraction failed")
	}
	again, ok := ExtractJSON(string(raw))
	if !ok {
		t.Fatal("second extraction failed")
	}
	if string(again) != string(raw) {
		t.Errorf("second pass = %s, want %s", again, raw)
	}
}

func TestExtractJSONInto(t *testing.T) {
	var spec struct {
		PeriodType string `json:"period_type"`
		NumPeriods int    `json:"num_periods"`
	}
	if !ExtractJSONInto("```json\n{\"period_type\": \"both\", \"num_periods\": 5}\n```", &spec) {
		t.Fatal("expected success")
	}
	if spec.PeriodType != "both" || spec.NumPeriods != 5 {
		t.Errorf("spec = %+v", spec)
	}

	if ExtractJSONInto("nothing structured", &spec) {
		t.Error("expected failure on prose")
	}
}
