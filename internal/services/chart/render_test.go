package chart

import (
	"encoding/json"
	"testing"
)

const barSpec = `{
	"mark": "bar",
	"title": "Revenue by region",
	"encoding": {"x": {"field": "region"}, "y": {"field": "revenue"}},
	"data": {"values": [
		{"region": "EMEA", "revenue": 120.5},
		{"region": "AMER", "revenue": 240},
		{"region": "APAC", "revenue": 80}
	]}
}`

func TestParseSpec(t *testing.T) {
	spec, err := ParseSpec(json.RawMessage(barSpec))
	if err != nil {
		t.Fatalf("ParseSpec failed: %v", err)
	}

	if spec.Mark != "bar" {
		t.Errorf("Mark = %q, want bar", spec.Mark)
	}
	if spec.Title != "Revenue by region" {
		t.Errorf("Title = %q", spec.Title)
	}
	if len(spec.Values) != 3 {
		t.Fatalf("Expected 3 data points, got %d", len(spec.Values))
	}
	if spec.Labels[1] != "AMER" || spec.Values[1] != 240 {
		t.Errorf("Unexpected point: %v=%v", spec.Labels[1], spec.Values[1])
	}
}

func TestParseSpecObjectMark(t *testing.T) {
	raw := `{
		"mark": {"type": "line"},
		"encoding": {"x": {"field": "day"}, "y": {"field": "count"}},
		"data": {"values": [{"day": "Mon", "count": 1}, {"day": "Tue", "count": 2}]}
	}`

	spec, err := ParseSpec(json.RawMessage(raw))
	if err != nil {
		t.Fatalf("ParseSpec failed: %v", err)
	}
	if spec.Mark != "line" {
		t.Errorf("Mark = %q, want line", spec.Mark)
	}
}

func TestParseSpecStringWrapped(t *testing.T) {
	wrapped, err := json.Marshal(barSpec)
	if err != nil {
		t.Fatal(err)
	}

	spec, err := ParseSpec(json.RawMessage(wrapped))
	if err != nil {
		t.Fatalf("ParseSpec failed on string-wrapped spec: %v", err)
	}
	if len(spec.Values) != 3 {
		t.Errorf("Expected 3 data points, got %d", len(spec.Values))
	}
}

func TestParseSpecRejectsUndrawable(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"Empty", ""},
		{"Not JSON", "{nope"},
		{"Unsupported mark", `{"mark": "geoshape", "encoding": {"x": {"field": "a"}, "y": {"field": "b"}}, "data": {"values": [{"a": "x", "b": 1}]}}`},
		{"Missing encoding", `{"mark": "bar", "data": {"values": [{"a": "x", "b": 1}]}}`},
		{"No data", `{"mark": "bar", "encoding": {"x": {"field": "a"}, "y": {"field": "b"}}, "data": {"values": []}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseSpec(json.RawMessage(tt.raw)); err == nil {
				t.Error("Expected error for undrawable spec")
			}
		})
	}
}

func TestRenderProducesPNG(t *testing.T) {
	png, err := RenderSpec(json.RawMessage(barSpec))
	if err != nil {
		t.Fatalf("RenderSpec failed: %v", err)
	}

	// PNG magic bytes
	if len(png) < 8 || png[0] != 0x89 || png[1] != 'P' || png[2] != 'N' || png[3] != 'G' {
		t.Error("Output is not a PNG")
	}
}
