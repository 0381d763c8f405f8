package chart

import (
	"bytes"
	"encoding/json"
	"fmt"

	gochart "github.com/wcharczuk/go-chart/v2"
)

// Spec is the subset of the vega-lite chart spec the agent emits that the
// bot can actually draw: a single bar or line series over label/value pairs.
type Spec struct {
	Mark   string
	Title  string
	Labels []string
	Values []float64
}

type rawSpec struct {
	Mark     json.RawMessage `json:"mark"`
	Title    string          `json:"title"`
	Encoding struct {
		X struct {
			Field string `json:"field"`
		} `json:"x"`
		Y struct {
			Field string `json:"field"`
		} `json:"y"`
	} `json:"encoding"`
	Data struct {
		Values []map[string]interface{} `json:"values"`
	} `json:"data"`
}

// ParseSpec decodes a chart spec payload. Specs the renderer cannot draw
// return an error so callers can degrade to text-only output.
func ParseSpec(raw json.RawMessage) (*Spec, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty chart spec")
	}

	// the spec sometimes arrives as a JSON-encoded string
	var nested string
	if err := json.Unmarshal(raw, &nested); err == nil {
		raw = json.RawMessage(nested)
	}

	var doc rawSpec
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode chart spec: %w", err)
	}

	mark, err := decodeMark(doc.Mark)
	if err != nil {
		return nil, err
	}
	if mark != "bar" && mark != "line" {
		return nil, fmt.Errorf("unsupported chart mark %q", mark)
	}

	xField := doc.Encoding.X.Field
	yField := doc.Encoding.Y.Field
	if xField == "" || yField == "" {
		return nil, fmt.Errorf("chart spec missing x/y encoding")
	}

	spec := &Spec{Mark: mark, Title: doc.Title}
	for _, row := range doc.Data.Values {
		label, _ := row[xField].(string)
		value, ok := toFloat(row[yField])
		if !ok {
			continue
		}
		spec.Labels = append(spec.Labels, label)
		spec.Values = append(spec.Values, value)
	}

	if len(spec.Values) == 0 {
		return nil, fmt.Errorf("chart spec has no drawable data points")
	}
	return spec, nil
}

// decodeMark handles both "bar" and {"type": "bar"} forms.
func decodeMark(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("chart spec missing mark")
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var obj struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", fmt.Errorf("failed to decode chart mark: %w", err)
	}
	return obj.Type, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// Render draws the spec as a PNG.
func Render(spec *Spec) ([]byte, error) {
	var buf bytes.Buffer

	switch spec.Mark {
	case "bar":
		bars := make([]gochart.Value, len(spec.Values))
		for i, v := range spec.Values {
			bars[i] = gochart.Value{Value: v, Label: spec.Labels[i]}
		}
		graph := gochart.BarChart{
			Title:    spec.Title,
			Width:    800,
			Height:   400,
			BarWidth: 48,
			Bars:     bars,
		}
		if err := graph.Render(gochart.PNG, &buf); err != nil {
			return nil, fmt.Errorf("failed to render bar chart: %w", err)
		}

	case "line":
		xs := make([]float64, len(spec.Values))
		for i := range spec.Values {
			xs[i] = float64(i)
		}
		graph := gochart.Chart{
			Title:  spec.Title,
			Width:  800,
			Height: 400,
			Series: []gochart.Series{
				gochart.ContinuousSeries{XValues: xs, YValues: spec.Values},
			},
		}
		if err := graph.Render(gochart.PNG, &buf); err != nil {
			return nil, fmt.Errorf("failed to render line chart: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported chart mark %q", spec.Mark)
	}

	return buf.Bytes(), nil
}

// RenderSpec parses and draws in one step.
func RenderSpec(raw json.RawMessage) ([]byte, error) {
	spec, err := ParseSpec(raw)
	if err != nil {
		return nil, err
	}
	return Render(spec)
}
