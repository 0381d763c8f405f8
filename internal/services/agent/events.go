package agent

import (
	"encoding/json"
	"strings"
)

// EventType discriminates the stream events the agent API emits.
type EventType string

const (
	EventMetadata       EventType = "metadata"
	EventStatus         EventType = "status"
	EventThinkingDelta  EventType = "thinking_delta"
	EventTextDelta      EventType = "text_delta"
	EventToolUse        EventType = "tool_use"
	EventExecutionTrace EventType = "execution_trace"
	EventFinal          EventType = "final"
	EventError          EventType = "error"
	EventDone           EventType = "done"
)

// Event is one decoded server-sent event from an agent run stream.
type Event interface {
	Type() EventType
}

// MetadataEvent carries the server-side identifiers for the run.
type MetadataEvent struct {
	MessageID string `json:"message_id"`
	ThreadID  string `json:"thread_id"`
}

func (MetadataEvent) Type() EventType { return EventMetadata }

// StatusEvent is a human-readable progress update ("Planning next steps...").
type StatusEvent struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (StatusEvent) Type() EventType { return EventStatus }

// ThinkingDeltaEvent is a chunk of the agent's reasoning trace.
type ThinkingDeltaEvent struct {
	Text string `json:"text"`
}

func (ThinkingDeltaEvent) Type() EventType { return EventThinkingDelta }

// TextDeltaEvent is a chunk of the final answer text.
type TextDeltaEvent struct {
	Text string `json:"text"`
}

func (TextDeltaEvent) Type() EventType { return EventTextDelta }

// ToolUseEvent reports that the agent invoked a tool (cortex_analyst_text_to_sql,
// cortex_search, ...).
type ToolUseEvent struct {
	Name string `json:"type"`
}

func (ToolUseEvent) Type() EventType { return EventToolUse }

// ExecutionTraceEvent carries the observability trace; the Cortex Analyst SQL
// lives in one of its attributes.
type ExecutionTraceEvent struct {
	SQL string
}

func (ExecutionTraceEvent) Type() EventType { return EventExecutionTrace }

// FinalEvent is the terminal response object. Streamed text deltas already
// carried the answer, so only the structured extras are decoded here.
type FinalEvent struct {
	SQL       string
	ChartSpec json.RawMessage
}

func (FinalEvent) Type() EventType { return EventFinal }

// ErrorEvent is a server-reported stream failure.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (ErrorEvent) Type() EventType { return EventError }

// DoneEvent marks the end of the stream.
type DoneEvent struct{}

func (DoneEvent) Type() EventType { return EventDone }

// traceSQLAttribute is where Cortex Analyst records the generated SQL inside
// an execution trace span.
const traceSQLAttribute = "snow.ai.observability.agent.tool.cortex_analyst.sql_query"

// decodeEvent turns an SSE event name plus data payload into a typed Event.
// Unrecognized or malformed payloads return (nil, false) and are skipped by
// the scanner without failing the stream.
func decodeEvent(name string, data []byte) (Event, bool) {
	switch name {
	case "metadata":
		var ev MetadataEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, false
		}
		return ev, true

	case "response.thinking.delta":
		var ev ThinkingDeltaEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, false
		}
		return ev, true

	case "response.text.delta":
		var ev TextDeltaEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, false
		}
		return ev, true

	case "response.status":
		var ev StatusEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, false
		}
		return ev, true

	case "execution_trace":
		sql, ok := decodeTraceSQL(data)
		if !ok {
			return nil, false
		}
		return ExecutionTraceEvent{SQL: sql}, true

	case "response":
		return decodeFinal(data)

	case "error":
		var ev ErrorEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, false
		}
		return ev, true

	case "done":
		return DoneEvent{}, true
	}

	// The agent API is not strict about event names for status and tool
	// feedback, so unknown events are classified by payload shape.
	return sniffEvent(data)
}

// sniffEvent classifies a payload the same way the stream's consumers do:
// anything with status+message is progress, anything typed cortex_* is a
// tool invocation.
func sniffEvent(data []byte) (Event, bool) {
	var probe struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Kind    string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, false
	}

	if probe.Status != "" && probe.Message != "" {
		return StatusEvent{Status: probe.Status, Message: probe.Message}, true
	}

	if probe.Kind != "" && strings.Contains(strings.ToLower(probe.Kind), "cortex") {
		return ToolUseEvent{Name: probe.Kind}, true
	}

	return nil, false
}

// decodeTraceSQL digs the generated SQL out of an execution trace. The trace
// arrives as an array of JSON-encoded span strings, each holding a flat
// attribute list.
func decodeTraceSQL(data []byte) (string, bool) {
	var spans []string
	if err := json.Unmarshal(data, &spans); err != nil {
		return "", false
	}

	type attribute struct {
		Key   string `json:"key"`
		Value struct {
			StringValue string `json:"stringValue"`
		} `json:"value"`
	}

	for _, span := range spans {
		var doc struct {
			Attributes []attribute `json:"attributes"`
		}
		if err := json.Unmarshal([]byte(span), &doc); err != nil {
			continue
		}
		for _, attr := range doc.Attributes {
			if attr.Key == traceSQLAttribute && attr.Value.StringValue != "" {
				return attr.Value.StringValue, true
			}
		}
	}

	return "", false
}

// decodeFinal pulls the structured extras (chart spec, tool-result SQL) out
// of the terminal response object.
func decodeFinal(data []byte) (Event, bool) {
	var doc struct {
		Content []struct {
			Type  string `json:"type"`
			Text  string `json:"text"`
			Chart struct {
				ChartSpec json.RawMessage `json:"chart_spec"`
			} `json:"chart"`
			ToolResult struct {
				Content json.RawMessage `json:"content"`
			} `json:"tool_result"`
		} `json:"content"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		// A bare terminal marker still ends the run.
		return FinalEvent{}, true
	}

	ev := FinalEvent{}
	for _, block := range doc.Content {
		switch block.Type {
		case "chart":
			if len(block.Chart.ChartSpec) > 0 && ev.ChartSpec == nil {
				ev.ChartSpec = block.Chart.ChartSpec
			}
		case "tool_result":
			if ev.SQL == "" {
				ev.SQL = ExtractSQL(string(block.ToolResult.Content))
			}
		case "text":
			if ev.SQL == "" {
				ev.SQL = ExtractSQL(block.Text)
			}
		}
	}
	return ev, true
}
