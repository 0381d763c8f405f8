package agent

import (
	"testing"
	"time"
)

func TestAggregatorConcatenatesDeltas(t *testing.T) {
	agg := NewAggregator(nil)

	agg.Observe(StatusEvent{Status: "running", Message: "Analyzing..."})
	agg.Observe(TextDeltaEvent{Text: "Based on"})
	agg.Observe(TextDeltaEvent{Text: " 14 customers"})
	agg.Observe(FinalEvent{})

	if !agg.Finalized() {
		t.Fatal("Expected aggregator to be finalized")
	}

	resp := agg.Response()
	if resp.Answer != "Based on 14 customers" {
		t.Errorf("Expected answer %q, got %q", "Based on 14 customers", resp.Answer)
	}
}

func TestAggregatorOrderedConcatenation(t *testing.T) {
	fragments := []string{"one ", "two ", "three ", "four"}

	agg := NewAggregator(nil)
	for _, f := range fragments {
		agg.Observe(TextDeltaEvent{Text: f})
	}
	agg.Observe(DoneEvent{})

	want := "one two three four"
	if resp := agg.Response(); resp.Answer != want {
		t.Errorf("Expected %q, got %q", want, resp.Answer)
	}
}

func TestAggregatorToolSetSemantics(t *testing.T) {
	agg := NewAggregator(nil)

	agg.Observe(ToolUseEvent{Name: "cortex_analyst_text_to_sql"})
	agg.Observe(ToolUseEvent{Name: "cortex_search"})
	agg.Observe(ToolUseEvent{Name: "cortex_analyst_text_to_sql"})
	agg.Observe(ToolUseEvent{Name: ""})
	agg.Observe(FinalEvent{})

	resp := agg.Response()
	if len(resp.ToolsUsed) != 2 {
		t.Fatalf("Expected 2 tools, got %d: %v", len(resp.ToolsUsed), resp.ToolsUsed)
	}
	if resp.ToolsUsed[0] != "cortex_analyst_text_to_sql" || resp.ToolsUsed[1] != "cortex_search" {
		t.Errorf("Tools out of order: %v", resp.ToolsUsed)
	}
}

func TestAggregatorFirstSQLWins(t *testing.T) {
	agg := NewAggregator(nil)

	agg.Observe(ExecutionTraceEvent{SQL: "SELECT 1"})
	agg.Observe(ExecutionTraceEvent{SQL: "SELECT 2"})
	agg.Observe(FinalEvent{SQL: "SELECT 3"})

	if resp := agg.Response(); resp.SQL != "SELECT 1" {
		t.Errorf("Expected first SQL to win, got %q", resp.SQL)
	}
}

func TestAggregatorThinkingSeparate(t *testing.T) {
	agg := NewAggregator(nil)

	agg.Observe(ThinkingDeltaEvent{Text: "let me think"})
	agg.Observe(TextDeltaEvent{Text: "the answer"})
	agg.Observe(FinalEvent{})

	resp := agg.Response()
	if resp.Answer != "the answer" {
		t.Errorf("Thinking leaked into answer: %q", resp.Answer)
	}
	if resp.Thinking != "let me think" {
		t.Errorf("Expected thinking captured, got %q", resp.Thinking)
	}
}

func TestAggregatorMetadataAndError(t *testing.T) {
	agg := NewAggregator(nil)

	agg.Observe(MetadataEvent{MessageID: "m-9", ThreadID: "t-9"})
	agg.Observe(ErrorEvent{Code: "390112", Message: "token expired"})

	if !agg.Finalized() {
		t.Fatal("Error event should finalize the run")
	}

	resp := agg.Response()
	if resp.MessageID != "m-9" || resp.ThreadID != "t-9" {
		t.Errorf("Metadata not captured: %+v", resp)
	}
	if resp.Err == nil || resp.Err.Message != "token expired" {
		t.Errorf("Stream error not captured: %+v", resp.Err)
	}
}

func TestAggregatorStreamCloseFinalizes(t *testing.T) {
	agg := NewAggregator(nil)
	agg.Observe(TextDeltaEvent{Text: "partial"})

	// no terminal event: Response is still usable after the stream closes
	resp := agg.Response()
	if resp.Answer != "partial" {
		t.Errorf("Expected partial answer, got %q", resp.Answer)
	}
	if resp.Elapsed < 0 || resp.Elapsed > time.Minute {
		t.Errorf("Implausible elapsed time: %v", resp.Elapsed)
	}
}
