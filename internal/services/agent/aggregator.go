package agent

import (
	"encoding/json"
	"strings"
	"time"
)

// Response is the finished result of one agent run.
type Response struct {
	Answer    string
	Thinking  string
	SQL       string
	ToolsUsed []string
	Elapsed   time.Duration
	ChartSpec json.RawMessage
	ThreadID  string
	MessageID string
	Err       *ErrorEvent
}

// Aggregator folds an ordered event stream into a single Response. Text
// deltas are concatenated in arrival order, tools are deduplicated, and the
// first SQL statement seen wins.
type Aggregator struct {
	answer   strings.Builder
	thinking strings.Builder

	tools    []string
	toolSeen map[string]struct{}

	sql       string
	chartSpec json.RawMessage
	threadID  string
	messageID string
	streamErr *ErrorEvent

	progress  *ProgressNotifier
	start     time.Time
	finalized bool
}

func NewAggregator(progress *ProgressNotifier) *Aggregator {
	return &Aggregator{
		toolSeen: make(map[string]struct{}),
		progress: progress,
		start:    time.Now(),
	}
}

// Observe folds one event into the aggregate.
func (a *Aggregator) Observe(ev Event) {
	switch e := ev.(type) {
	case TextDeltaEvent:
		a.answer.WriteString(e.Text)

	case ThinkingDeltaEvent:
		a.thinking.WriteString(e.Text)

	case StatusEvent:
		a.progress.Notify(e.Message)

	case ToolUseEvent:
		if e.Name == "" {
			return
		}
		if _, seen := a.toolSeen[e.Name]; seen {
			return
		}
		a.toolSeen[e.Name] = struct{}{}
		a.tools = append(a.tools, e.Name)

	case ExecutionTraceEvent:
		if a.sql == "" {
			a.sql = e.SQL
		}

	case MetadataEvent:
		if e.ThreadID != "" {
			a.threadID = e.ThreadID
		}
		if e.MessageID != "" {
			a.messageID = e.MessageID
		}

	case FinalEvent:
		if a.sql == "" {
			a.sql = e.SQL
		}
		if a.chartSpec == nil {
			a.chartSpec = e.ChartSpec
		}
		a.finalized = true

	case ErrorEvent:
		a.streamErr = &e
		a.finalized = true

	case DoneEvent:
		a.finalized = true
	}
}

// Finalized reports whether a terminal event has been observed.
func (a *Aggregator) Finalized() bool {
	return a.finalized
}

// Response builds the finished result. The stream closing counts as
// finalization, so Response is valid even without a terminal event.
func (a *Aggregator) Response() *Response {
	return &Response{
		Answer:    a.answer.String(),
		Thinking:  a.thinking.String(),
		SQL:       a.sql,
		ToolsUsed: a.tools,
		Elapsed:   time.Since(a.start),
		ChartSpec: a.chartSpec,
		ThreadID:  a.threadID,
		MessageID: a.messageID,
		Err:       a.streamErr,
	}
}
