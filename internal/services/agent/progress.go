package agent

import (
	"strings"
	"time"
)

// ProgressFunc receives throttled progress messages during an agent run.
type ProgressFunc func(message string)

// milestone status keywords always break through the throttle when the
// stream moves to a new phase
var milestones = []string{"planning", "executing", "generating", "forming"}

// progressEmoji maps the leading status keyword to a channel-friendly icon.
var progressEmoji = map[string]string{
	"planning":   "🧠",
	"executing":  "⚡",
	"generating": "✨",
	"forming":    "📝",
	"running":    "🔧",
	"streaming":  "📊",
}

// ProgressNotifier rate-limits the status chatter an agent run produces so a
// chat channel sees at most one update per interval, plus milestone
// transitions. Repeats of the current milestone are suppressed.
type ProgressNotifier struct {
	fn       ProgressFunc
	interval time.Duration
	now      func() time.Time

	lastEmit time.Time
	lastKey  string
}

func NewProgressNotifier(fn ProgressFunc, interval time.Duration) *ProgressNotifier {
	return &ProgressNotifier{
		fn:       fn,
		interval: interval,
		now:      time.Now,
		lastEmit: time.Now().Add(-interval), // first update is never throttled
	}
}

// Notify forwards message to the callback if it passes the throttle rules.
func (n *ProgressNotifier) Notify(message string) {
	if n == nil || n.fn == nil || message == "" {
		return
	}

	key := statusKey(message)
	now := n.now()
	due := now.Sub(n.lastEmit) >= n.interval

	if !isMilestone(key) && !due {
		return
	}
	if key == n.lastKey && !due {
		return
	}

	n.lastEmit = now
	n.lastKey = key

	emoji, ok := progressEmoji[key]
	if !ok {
		emoji = "⏳"
	}
	n.fn(emoji + " " + message + "...")
}

// statusKey reduces a status message to its leading keyword.
func statusKey(message string) string {
	fields := strings.Fields(strings.ToLower(message))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func isMilestone(key string) bool {
	for _, m := range milestones {
		if strings.Contains(key, m) {
			return true
		}
	}
	return false
}
