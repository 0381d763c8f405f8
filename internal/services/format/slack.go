package format

import (
	"fmt"
	"strings"
	"time"
)

const (
	// Slack renders long messages poorly, so answers get trimmed
	maxAnswerLen     = 2500
	truncateAt       = 2400
	maxSQLPreviewLen = 500
)

// verbose phrases the agent likes to pad answers with; lines containing
// them are dropped before posting
var skipPhrases = []string{
	"this count comes from",
	"data spans from",
	"suggests we have",
	"this customer count is derived",
}

// placeholder SQL some tool results report instead of a real statement
const sqlPlaceholder = "SQL query executed"

// Answer renders an agent response as a single Slack mrkdwn message: cleaned
// answer text, an optional fenced SQL block, and a timing/tools footer.
func Answer(answer, sql string, toolsUsed []string, elapsed time.Duration) string {
	text := CleanAnswer(answer)

	if sql != "" && sql != sqlPlaceholder {
		preview := sql
		if len(preview) > maxSQLPreviewLen {
			preview = preview[:maxSQLPreviewLen]
		}
		text += "\n\n```sql\n" + preview + "\n```"
	}

	tools := "None"
	if len(toolsUsed) > 0 {
		tools = strings.Join(toolsUsed, ", ")
	}
	text += fmt.Sprintf("\n\n_⏱️ %.1fs • Tools: %s_", elapsed.Seconds(), tools)

	return text
}

// CleanAnswer fixes the markdown dialect (Slack bolds with *text*, not
// **text**), strips verbose filler lines and truncates oversized answers.
func CleanAnswer(answer string) string {
	if len(answer) > maxAnswerLen {
		answer = answer[:truncateAt] + "\n\n_... (truncated)_"
	}

	answer = strings.ReplaceAll(answer, "**", "*")

	lines := strings.Split(answer, "\n")
	cleaned := lines[:0]
	for _, line := range lines {
		if isVerbose(line) {
			continue
		}
		cleaned = append(cleaned, line)
	}

	return strings.Join(cleaned, "\n")
}

func isVerbose(line string) bool {
	lower := strings.ToLower(line)
	for _, phrase := range skipPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// Question renders the public echo of a slash-command question.
func Question(userID, question string) string {
	return fmt.Sprintf("<@%s> asked: %s", userID, question)
}

// ErrorMessage renders a failure for the channel.
func ErrorMessage(err error) string {
	return fmt.Sprintf("❌ Sorry, I encountered an error: %v", err)
}
