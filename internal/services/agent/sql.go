package agent

import "regexp"

// sqlPattern finds the first SELECT or WITH statement embedded in a payload.
// The match is kept verbatim for display; there is no attempt to validate or
// reformat it.
var sqlPattern = regexp.MustCompile(`(?is)\b(SELECT|WITH)\b.*?(;|$)`)

// ExtractSQL returns the first SQL statement found in text, or "" when none
// is present.
func ExtractSQL(text string) string {
	if text == "" {
		return ""
	}
	return sqlPattern.FindString(text)
}
