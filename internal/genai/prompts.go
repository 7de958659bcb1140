package genai

import (
	"fmt"
	"time"
)

// SystemPrompt returns the instruction sent as the first message of every
// payload. It carries today's date in long British form ("15 June 2025")
// so the model can interpret relative months.
func SystemPrompt(today time.Time) string {
	return fmt.Sprintf(`You are a helpful assistant for a construction safety training provider. You have access to all of its courses, dates, availability, and prices via function calls.
Today's date is %s. Always use the %s function if the user requests something specific.
Pass the course name exactly as the user wrote it in "keyword"; do not expand abbreviations.
Only fill "month" and "location" when the user stated them for the course currently being discussed.`,
		today.Format("2 January 2006"), SearchFunctionName)
}
