package dialogue

import (
	"strings"

	"github.com/targetzero/coursebot/internal/genai"
)

// payload builds the model input: one system instruction followed by the
// most recent non-system turns and the new utterance.
func (c *Controller) payload(t *turn) []genai.Message {
	system := ""
	var rest []Turn
	for _, h := range t.req.History {
		if h.Role == RoleSystem {
			if system == "" {
				system = h.Content
			}
			continue
		}
		rest = append(rest, h)
	}
	if system == "" {
		system = genai.SystemPrompt(t.asOf)
	}
	if len(rest) > c.historyWindow {
		rest = rest[len(rest)-c.historyWindow:]
	}

	msgs := make([]genai.Message, 0, len(rest)+2)
	msgs = append(msgs, genai.Message{Role: genai.RoleSystem, Content: system})
	for _, h := range rest {
		role := genai.RoleUser
		if h.Role == RoleAssistant {
			role = genai.RoleAssistant
		}
		msgs = append(msgs, genai.Message{Role: role, Content: h.Content})
	}
	return append(msgs, genai.Message{Role: genai.RoleUser, Content: t.utterance})
}

// PendingFromHistory returns the confirmation asked by the last assistant
// turn, if the conversation ends with one.
func (c *Controller) PendingFromHistory(history []Turn) *PendingConfirmation {
	if len(history) == 0 {
		return nil
	}
	last := history[len(history)-1]
	if last.Role != RoleAssistant {
		return nil
	}
	m := confirmPattern.FindStringSubmatch(last.Content)
	if m == nil {
		return nil
	}
	if e, ok := c.table.Entry(strings.ToLower(m[2])); ok {
		return &PendingConfirmation{Code: e.Code, FullName: e.FullName}
	}
	if code, ok := c.table.CodeForFullName(m[1]); ok {
		return &PendingConfirmation{Code: code, FullName: c.table.FullName(code)}
	}
	return nil
}

// previousCode is the course the conversation was last about. User turns
// are replayed in order; once a course is named, later turns change it only
// by naming another course outright, so "any seats left?" does not switch
// the subject to the seats course.
func (c *Controller) previousCode(history []Turn) string {
	var code string
	for _, turn := range history {
		if turn.Role != RoleUser {
			continue
		}
		detect := c.resolver.Detect
		if code != "" {
			detect = c.resolver.Mentions
		}
		if next, ok := detect(turn.Content); ok {
			code = next
		}
	}
	return code
}
