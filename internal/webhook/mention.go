package webhook

import (
	"slices"
	"strings"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

// botMentions returns the bot's own mentions in a text message, last first.
func botMentions(msg webhook.TextMessageContent) []webhook.UserMentionee {
	if msg.Mention == nil {
		return nil
	}
	var self []webhook.UserMentionee
	for _, m := range msg.Mention.Mentionees {
		if u, ok := m.(webhook.UserMentionee); ok && u.IsSelf {
			self = append(self, u)
		}
	}
	slices.SortFunc(self, func(a, b webhook.UserMentionee) int { return int(b.Index - a.Index) })
	return self
}

// isBotMentioned reports whether a group message addresses the bot.
func isBotMentioned(msg webhook.TextMessageContent) bool {
	return len(botMentions(msg)) > 0
}

// stripBotMentions removes "@Bot" spans from the text so only the question
// reaches the dialogue. LINE indexes mentions by rune.
func stripBotMentions(msg webhook.TextMessageContent) string {
	runes := []rune(msg.Text)
	for _, m := range botMentions(msg) {
		start := max(int(m.Index), 0)
		end := min(int(m.Index+m.Length), len(runes))
		if start >= end {
			continue
		}
		runes = append(runes[:start], runes[end:]...)
	}
	return strings.Join(strings.Fields(string(runes)), " ")
}
