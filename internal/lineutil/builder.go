package lineutil

import (
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// QuickReplyItem is one button under a message.
type QuickReplyItem struct {
	Action messaging_api.ActionInterface
}

// NewTextMessage creates a text message, truncated to the LINE limit.
func NewTextMessage(text string) *messaging_api.TextMessage {
	return &messaging_api.TextMessage{
		Text: TruncateRunes(text, MaxTextMessageLength),
	}
}

// NewTextMessageWithQuickReply creates a text message with quick reply items.
func NewTextMessageWithQuickReply(text string, items ...QuickReplyItem) *messaging_api.TextMessage {
	msg := NewTextMessage(text)
	if len(items) > 0 {
		msg.QuickReply = NewQuickReply(items)
	}
	return msg
}

// NewQuickReply creates a quick reply component. Items beyond the LINE
// limit of 13 are dropped.
func NewQuickReply(items []QuickReplyItem) *messaging_api.QuickReply {
	if len(items) > MaxQuickReplyItemCount {
		items = items[:MaxQuickReplyItemCount]
	}

	quickReplyItems := make([]messaging_api.QuickReplyItem, len(items))
	for i, item := range items {
		quickReplyItems[i] = messaging_api.QuickReplyItem{Action: item.Action}
	}

	return &messaging_api.QuickReply{
		Items: quickReplyItems,
	}
}

// NewMessageAction creates an action that sends text as the user when tapped.
// The label is truncated to the quick reply limit.
func NewMessageAction(label, text string) messaging_api.ActionInterface {
	return &messaging_api.MessageAction{
		Label: TruncateRunes(label, MaxQuickReplyLabel),
		Text:  text,
	}
}

// NewURIAction creates an action that opens uri.
func NewURIAction(label, uri string) messaging_api.ActionInterface {
	return &messaging_api.UriAction{
		Label: label,
		Uri:   uri,
	}
}

// QuickReplyText is a quick reply button that sends its own label.
func QuickReplyText(label string) QuickReplyItem {
	return QuickReplyItem{Action: NewMessageAction(label, label)}
}

// NewFlexMessage creates a flex message with the given alt text and container.
func NewFlexMessage(altText string, contents messaging_api.FlexContainerInterface) *messaging_api.FlexMessage {
	return &messaging_api.FlexMessage{
		AltText:  TruncateRunes(altText, MaxAltTextLength),
		Contents: contents,
	}
}

// AddQuickReplyToMessages attaches quick reply items to the last message in
// a slice. Messages that cannot carry quick replies are left alone.
func AddQuickReplyToMessages(messages []messaging_api.MessageInterface, items ...QuickReplyItem) {
	if len(messages) == 0 || len(items) == 0 {
		return
	}
	qr := NewQuickReply(items)
	switch m := messages[len(messages)-1].(type) {
	case *messaging_api.TextMessage:
		m.QuickReply = qr
	case *messaging_api.FlexMessage:
		m.QuickReply = qr
	}
}

// TruncateRunes truncates text by rune count, ending with "..." when cut.
func TruncateRunes(text string, maxRunes int) string {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	if maxRunes <= 3 {
		return string(runes[:max(maxRunes, 0)])
	}
	return string(runes[:maxRunes-3]) + "..."
}
