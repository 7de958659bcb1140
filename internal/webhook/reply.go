package webhook

import (
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/targetzero/coursebot/internal/dialogue"
	"github.com/targetzero/coursebot/internal/lineutil"
	"github.com/targetzero/coursebot/internal/render"
)

const (
	msgWelcome     = "Hello! I can help you find a training course. Tell me the course you're after, and the month or location if you know them, for example \"SMSTS in Chelmsford in September\"."
	msgJoin        = "Hello everyone! Mention me with the course you're looking for and I'll find upcoming dates."
	msgReset       = "OK, let's start again. Which course are you looking for?"
	msgTooFast     = "You're sending messages too quickly. Please wait a moment and try again."
	msgTooLong     = "That message is too long. Please ask about one course at a time."
	msgTextOnly    = "I can only read text messages. Please type the course you're looking for."
	msgUnavailable = "Sorry, the course assistant is unavailable right now. Please try again later."
)

var welcomeExamples = []string{"SMSTS", "SSSTS", "NEBOSH General"}

// buildReply turns a dialogue result into LINE messages. Results are sent
// as a summary followed by course cards; every other outcome is one text
// message. Quick replies offer the answers the result asks for.
func buildReply(res dialogue.Result, utterance string) []messaging_api.MessageInterface {
	var messages []messaging_api.MessageInterface
	if res.Outcome == dialogue.OutcomeResults && len(res.Hits) > 0 {
		messages = append(messages, lineutil.NewTextMessage(render.Summary(res)))
		messages = append(messages, lineutil.Carousels(render.Text(res), courseCards(render.Details(res.Hits)))...)
		if len(messages) > lineutil.MaxMessagesPerReply {
			messages = messages[:lineutil.MaxMessagesPerReply]
		}
	} else {
		messages = append(messages, lineutil.NewTextMessage(render.Text(res)))
	}
	lineutil.AddQuickReplyToMessages(messages, quickReplies(res, utterance)...)
	return messages
}

func quickReplies(res dialogue.Result, utterance string) []lineutil.QuickReplyItem {
	var items []lineutil.QuickReplyItem
	switch res.Outcome {
	case dialogue.OutcomeUmbrella:
		for _, c := range res.Choices {
			items = append(items, lineutil.QuickReplyText(c.Label))
		}
	case dialogue.OutcomeConfirm:
		items = append(items, lineutil.QuickReplyText("Yes"), lineutil.QuickReplyText("No"))
	case dialogue.OutcomeClarify, dialogue.OutcomeNoResults:
		for _, v := range res.Options.Venues {
			items = append(items, lineutil.QuickReplyText(v))
		}
		for _, m := range res.Options.Months {
			items = append(items, lineutil.QuickReplyText(m))
		}
	case dialogue.OutcomeNetworkError:
		if utterance != "" {
			items = append(items, lineutil.QuickReplyItem{Action: lineutil.NewMessageAction("Try again", utterance)})
		}
	}
	return items
}

func courseCards(details []render.Detail) []lineutil.Card {
	cards := make([]lineutil.Card, 0, len(details))
	for _, d := range details {
		cards = append(cards, lineutil.Card{
			Title: d.Name,
			Fields: []lineutil.Field{
				{Icon: "📍", Label: "Location", Value: d.Location},
				{Icon: "📅", Label: "Dates", Value: d.Dates},
				{Icon: "💷", Label: "Price", Value: d.Price},
				{Icon: "🪑", Label: "Available Spaces", Value: d.Spaces},
			},
			ButtonLabel: "Book now",
			ButtonURI:   d.Link,
		})
	}
	return cards
}

func textReply(text string, items ...lineutil.QuickReplyItem) []messaging_api.MessageInterface {
	return []messaging_api.MessageInterface{lineutil.NewTextMessageWithQuickReply(text, items...)}
}

func welcomeReply(personal bool) []messaging_api.MessageInterface {
	if !personal {
		return textReply(msgJoin)
	}
	items := make([]lineutil.QuickReplyItem, 0, len(welcomeExamples))
	for _, ex := range welcomeExamples {
		items = append(items, lineutil.QuickReplyText(ex))
	}
	return textReply(msgWelcome, items...)
}
