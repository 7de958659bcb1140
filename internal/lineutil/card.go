package lineutil

import (
	"fmt"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// Field is one labelled line on a course card.
type Field struct {
	Icon  string
	Label string
	Value string
}

// Card is one course date rendered as a Flex bubble: a green title band,
// the fields stacked underneath and an optional booking button.
type Card struct {
	Title  string
	Fields []Field

	// ButtonURI adds a button opening the link; empty omits the footer.
	ButtonLabel string
	ButtonURI   string
}

// Bubble lays the card out.
func (c Card) Bubble() messaging_api.FlexBubble {
	rows := make([]messaging_api.FlexComponentInterface, 0, len(c.Fields))
	for i, f := range c.Fields {
		row := f.box()
		if i > 0 {
			row.Margin = "md"
		}
		rows = append(rows, row)
	}

	bubble := messaging_api.FlexBubble{
		Header: &messaging_api.FlexBox{
			Layout:          messaging_api.FlexBoxLAYOUT_VERTICAL,
			BackgroundColor: ColorLineGreen,
			PaddingAll:      paddingCard,
			Contents: []messaging_api.FlexComponentInterface{
				&messaging_api.FlexText{
					Text:     c.Title,
					Weight:   messaging_api.FlexTextWEIGHT_BOLD,
					Size:     "md",
					Color:    ColorWhite,
					Wrap:     true,
					MaxLines: 3,
				},
			},
		},
		Body: &messaging_api.FlexBox{
			Layout:     messaging_api.FlexBoxLAYOUT_VERTICAL,
			PaddingAll: paddingCard,
			Contents:   rows,
		},
	}
	if c.ButtonURI != "" {
		bubble.Footer = &messaging_api.FlexBox{
			Layout:     messaging_api.FlexBoxLAYOUT_VERTICAL,
			PaddingAll: paddingFooter,
			Contents: []messaging_api.FlexComponentInterface{
				&messaging_api.FlexButton{
					Action: NewURIAction(c.ButtonLabel, c.ButtonURI),
					Style:  messaging_api.FlexButtonSTYLE_PRIMARY,
					Color:  ColorLineGreen,
					Height: messaging_api.FlexButtonHEIGHT_SM,
				},
			},
		}
	}
	return bubble
}

// box stacks the icon and label above the wrapped value.
func (f Field) box() *messaging_api.FlexBox {
	return &messaging_api.FlexBox{
		Layout: messaging_api.FlexBoxLAYOUT_VERTICAL,
		Contents: []messaging_api.FlexComponentInterface{
			&messaging_api.FlexBox{
				Layout:  messaging_api.FlexBoxLAYOUT_HORIZONTAL,
				Spacing: "sm",
				Contents: []messaging_api.FlexComponentInterface{
					&messaging_api.FlexText{Text: f.Icon, Size: "sm", Flex: 0},
					&messaging_api.FlexText{Text: f.Label, Size: "xs", Color: ColorLabel, Flex: 0, Margin: "sm"},
				},
			},
			&messaging_api.FlexText{Text: f.Value, Size: "sm", Color: ColorText, Margin: "sm", Wrap: true},
		},
	}
}

// Carousels packs cards into as many carousel messages as needed. Pages
// after the first get the card range appended to their alt text.
func Carousels(altText string, cards []Card) []messaging_api.MessageInterface {
	var messages []messaging_api.MessageInterface
	for start := 0; start < len(cards); start += MaxBubblesPerCarousel {
		end := min(start+MaxBubblesPerCarousel, len(cards))
		page := make([]messaging_api.FlexBubble, 0, end-start)
		for _, c := range cards[start:end] {
			page = append(page, c.Bubble())
		}
		alt := altText
		if start > 0 {
			alt = fmt.Sprintf("%s (%d-%d)", altText, start+1, end)
		}
		messages = append(messages, NewFlexMessage(alt, &messaging_api.FlexCarousel{Contents: page}))
	}
	return messages
}
