package lineutil

// LINE API limits, counted in runes.
// References: https://developers.line.biz/en/reference/messaging-api/
const (
	MaxTextMessageLength = 5000 // Text message max content length
	MaxAltTextLength     = 400  // Flex message alt text length

	// MaxBubblesPerCarousel is the number of bubbles one Flex carousel holds.
	MaxBubblesPerCarousel = 10

	MaxQuickReplyItemCount = 13 // Max items in a quick reply
	MaxQuickReplyLabel     = 20 // Max label length for quick reply item

	// MaxMessagesPerReply is how many messages one reply token can carry.
	MaxMessagesPerReply = 5
)
