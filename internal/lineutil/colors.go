// Package lineutil builds LINE messages, quick replies and course cards.
package lineutil

// Card layout, from the LINE design system.
// Reference: https://designsystem.line.me/LDSM/foundation/color/line-color-guide-ex-en
const (
	ColorLineGreen = "#06C755"
	ColorWhite     = "#FFFFFF"
	ColorLabel     = "#666666" // 5.7:1 contrast, WCAG AA
	ColorText      = "#111111"

	paddingCard   = "16px"
	paddingFooter = "12px"
)
