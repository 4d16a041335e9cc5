package usecase

import (
	"strings"
	"unicode/utf8"
)

// Telegram limits.
const (
	CaptionLimit = 1024
	MessageLimit = 4096
)

const ellipsis = "…"

// Clamp shortens s to at most limit runes, ending with an ellipsis when cut.
func Clamp(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	cut := strings.TrimRight(string(runes[:limit-1]), " \n\t")
	return cut + ellipsis
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
