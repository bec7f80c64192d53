// Package text provides utilities for text processing.
// This package includes reusable functions for character counting and
// truncation used wherever post length limits apply.
package text

// CountRunes counts the number of Unicode characters (runes) in the given text.
// This function correctly handles multi-byte characters including Japanese, Chinese,
// emoji, and other Unicode characters by counting runes instead of bytes.
//
// Social platforms enforce their length limits on characters, not bytes,
// so every length check against a post limit goes through this function.
//
// Examples:
//
//	CountRunes("hello")          // returns 5 (ASCII text)
//	CountRunes("こんにちは")       // returns 5 (Japanese text)
//	CountRunes("hello世界")       // returns 7 (mixed text)
//	CountRunes("Hello👋")         // returns 6 (text with emoji)
//	CountRunes("")               // returns 0 (empty string)
func CountRunes(text string) int {
	return len([]rune(text))
}

// TruncateRunes shortens text to at most max runes, appending an ellipsis
// when truncation occurs. The ellipsis counts toward the limit.
//
// A max of zero or less returns the empty string.
//
// Examples:
//
//	TruncateRunes("hello world", 20)  // returns "hello world"
//	TruncateRunes("hello world", 8)   // returns "hello w…"
//	TruncateRunes("こんにちは世界", 5)   // returns "こんにち…"
func TruncateRunes(text string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	if max == 1 {
		return "…"
	}
	return string(runes[:max-1]) + "…"
}
