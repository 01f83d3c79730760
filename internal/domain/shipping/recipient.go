package shipping

import (
	"fmt"
	"regexp"
)

var (
	cjkPattern      = regexp.MustCompile(`[\x{4e00}-\x{9fff}]`)
	hiraganaPattern = regexp.MustCompile(`[\x{3040}-\x{309f}]`)
	katakanaPattern = regexp.MustCompile(`[\x{30a0}-\x{30ff}]`)

	// latinAddressPattern is the character repertoire the international
	// carrier's label printer accepts: ASCII plus Latin-1 and Latin
	// Extended-A letters and common punctuation.
	latinAddressPattern = regexp.MustCompile(`^[a-zA-Z0-9\s.,\-()/#&'"\x{00C0}-\x{00FF}\x{0100}-\x{017F}]*$`)
)

// ScreenRecipient checks whether an internationally-routed order can actually
// be labeled by the overseas carrier. It returns false with a human-readable
// reason when the recipient name or address would be rejected. The caller
// records the reason as a warning; screened-out orders stay in the run.
func ScreenRecipient(name, address string) (ok bool, reason string) {
	if ContainsHangul(name) {
		return false, fmt.Sprintf("recipient name %q contains Hangul", name)
	}
	if ContainsHangul(address) {
		return false, fmt.Sprintf("address %q contains Hangul", address)
	}
	if HasNonLatinScript(address) {
		return false, fmt.Sprintf("address %q contains CJK or kana characters", address)
	}
	if !latinAddressPattern.MatchString(address) {
		return false, fmt.Sprintf("address %q contains characters outside the label character set", address)
	}
	return true, ""
}

// HasNonLatinScript reports whether s contains CJK ideographs, hiragana or
// katakana.
func HasNonLatinScript(s string) bool {
	return cjkPattern.MatchString(s) || hiraganaPattern.MatchString(s) || katakanaPattern.MatchString(s)
}
