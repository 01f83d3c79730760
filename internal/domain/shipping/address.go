// Package shipping holds the address normalization and recipient screening
// rules that decide whether an order ships through the domestic carrier or
// the international postal channel.
package shipping

import (
	"regexp"
	"strings"
)

// Address carries the raw shipping fields of an order as the storefront
// delivered them.
type Address struct {
	Address1    string
	Address2    string
	City        string
	State       string
	PostalCode  string
	Country     string
	CountryCode string
}

var (
	hangulPattern     = regexp.MustCompile(`[가-힣]`)
	krWordPattern     = regexp.MustCompile(`(?i)\bKR\b`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// koreaKeywords are the country spellings that mark an address as domestic.
// Matching is case-insensitive for the latin entries.
var koreaKeywords = []string{"KOREA", "SOUTH KOREA", "대한민국", "한국"}

// ContainsHangul reports whether s contains at least one Hangul syllable.
func ContainsHangul(s string) bool {
	return hangulPattern.MatchString(s)
}

// IsDomestic reports whether the combined address text points at a Korean
// destination. Any Hangul, a standalone KR token, or a known spelling of
// Korea anywhere in the text is enough.
func IsDomestic(full string) bool {
	if ContainsHangul(full) {
		return true
	}
	if krWordPattern.MatchString(full) {
		return true
	}
	upper := strings.ToUpper(full)
	for _, kw := range koreaKeywords {
		if strings.Contains(upper, strings.ToUpper(kw)) {
			return true
		}
	}
	return false
}

// isKoreaCountry reports whether the country field itself names Korea. The
// storefront usually sends the ISO code, so "KR" is part of the set.
func isKoreaCountry(country string) bool {
	c := strings.ToUpper(strings.TrimSpace(country))
	for _, kw := range append([]string{"KR"}, koreaKeywords...) {
		if c == strings.ToUpper(kw) {
			return true
		}
	}
	return false
}

// koreanOrderMarkers are administrative suffixes that indicate the state
// field is written in Korean form, so regions lead the display address.
var koreanOrderMarkers = []string{"도", "시", "특별시", "광역시"}

// BuildDisplayAddress folds the structured address fields into the single
// line printed on manifests. Region tokens are deduplicated: a region equal
// to or contained in another region is dropped, and the country is omitted
// for domestic destinations. Korean-style addresses lead with the regions,
// everything else leads with the street.
func BuildDisplayAddress(a Address) string {
	street := strings.TrimSpace(strings.TrimSpace(a.Address1) + " " + strings.TrimSpace(a.Address2))

	regions := dedupeRegions(a)

	var parts []string
	if koreanOrdering(a) {
		parts = append(parts, regions...)
		if street != "" {
			parts = append(parts, street)
		}
	} else {
		if street != "" {
			parts = append(parts, street)
		}
		parts = append(parts, regions...)
	}

	return collapseRepeats(whitespacePattern.ReplaceAllString(strings.Join(parts, " "), " "))
}

// dedupeRegions assembles state, city and country into a token list with
// duplicates removed. The city is skipped when it repeats the state, the
// country is skipped for Korea, and any token that appears inside another
// token is dropped.
func dedupeRegions(a Address) []string {
	var candidates []string
	state := strings.TrimSpace(a.State)
	city := strings.TrimSpace(a.City)
	country := strings.TrimSpace(a.Country)

	if state != "" {
		candidates = append(candidates, state)
	}
	if city != "" && !strings.EqualFold(city, state) {
		candidates = append(candidates, city)
	}
	if country != "" && !isKoreaCountry(country) {
		candidates = append(candidates, country)
	}

	var kept []string
	for _, c := range candidates {
		contained := false
		for _, other := range candidates {
			if c != other && strings.Contains(other, c) {
				contained = true
				break
			}
		}
		if !contained {
			kept = append(kept, c)
		}
	}
	return kept
}

// koreanOrdering reports whether the address should print regions first.
func koreanOrdering(a Address) bool {
	state := strings.TrimSpace(a.State)
	for _, m := range koreanOrderMarkers {
		if strings.Contains(state, m) {
			return true
		}
	}
	return isKoreaCountry(a.Country)
}

// collapseRepeats removes a word that immediately repeats itself, which
// happens when the storefront copies the same region into two fields.
func collapseRepeats(s string) string {
	words := strings.Fields(s)
	var out []string
	for _, w := range words {
		if len(out) > 0 && out[len(out)-1] == w {
			continue
		}
		out = append(out, w)
	}
	return strings.Join(out, " ")
}

var (
	danglingCommaPattern = regexp.MustCompile(`,\s*,`)
	trailingCommaPattern = regexp.MustCompile(`\s+,`)

	// Latin markers match on word boundaries so "Koreatown" survives; the
	// Hangul country names have no word boundaries to anchor on and are
	// matched literally.
	latinKoreaPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bKR\b`),
		regexp.MustCompile(`(?i)\bSOUTH KOREA\b`),
		regexp.MustCompile(`(?i)\bKOREA\b`),
	}
)

// StripDomesticCountryMarkers removes Korea markers from an address that the
// geocoder re-identified as domestic, then repairs the punctuation the
// removal leaves behind.
func StripDomesticCountryMarkers(s string) string {
	out := s
	for _, p := range latinKoreaPatterns {
		out = p.ReplaceAllString(out, "")
	}
	for _, kw := range []string{"대한민국", "한국"} {
		out = strings.ReplaceAll(out, kw, "")
	}
	out = danglingCommaPattern.ReplaceAllString(out, ",")
	out = trailingCommaPattern.ReplaceAllString(out, ",")
	out = strings.Trim(out, " ,")
	return whitespacePattern.ReplaceAllString(out, " ")
}
