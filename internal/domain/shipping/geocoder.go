package shipping

import (
	"context"
	"strings"
)

// GeocodeComponents are the structured pieces a geocoding provider resolves
// from a free-form address.
type GeocodeComponents struct {
	StreetNumber string
	Route        string
	Subpremise   string
	Locality     string
	PostalCode   string
	Country      string
	CountryCode  string
}

// GeocodeResult is a successful provider lookup.
type GeocodeResult struct {
	// Formatted is the provider's canonical rendering of the address.
	Formatted  string
	Components GeocodeComponents
}

// Geocoder resolves free-form addresses into structured components.
// Implementations return a nil result (and nil error) when the provider has
// no match; errors are reserved for transport failures.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*GeocodeResult, error)
}

// NormalizeViaGeocoder cleans an international address through the provider.
// Addresses the provider resolves to Korea come back unchanged except for
// whitespace cleanup, together with the KR country code so the caller can
// re-route the order domestically. Lookup failures fall back to the input.
func NormalizeViaGeocoder(ctx context.Context, g Geocoder, address string) (normalized, countryCode string, err error) {
	cleaned := whitespacePattern.ReplaceAllString(strings.TrimSpace(address), " ")
	res, err := g.Geocode(ctx, cleaned)
	if err != nil {
		return cleaned, "", err
	}
	if res == nil {
		return cleaned, "", nil
	}
	if res.Components.CountryCode == "KR" {
		return cleaned, "KR", nil
	}
	return ReconstructAddress(cleaned, res.Components), res.Components.CountryCode, nil
}

// ReconstructAddress rebuilds the address from the resolved components while
// preserving the parts of the original the provider did not recognize.
// Original comma-separated parts that match a resolved component are replaced
// by the canonical rendering; unmatched parts keep their position ahead of
// the appended canonical tail.
func ReconstructAddress(original string, c GeocodeComponents) string {
	canonical := canonicalParts(c)

	var kept []string
	for _, part := range strings.Split(original, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !matchesAnyComponent(part, c) {
			kept = append(kept, part)
		}
	}

	parts := append(kept, canonical...)
	if len(parts) == 0 {
		return original
	}
	return strings.Join(parts, ", ")
}

// canonicalParts renders the resolved components in postal order.
func canonicalParts(c GeocodeComponents) []string {
	var parts []string
	if c.Route != "" {
		street := c.Route
		if c.StreetNumber != "" {
			street += " " + c.StreetNumber
		}
		parts = append(parts, street)
	}
	if c.Subpremise != "" {
		parts = append(parts, "Room "+c.Subpremise)
	}
	switch {
	case c.PostalCode != "" && c.Locality != "":
		parts = append(parts, c.PostalCode+" "+c.Locality)
	case c.Locality != "":
		parts = append(parts, c.Locality)
	}
	if c.Country != "" {
		parts = append(parts, strings.ToUpper(c.Country))
	}
	return parts
}

// matchesAnyComponent reports whether an original address part corresponds to
// one of the resolved components and should be replaced by its canonical
// rendering. The street comparison is deliberately loose because customers
// abbreviate or reorder it; locality, country and postal code must actually
// appear inside the part.
func matchesAnyComponent(part string, c GeocodeComponents) bool {
	lower := strings.ToLower(part)

	street := c.Route
	if c.Route != "" && c.StreetNumber != "" {
		street = c.Route + " " + c.StreetNumber
	}
	if street != "" && looseMatch(lower, strings.ToLower(street)) {
		return true
	}
	if c.Route != "" && looseMatch(lower, strings.ToLower(c.Route)) {
		return true
	}
	if c.Locality != "" && strings.Contains(lower, strings.ToLower(c.Locality)) {
		return true
	}
	if c.Country != "" && strings.Contains(lower, strings.ToLower(c.Country)) {
		return true
	}
	if c.PostalCode != "" && strings.Contains(part, c.PostalCode) {
		return true
	}
	return false
}

// looseMatch tolerates abbreviation in either direction: one string
// containing the other counts, as does sharing any word longer than three
// characters. Both inputs are already lower-cased.
func looseMatch(part, comp string) bool {
	if strings.Contains(part, comp) || strings.Contains(comp, part) {
		return true
	}
	for _, w := range strings.Fields(comp) {
		if len(w) > 3 && strings.Contains(part, w) {
			return true
		}
	}
	return false
}
