// Package catalog contains the SKU vocabulary shared by both storefronts and
// the classification rules that turn a raw SKU string into fulfillment signals.
package catalog

import (
	"regexp"
	"strings"
)

// Bracket tags embedded in storefront SKUs. The tag vocabulary is owned by the
// merchandising team; tags may appear anywhere inside a SKU component.
const (
	TagDigital     = "[디지털]"
	TagB2B         = "[B2B]"
	TagReservation = "[예약상품]"
)

// physicalBundleThreshold is the number of non-digital components at which a
// composite SKU ending in the digital tag is treated as a physical package
// with a digital bonus rather than a purely digital product.
const physicalBundleThreshold = 3

// Tags holds the fulfillment signals carried by a SKU.
type Tags struct {
	// Digital is true if any component of the raw SKU carries the digital tag.
	Digital bool
	// B2B is true if any component carries the wholesale tag.
	B2B bool
	// Reservation is true if any component carries the reservation tag.
	Reservation bool
	// PureDigital is true only for SKUs that represent a digital-only product,
	// as opposed to a physical bundle that includes a digital bonus component.
	PureDigital bool
}

// SKU is the classified form of a raw storefront SKU string.
type SKU struct {
	// Raw is the SKU exactly as the storefront sent it.
	Raw string
	// Status is the substring before the first hyphen, bracket tags preserved.
	// Every bucket-membership test downstream runs against this value.
	Status string
	// Clean is Status with all bracket tags removed and whitespace trimmed.
	// Used only for product-name lookup and display.
	Clean string
	// Tags are the fulfillment signals extracted from the full raw SKU.
	Tags Tags
}

// Classify parses a raw SKU string into its status form, display form and tags.
// Composite SKUs (components joined by "/") carry a tag if any component does.
func Classify(raw string) SKU {
	status := raw
	if i := strings.Index(raw, "-"); i >= 0 {
		status = raw[:i]
	}

	sku := SKU{
		Raw:    raw,
		Status: status,
		Clean:  stripBracketTags(status),
	}

	for _, comp := range splitComponents(raw) {
		if strings.Contains(comp, TagDigital) {
			sku.Tags.Digital = true
		}
		if strings.Contains(comp, TagB2B) {
			sku.Tags.B2B = true
		}
		if strings.Contains(comp, TagReservation) {
			sku.Tags.Reservation = true
		}
	}
	sku.Tags.PureDigital = isPureDigital(raw)

	return sku
}

// splitComponents tokenizes a composite SKU on "/". A SKU without a separator
// yields a single component.
func splitComponents(raw string) []string {
	return strings.Split(raw, "/")
}

var bracketTagPattern = regexp.MustCompile(`\[.*?\]`)

// stripBracketTags removes every bracket-delimited tag and trims the result.
func stripBracketTags(s string) string {
	return strings.TrimSpace(bracketTagPattern.ReplaceAllString(s, ""))
}

// isPureDigital reports whether the SKU represents a digital-only product.
// A composite SKU ending in the digital tag still counts as a physical bundle
// when three or more of its components are not digital themselves.
func isPureDigital(raw string) bool {
	if !strings.HasSuffix(raw, TagDigital) {
		return false
	}
	if !strings.Contains(raw, "/") {
		return true
	}
	physical := 0
	for _, comp := range splitComponents(raw) {
		if !strings.HasSuffix(comp, TagDigital) {
			physical++
		}
	}
	return physical < physicalBundleThreshold
}
