// Package fulfillment models a daily fulfillment run: the orders pulled from
// the storefronts, their classification into shipping buckets, and the
// manifest rows handed to the logistics partner.
package fulfillment

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noisycontents/fulfillment/internal/domain/catalog"
	"github.com/noisycontents/fulfillment/internal/domain/shipping"
)

var (
	// ErrUnknownSite is returned when a site identifier is not one of the
	// operated storefronts.
	ErrUnknownSite = errors.New("fulfillment: unknown site")
)

// Site identifies one of the two storefronts.
type Site string

const (
	SiteMini Site = "mini"
	SiteDok  Site = "dok"
)

// Prefix returns the single-letter site marker prepended to order numbers on
// tracking sheets.
func (s Site) Prefix() string {
	switch s {
	case SiteMini:
		return "S"
	case SiteDok:
		return "D"
	default:
		return ""
	}
}

// IsValid reports whether the site is one of the operated storefronts.
func (s Site) IsValid() bool {
	return s == SiteMini || s == SiteDok
}

// SiteFromPrefix resolves a tracking-sheet order-number prefix back to a site.
func SiteFromPrefix(p string) (Site, error) {
	switch p {
	case "S":
		return SiteMini, nil
	case "D":
		return SiteDok, nil
	default:
		return "", fmt.Errorf("%w: prefix %q", ErrUnknownSite, p)
	}
}

// Item is one line item of an order.
type Item struct {
	ProductID   int64
	Name        string
	SKU         catalog.SKU
	Quantity    int
	TotalAmount decimal.Decimal
	// Meta carries the line item's option metadata keyed by option name.
	Meta map[string]string
}

// Order is a storefront order flattened for fulfillment. One order produces
// one manifest row per line item.
type Order struct {
	ID             int64
	Site           Site
	Status         string
	CustomerID     int64
	Recipient      string
	Phone          string
	Email          string
	Note           string
	Address        shipping.Address
	DisplayAddress string
	Items          []Item
}

// Number renders the prefixed order number used on tracking sheets and
// manifests.
func (o Order) Number() string {
	return fmt.Sprintf("%s%d", o.Site.Prefix(), o.ID)
}

// TotalAmount sums the line item amounts of the order.
func (o Order) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.TotalAmount)
	}
	return total
}

// FullAddressText joins every address field into the text that the domestic
// detection runs against.
func (o Order) FullAddressText() string {
	a := o.Address
	return strings.TrimSpace(strings.Join([]string{
		a.Address1, a.Address2, a.City, a.State, a.Country, a.CountryCode,
	}, " "))
}

// poBoxPattern matches the Korean and Latin spellings of a post office box.
var poBoxPattern = regexp.MustCompile(`(?i)사서함|P\.O\.\s?Box|PO\s?Box`)

// ContainsPOBox reports whether the address text routes through a post office
// box, which the parcel carrier refuses.
func ContainsPOBox(text string) bool {
	return poBoxPattern.MatchString(text)
}

// UsesPOBox reports whether the order's shipping address routes through a
// post office box.
func (o Order) UsesPOBox() bool {
	text := o.DisplayAddress
	if text == "" {
		text = o.FullAddressText()
	}
	return ContainsPOBox(text)
}
