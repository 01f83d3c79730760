package fulfillment

import (
	"fmt"

	"github.com/noisycontents/fulfillment/internal/domain/shipping"
)

// Buckets is the outcome of partitioning a day's completed orders.
// Reservation orders are extracted before the remaining orders are split, so
// an order never appears in more than one shipping bucket.
type Buckets struct {
	// Reservation holds orders whose every item is reservation stock.
	Reservation []Order
	// Domestic ships through the parcel carrier.
	Domestic []Order
	// International ships through the overseas postal channel.
	International []Order
	// PureDigital needs no shipment at all.
	PureDigital []Order
	// B2B is invoiced and shipped out of band by the wholesale desk.
	B2B []Order
	// ManualReview holds non-domestic orders the overseas carrier would
	// reject, usually for a non-Latin recipient name or address. They are
	// surfaced in the run report instead of being shipped.
	ManualReview []Order
	// Warnings explains each manual-review routing.
	Warnings []string
}

// Partition classifies completed orders into shipping buckets.
//
// Reservation orders are pulled out first. The rest split on the address:
// anything that looks Korean ships domestically, and an order only ships
// internationally when it carries a usable non-Korean address and is neither
// wholesale nor digital. Recipient screening never drops an order, it only
// records a warning.
func Partition(orders []Order) Buckets {
	var b Buckets

	remaining := make([]Order, 0, len(orders))
	for _, o := range orders {
		if isReservationOnly(o) {
			b.Reservation = append(b.Reservation, o)
			continue
		}
		remaining = append(remaining, o)
	}

	for _, o := range remaining {
		if containsDigital(o) && !isPureDigitalOrder(o) && !isB2B(o) {
			// The digital items ship nothing and get no automatic status
			// change; someone has to complete them by hand.
			b.Warnings = append(b.Warnings, fmt.Sprintf("order %s mixes digital and physical items, its digital items need manual completion", o.Number()))
		}
		switch {
		case isB2B(o):
			b.B2B = append(b.B2B, o)
		case isPureDigitalOrder(o):
			b.PureDigital = append(b.PureDigital, o)
		case isForeignAddress(o):
			if ok, reason := screenForOverseas(o); !ok {
				b.ManualReview = append(b.ManualReview, o)
				b.Warnings = append(b.Warnings, fmt.Sprintf("order %s needs manual handling: %s", o.Number(), reason))
				continue
			}
			b.International = append(b.International, o)
		default:
			b.Domestic = append(b.Domestic, o)
		}
	}

	return b
}

// isReservationOnly applies the purity gate for the reservation bucket: at
// least one reservation item, and no digital or plain physical item that
// would force the order to ship now.
func isReservationOnly(o Order) bool {
	hasReservation := false
	for _, it := range o.Items {
		tags := it.SKU.Tags
		switch {
		case tags.Reservation:
			hasReservation = true
		case tags.Digital:
			return false
		case !tags.B2B:
			// A plain physical item.
			return false
		}
	}
	return hasReservation
}

// isPureDigitalOrder applies the purity gate for the digital bucket: at
// least one digital item and no physical item mixed in.
func isPureDigitalOrder(o Order) bool {
	hasDigital := false
	for _, it := range o.Items {
		tags := it.SKU.Tags
		if tags.Digital {
			hasDigital = true
			continue
		}
		if !tags.B2B && !tags.Reservation {
			return false
		}
	}
	return hasDigital
}

// containsDigital reports whether any line item carries the digital tag.
func containsDigital(o Order) bool {
	for _, it := range o.Items {
		if it.SKU.Tags.Digital {
			return true
		}
	}
	return false
}

// isB2B routes an order to the wholesale desk when any item carries the
// wholesale tag. There is deliberately no purity gate here: mixed wholesale
// orders are rare and the desk reconciles them by hand.
func isB2B(o Order) bool {
	for _, it := range o.Items {
		if it.SKU.Tags.B2B {
			return true
		}
	}
	return false
}

// isForeignAddress decides whether the order points outside Korea. The
// address is re-checked for Korean markers even though upstream normalization
// should already have routed those orders domestically.
func isForeignAddress(o Order) bool {
	addr := o.shippingText()
	return addr != "" && !shipping.IsDomestic(addr)
}

// screenForOverseas applies the carrier's name and address compliance checks.
func screenForOverseas(o Order) (bool, string) {
	return shipping.ScreenRecipient(o.Recipient, o.shippingText())
}

func (o Order) shippingText() string {
	if o.DisplayAddress != "" {
		return o.DisplayAddress
	}
	return o.FullAddressText()
}
