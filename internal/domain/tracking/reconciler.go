// Package tracking turns the logistics partner's daily tracking sheets into
// storefront update batches.
package tracking

import (
	"errors"
	"regexp"
	"strings"

	"github.com/noisycontents/fulfillment/internal/domain/fulfillment"
	"github.com/noisycontents/fulfillment/internal/domain/shipping"
)

// ErrNoSitePrefix is returned for sheet order numbers that do not start with
// a recognized site marker.
var ErrNoSitePrefix = errors.New("tracking: order number has no site prefix")

// Record is one reconciled tracking entry ready for the storefront write.
type Record struct {
	Site           fulfillment.Site
	OrderID        string
	TrackingNumber string
	CarrierCode    string
	CarrierName    string
	International  bool
}

// SheetRow is a raw row read from a partner tracking sheet, already mapped
// to canonical column names.
type SheetRow struct {
	OrderNumber    string
	TrackingNumber string
	Recipient      string
	Address        string
	CountryCode    string
}

// ParseOrderNumber recovers (site, clean order id) from a prefixed sheet
// order number. The prefix letter alone decides the site; a hyphen suffix
// added by the partner for split shipments is cut off.
func ParseOrderNumber(raw string) (fulfillment.Site, string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", ErrNoSitePrefix
	}
	site, err := fulfillment.SiteFromPrefix(strings.ToUpper(raw[:1]))
	if err != nil {
		return "", "", ErrNoSitePrefix
	}
	id := raw[1:]
	if i := strings.Index(id, "-"); i >= 0 {
		id = id[:i]
	}
	return site, id, nil
}

// overseasKeywords mark an address as international when the sheet carries
// no country code.
var overseasKeywords = []string{
	"USA", "UNITED STATES", "AMERICA", "US",
	"JAPAN", "TOKYO", "OSAKA", "JP",
	"CHINA", "BEIJING", "SHANGHAI", "CN",
	"SINGAPORE", "SG", "TAIWAN", "TW",
	"HONG KONG", "HK", "VIETNAM", "VN",
}

var latinOnlyPattern = regexp.MustCompile(`^[a-zA-Z0-9\s.,\-()/#&']+$`)

// ClassifyShipment decides whether a sheet row describes an international
// shipment. An explicit country code wins; otherwise known overseas place
// names are matched, and as a last resort a sufficiently long latin-only
// address with no Hangul is assumed to be foreign.
func ClassifyShipment(row SheetRow) bool {
	if code := strings.ToUpper(strings.TrimSpace(row.CountryCode)); code != "" {
		return code != "KR"
	}
	upper := strings.ToUpper(row.Address)
	for _, kw := range overseasKeywords {
		if containsWord(upper, kw) {
			return true
		}
	}
	addr := strings.TrimSpace(row.Address)
	if len(addr) > 10 && !shipping.ContainsHangul(addr) && latinOnlyPattern.MatchString(addr) {
		return true
	}
	return false
}

// containsWord matches kw on word boundaries so "US" does not fire inside
// "BUSAN".
func containsWord(upper, kw string) bool {
	idx := 0
	for {
		i := strings.Index(upper[idx:], kw)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(kw)
		beforeOK := start == 0 || !isWordChar(upper[start-1])
		afterOK := end == len(upper) || !isWordChar(upper[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(b byte) bool {
	return b >= 'A' && b <= 'Z' || b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}

// CarrierFor returns the carrier code and display name for a shipment type.
func CarrierFor(international bool) (code, name string) {
	if international {
		return "EMS", "EMS"
	}
	return "CJGLS", "대한통운"
}

// BuildUpdateBatch reconciles sheet rows into a deduplicated update batch.
// Rows without an order or tracking number are skipped (the skip callback
// receives the reason), and when the partner lists the same order twice the
// row later in the sheet wins.
func BuildUpdateBatch(rows []SheetRow, skip func(reason string)) []Record {
	type key struct {
		site fulfillment.Site
		id   string
	}
	index := make(map[key]int)
	var batch []Record

	for _, row := range rows {
		if strings.TrimSpace(row.OrderNumber) == "" || strings.TrimSpace(row.TrackingNumber) == "" {
			if skip != nil {
				skip("row missing order or tracking number")
			}
			continue
		}
		site, id, err := ParseOrderNumber(row.OrderNumber)
		if err != nil {
			if skip != nil {
				skip("unrecognized order number " + row.OrderNumber)
			}
			continue
		}
		intl := ClassifyShipment(row)
		code, name := CarrierFor(intl)
		rec := Record{
			Site:           site,
			OrderID:        id,
			TrackingNumber: strings.TrimSpace(row.TrackingNumber),
			CarrierCode:    code,
			CarrierName:    name,
			International:  intl,
		}
		k := key{site, id}
		if i, ok := index[k]; ok {
			batch[i] = rec
			continue
		}
		index[k] = len(batch)
		batch = append(batch, rec)
	}
	return batch
}
