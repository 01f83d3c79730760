package fulfillment

import (
	"sort"
	"strconv"

	"github.com/noisycontents/fulfillment/internal/domain/catalog"
	"github.com/noisycontents/fulfillment/internal/domain/shipping"
)

// Channel names a manifest destination within a site.
type Channel string

const (
	ChannelDomestic      Channel = "domestic"
	ChannelInternational Channel = "international"
	ChannelPOBox         Channel = "pobox"
)

// ManifestRow is one line of the spreadsheet handed to the logistics
// partner. Field order mirrors the partner's fixed column layout.
type ManifestRow struct {
	OrderNumber string // 주문번호
	ProductName string // 상품명
	ItemCode    string // 품번코드
	MallCode    string // 쇼핑몰상품코드
	Quantity    string // 수량
	Recipient   string // 수령인명
	Phone1      string // 수령인연락처1
	Phone2      string // 수령인연락처2
	PostalCode  string // 우편번호
	Address     string // 배송지주소
	Message     string // 배송메세지
	TrackingNo  string // 송장번호
	CountryCode string // 국가코드
}

// ManifestHeader is the partner's fixed column order.
var ManifestHeader = []string{
	"주문번호", "상품명", "품번코드", "쇼핑몰상품코드", "수량",
	"수령인명", "수령인연락처1", "수령인연락처2", "우편번호",
	"배송지주소", "배송메세지", "송장번호", "국가코드",
}

// Columns renders the row in header order.
func (r ManifestRow) Columns() []string {
	return []string{
		r.OrderNumber, r.ProductName, r.ItemCode, r.MallCode, r.Quantity,
		r.Recipient, r.Phone1, r.Phone2, r.PostalCode,
		r.Address, r.Message, r.TrackingNo, r.CountryCode,
	}
}

// BuildRows flattens orders into manifest rows, one row per line item.
// Items carrying any bucket tag are skipped: tagged items never ship through
// a parcel manifest even when they share an order with plain physical items.
func BuildRows(orders []Order) []ManifestRow {
	var rows []ManifestRow
	for _, o := range orders {
		for _, it := range o.Items {
			if tagged(it.SKU.Tags) {
				continue
			}
			rows = append(rows, ManifestRow{
				OrderNumber: o.Number(),
				ProductName: it.Name,
				ItemCode:    it.SKU.Clean,
				MallCode:    it.SKU.Raw,
				Quantity:    strconv.Itoa(it.Quantity),
				Recipient:   o.Recipient,
				Phone1:      o.Phone,
				Phone2:      o.Phone,
				PostalCode:  o.Address.PostalCode,
				Address:     o.DisplayAddress,
				Message:     o.Note,
				CountryCode: o.Address.CountryCode,
			})
		}
	}
	return rows
}

func tagged(t catalog.Tags) bool {
	return t.Digital || t.B2B || t.Reservation
}

// PrepareDomestic rewrites rows for the parcel carrier: leftover Korea
// markers are stripped from the address and rows are sorted by order number.
func PrepareDomestic(rows []ManifestRow) []ManifestRow {
	out := make([]ManifestRow, len(rows))
	copy(out, rows)
	for i := range out {
		out[i].Address = shipping.StripDomesticCountryMarkers(out[i].Address)
		out[i].CountryCode = ""
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OrderNumber < out[j].OrderNumber
	})
	return out
}

// PrepareInternational rewrites rows for the overseas postal channel: the
// second phone column carries the recipient email for customs contact, the
// delivery message column is emptied (the channel has no courier note), and
// rows are sorted by order number for the post office intake desk.
func PrepareInternational(rows []ManifestRow, emailByOrder map[string]string) []ManifestRow {
	out := make([]ManifestRow, len(rows))
	copy(out, rows)
	for i := range out {
		out[i].Phone2 = emailByOrder[out[i].OrderNumber]
		out[i].Message = ""
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OrderNumber < out[j].OrderNumber
	})
	return out
}

// MergeRows appends new rows after existing ones. Duplicate suppression is
// not done here: bucket membership is mutually exclusive upstream and each
// site/channel pair runs once per day.
func MergeRows(existing, added []ManifestRow) []ManifestRow {
	merged := make([]ManifestRow, 0, len(existing)+len(added))
	merged = append(merged, existing...)
	merged = append(merged, added...)
	return merged
}

// TextColumns are the manifest columns that spreadsheet software must keep
// as literal text so leading zeros in phone numbers and postal codes survive.
var TextColumns = []string{"수량", "수령인연락처1", "수령인연락처2", "우편번호"}

// SplitPOBox separates rows whose delivery address routes through a post
// office box. Those ship via the postal desk instead of the parcel carrier.
func SplitPOBox(rows []ManifestRow) (parcel, poBox []ManifestRow) {
	for _, r := range rows {
		if ContainsPOBox(r.Address) {
			poBox = append(poBox, r)
			continue
		}
		parcel = append(parcel, r)
	}
	return parcel, poBox
}
