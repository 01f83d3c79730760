package fulfillment

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RunResult accumulates what happened during one daily run. It is created at
// run start, threaded explicitly through every stage, and rendered once at
// the end for the result mail. Single-goroutine by contract.
type RunResult struct {
	StartedAt time.Time

	DomesticRows      map[Site]int
	InternationalRows map[Site]int
	POBoxRows         map[Site]int
	DigitalUpdated    map[Site]int
	ReservationMoved  map[Site]int
	B2BUpdated        map[Site]int
	// ShippedAmount is the order-amount total behind each site's manifests.
	ShippedAmount map[Site]decimal.Decimal
	FriendOrders  int

	Warnings []string
	Errors   []string
}

// NewRunResult returns an empty accumulator stamped with the run start time.
func NewRunResult(now time.Time) *RunResult {
	return &RunResult{
		StartedAt:         now,
		DomesticRows:      make(map[Site]int),
		InternationalRows: make(map[Site]int),
		POBoxRows:         make(map[Site]int),
		DigitalUpdated:    make(map[Site]int),
		ReservationMoved:  make(map[Site]int),
		B2BUpdated:        make(map[Site]int),
		ShippedAmount:     make(map[Site]decimal.Decimal),
	}
}

// AddShipped accumulates the order amounts behind a site's manifest rows.
func (r *RunResult) AddShipped(site Site, orders []Order) {
	total := r.ShippedAmount[site]
	for _, o := range orders {
		total = total.Add(o.TotalAmount())
	}
	r.ShippedAmount[site] = total
}

// Warnf records a non-fatal finding.
func (r *RunResult) Warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Errorf records a stage failure. The run continues; failures surface in the
// result mail.
func (r *RunResult) Errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// HasErrors reports whether any stage failed.
func (r *RunResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Summary renders the human-readable run report sent by mail.
func (r *RunResult) Summary(now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "주문 처리 결과 (%s)\n", r.StartedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "소요 시간: %s\n\n", now.Sub(r.StartedAt).Round(time.Second))

	for _, site := range []Site{SiteDok, SiteMini} {
		fmt.Fprintf(&b, "[%s]\n", site)
		fmt.Fprintf(&b, "  국내 배송: %d건\n", r.DomesticRows[site])
		fmt.Fprintf(&b, "  해외 배송: %d건\n", r.InternationalRows[site])
		fmt.Fprintf(&b, "  사서함 배송: %d건\n", r.POBoxRows[site])
		fmt.Fprintf(&b, "  디지털 발송 완료: %d건\n", r.DigitalUpdated[site])
		fmt.Fprintf(&b, "  예약상품 대기 전환: %d건\n", r.ReservationMoved[site])
		fmt.Fprintf(&b, "  B2B 처리: %d건\n", r.B2BUpdated[site])
		fmt.Fprintf(&b, "  발송 금액: %s원\n", r.ShippedAmount[site].StringFixed(0))
	}
	fmt.Fprintf(&b, "\n스타터팩 친구 주문 생성: %d건\n", r.FriendOrders)

	if len(r.Warnings) > 0 {
		fmt.Fprintf(&b, "\n경고 %d건:\n", len(r.Warnings))
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "  - %s\n", w)
		}
	}
	if len(r.Errors) > 0 {
		fmt.Fprintf(&b, "\n오류 %d건:\n", len(r.Errors))
		for _, e := range r.Errors {
			fmt.Fprintf(&b, "  - %s\n", e)
		}
	}
	return b.String()
}
