// Package tracking syncs the logistics partner's tracking sheets back into the
// storefronts: discover the day's sheets on the shared drive, reconcile their
// rows into an update batch, and write the tracking numbers per site.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noisycontents/fulfillment/internal/domain/fulfillment"
	"github.com/noisycontents/fulfillment/internal/domain/storefront"
	"github.com/noisycontents/fulfillment/internal/domain/tracking"
	"github.com/noisycontents/fulfillment/internal/infrastructure/sheets"
)

// ErrNoSheets is returned when the partner has not uploaded any tracking
// sheet for the day yet.
var ErrNoSheets = errors.New("tracking: no sheets found for day")

// SheetSource discovers and reads the partner's tracking sheets.
type SheetSource interface {
	FindTrackingSheets(ctx context.Context, day time.Time) ([]sheets.TrackingSheet, error)
	ReadRows(ctx context.Context, sheet sheets.TrackingSheet) ([]tracking.SheetRow, error)
}

// Report summarizes one tracking sync.
type Report struct {
	Day      time.Time
	Sheets   []string
	RowsRead int
	Skipped  []string
	Updated  map[fulfillment.Site]int
	Errors   []string
}

// Summary renders the human-readable sync report.
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "송장번호 동기화 결과 (%s)\n", r.Day.Format("2006-01-02"))
	fmt.Fprintf(&b, "시트 %d개, 행 %d건 읽음\n\n", len(r.Sheets), r.RowsRead)
	for _, site := range []fulfillment.Site{fulfillment.SiteDok, fulfillment.SiteMini} {
		fmt.Fprintf(&b, "[%s] 송장 등록: %d건\n", site, r.Updated[site])
	}
	if len(r.Skipped) > 0 {
		fmt.Fprintf(&b, "\n건너뛴 행 %d건:\n", len(r.Skipped))
		for _, s := range r.Skipped {
			fmt.Fprintf(&b, "  - %s\n", s)
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

// Service runs the tracking sync.
type Service struct {
	source SheetSource
	sites  map[fulfillment.Site]storefront.API
	logger *zap.Logger
}

// NewService wires the sync. Sites without an API instance are reported as
// errors when a sheet references them.
func NewService(source SheetSource, apis []storefront.API, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	sites := make(map[fulfillment.Site]storefront.API, len(apis))
	for _, api := range apis {
		sites[api.Site()] = api
	}
	return &Service{source: source, sites: sites, logger: logger}
}

// Sync reads every tracking sheet uploaded for the day and writes the
// reconciled tracking numbers back to the storefronts. ErrNoSheets is
// returned when the partner has not uploaded anything yet, so the caller can
// retry later; sheet read and write failures accumulate on the report.
func (s *Service) Sync(ctx context.Context, day time.Time) (*Report, error) {
	found, err := s.source.FindTrackingSheets(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("tracking: sheet discovery failed: %w", err)
	}
	if len(found) == 0 {
		return nil, ErrNoSheets
	}

	report := &Report{Day: day, Updated: make(map[fulfillment.Site]int)}

	var rows []tracking.SheetRow
	for _, sheet := range found {
		report.Sheets = append(report.Sheets, sheet.Name)
		sheetRows, err := s.source.ReadRows(ctx, sheet)
		if err != nil {
			if errors.Is(err, sheets.ErrNoSheetData) {
				s.logger.Info("sheet has no data rows", zap.String("sheet", sheet.Name))
				continue
			}
			report.Errors = append(report.Errors, fmt.Sprintf("시트 %s 읽기 실패: %v", sheet.Name, err))
			continue
		}
		rows = append(rows, sheetRows...)
	}
	report.RowsRead = len(rows)

	batch := tracking.BuildUpdateBatch(rows, func(reason string) {
		report.Skipped = append(report.Skipped, reason)
	})

	for site, updates := range s.groupUpdates(batch, report) {
		api, ok := s.sites[site]
		if !ok {
			report.Errors = append(report.Errors, fmt.Sprintf("%s 사이트 미설정, 송장 %d건 미반영", site, len(updates)))
			continue
		}
		confirmed, err := api.BatchUpdateTracking(ctx, updates)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s 송장 등록 실패: %v", site, err))
			continue
		}
		if len(confirmed) < len(updates) {
			report.Errors = append(report.Errors, fmt.Sprintf("%s 송장 %d건 중 %d건만 반영", site, len(updates), len(confirmed)))
		}
		report.Updated[site] += len(confirmed)
		s.logger.Info("tracking numbers written",
			zap.String("site", string(site)),
			zap.Int("count", len(confirmed)))
	}

	return report, nil
}

// groupUpdates converts the reconciled batch into per-site storefront writes.
// Records whose order id is not numeric go to the skipped list.
func (s *Service) groupUpdates(batch []tracking.Record, report *Report) map[fulfillment.Site][]storefront.TrackingUpdate {
	now := time.Now()
	grouped := make(map[fulfillment.Site][]storefront.TrackingUpdate)
	for _, rec := range batch {
		orderID, err := strconv.ParseInt(rec.OrderID, 10, 64)
		if err != nil {
			report.Skipped = append(report.Skipped, fmt.Sprintf("non-numeric order id %q", rec.OrderID))
			continue
		}
		grouped[rec.Site] = append(grouped[rec.Site], storefront.TrackingUpdate{
			OrderID:        orderID,
			TrackingNumber: rec.TrackingNumber,
			CarrierCode:    rec.CarrierCode,
			CarrierName:    rec.CarrierName,
			RegisteredAt:   now,
		})
	}
	return grouped
}
