// Package fulfillment orchestrates the daily run: pull completed orders from
// both storefronts, split them into shipping buckets, write the partner
// manifests, push status changes back, and mail the results.
package fulfillment

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noisycontents/fulfillment/internal/domain/fulfillment"
	"github.com/noisycontents/fulfillment/internal/domain/shipping"
	"github.com/noisycontents/fulfillment/internal/domain/storefront"
)

// Calendar gates the run on Korean rest days and derives the order window.
type Calendar interface {
	ShouldSkip(ctx context.Context, now time.Time) (bool, string)
	OrderWindow(ctx context.Context, now time.Time) (start, end time.Time)
}

// ManifestStore persists the partner manifest spreadsheets.
type ManifestStore interface {
	DomesticPath(site fulfillment.Site, day time.Time) string
	InternationalPath(day time.Time) string
	POBoxPath(day time.Time) string
	Write(path string, rows []fulfillment.ManifestRow) error
	Append(path string, rows []fulfillment.ManifestRow) error
	CollectDaily(day time.Time) []string
}

// Mailer delivers the manifest mail and the run report.
type Mailer interface {
	SendManifests(ctx context.Context, now time.Time, files []string) error
	SendResult(ctx context.Context, now time.Time, summary string, poBoxFile string) error
}

// Backup archives the day's manifest files after they were mailed.
type Backup interface {
	BackupFiles(ctx context.Context, day time.Time, filePaths []string) ([]string, error)
}

// ProductNameSource supplies the item-code to display-name catalog used to
// override line item names on manifests.
type ProductNameSource interface {
	Fetch(ctx context.Context) (map[string]string, error)
}

// PromotionRunner creates promotional follow-up orders before the shipping
// stages run.
type PromotionRunner interface {
	Process(ctx context.Context, from, to time.Time, result *fulfillment.RunResult) error
}

// Service runs the daily fulfillment pipeline.
type Service struct {
	sites     []storefront.API
	calendar  Calendar
	geocoder  shipping.Geocoder
	store     ManifestStore
	mailer    Mailer
	backup    Backup
	names     ProductNameSource
	promotion PromotionRunner
	logger    *zap.Logger

	// now is swapped out in tests.
	now func() time.Time
}

// NewService wires the pipeline. The sites slice is processed in order;
// geocoder, backup, names and promotion may be nil when the concern is not
// configured.
func NewService(
	sites []storefront.API,
	calendar Calendar,
	geocoder shipping.Geocoder,
	store ManifestStore,
	mailer Mailer,
	backup Backup,
	names ProductNameSource,
	promotion PromotionRunner,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		sites:     sites,
		calendar:  calendar,
		geocoder:  geocoder,
		store:     store,
		mailer:    mailer,
		backup:    backup,
		names:     names,
		promotion: promotion,
		logger:    logger,
		now:       time.Now,
	}
}

// Run executes one daily run. On rest days it returns (nil, nil) without
// doing anything. Stage failures are accumulated on the returned result
// instead of aborting the run; only a skipped run yields a nil result.
func (s *Service) Run(ctx context.Context) (*fulfillment.RunResult, error) {
	now := s.now()

	if skip, reason := s.calendar.ShouldSkip(ctx, now); skip {
		s.logger.Info("skipping run", zap.String("reason", reason))
		return nil, nil
	}

	from, to := s.calendar.OrderWindow(ctx, now)
	result := fulfillment.NewRunResult(now)
	s.logger.Info("starting run",
		zap.Time("window_start", from),
		zap.Time("window_end", to))

	names := s.fetchProductNames(ctx, result)

	if s.promotion != nil {
		if err := s.promotion.Process(ctx, from, to, result); err != nil {
			result.Errorf("스타터팩 친구 주문 처리 실패: %v", err)
		}
	}

	for _, api := range s.sites {
		s.processSite(ctx, api, now, from, to, names, result)
	}

	s.deliver(ctx, now, result)
	return result, nil
}

// fetchProductNames loads the display-name catalog; the run continues with
// the storefront names when the catalog is unavailable.
func (s *Service) fetchProductNames(ctx context.Context, result *fulfillment.RunResult) map[string]string {
	if s.names == nil {
		return nil
	}
	names, err := s.names.Fetch(ctx)
	if err != nil {
		result.Warnf("상품명 카탈로그 조회 실패, 쇼핑몰 상품명 사용: %v", err)
		s.logger.Warn("product name catalog unavailable", zap.Error(err))
		return nil
	}
	return names
}

// processSite runs the shipping stages for one storefront.
func (s *Service) processSite(ctx context.Context, api storefront.API, day, from, to time.Time, names map[string]string, result *fulfillment.RunResult) {
	site := api.Site()
	log := s.logger.With(zap.String("site", string(site)))

	orders, err := api.ListOrders(ctx, storefront.StatusCompleted, from, to)
	if err != nil {
		result.Errorf("%s 주문 조회 실패: %v", site, err)
		log.Error("failed to list orders", zap.Error(err))
		return
	}
	if len(orders) == 0 {
		log.Info("no completed orders in window")
		return
	}
	log.Info("orders fetched", zap.Int("count", len(orders)))

	// PO box orders leave the pipeline before classification; the parcel
	// carrier refuses them and they ship through the postal desk instead.
	orders, poBox := splitPOBoxOrders(orders)
	if len(poBox) > 0 {
		rows := fulfillment.PrepareDomestic(applyProductNames(fulfillment.BuildRows(poBox), names))
		if err := s.store.Append(s.store.POBoxPath(day), rows); err != nil {
			result.Errorf("%s 사서함 주문서 작성 실패: %v", site, err)
		} else {
			result.POBoxRows[site] += len(rows)
			result.AddShipped(site, poBox)
		}
	}

	buckets := fulfillment.Partition(orders)
	for _, w := range buckets.Warnings {
		result.Warnf("%s", w)
	}
	s.normalizeInternational(ctx, &buckets, result)

	// Reservation stock moves back to processing before any manifest is
	// written so a partner resend never picks it up.
	s.updateStatuses(ctx, api, buckets.Reservation, storefront.StatusProcessing, result.ReservationMoved, result, "예약상품 상태 변경")

	if len(buckets.Domestic) > 0 {
		rows := fulfillment.PrepareDomestic(applyProductNames(fulfillment.BuildRows(buckets.Domestic), names))
		if err := s.store.Write(s.store.DomesticPath(site, day), rows); err != nil {
			result.Errorf("%s 국내 주문서 작성 실패: %v", site, err)
		} else {
			result.DomesticRows[site] = len(rows)
			result.AddShipped(site, buckets.Domestic)
			log.Info("domestic manifest written", zap.Int("rows", len(rows)))
		}
	}

	if len(buckets.International) > 0 {
		rows := fulfillment.PrepareInternational(
			applyProductNames(fulfillment.BuildRows(buckets.International), names),
			emailsByOrderNumber(buckets.International),
		)
		// The overseas manifest is shared by both sites, so rows append.
		if err := s.store.Append(s.store.InternationalPath(day), rows); err != nil {
			result.Errorf("%s 해외 주문서 작성 실패: %v", site, err)
		} else {
			result.InternationalRows[site] += len(rows)
			result.AddShipped(site, buckets.International)
			log.Info("international manifest appended", zap.Int("rows", len(rows)))
		}
	}

	s.updateStatuses(ctx, api, buckets.PureDigital, storefront.StatusShipped, result.DigitalUpdated, result, "디지털 상품 상태 변경")
	s.updateStatuses(ctx, api, buckets.B2B, storefront.StatusShipped, result.B2BUpdated, result, "B2B 상품 상태 변경")
}

// normalizeInternational cleans every overseas address through the geocoder.
// Orders the provider resolves back to Korea return to the domestic bucket.
func (s *Service) normalizeInternational(ctx context.Context, b *fulfillment.Buckets, result *fulfillment.RunResult) {
	if s.geocoder == nil || len(b.International) == 0 {
		return
	}

	kept := b.International[:0]
	for _, o := range b.International {
		address := o.DisplayAddress
		if address == "" {
			address = o.FullAddressText()
		}
		normalized, countryCode, err := shipping.NormalizeViaGeocoder(ctx, s.geocoder, address)
		if err != nil {
			// Transport failure: ship with the address as entered.
			result.Warnf("주문 %s 주소 정제 실패, 원본 주소 사용: %v", o.Number(), err)
			kept = append(kept, o)
			continue
		}
		o.DisplayAddress = normalized
		if countryCode == "KR" {
			b.Domestic = append(b.Domestic, o)
			continue
		}
		kept = append(kept, o)
	}
	b.International = kept
}

// updateStatuses pushes one bucket's status change and tallies confirmations.
func (s *Service) updateStatuses(ctx context.Context, api storefront.API, orders []fulfillment.Order, status string, tally map[fulfillment.Site]int, result *fulfillment.RunResult, stage string) {
	if len(orders) == 0 {
		return
	}
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	confirmed, err := api.BatchUpdateStatus(ctx, ids, status)
	if err != nil {
		result.Errorf("%s %s 실패: %v", api.Site(), stage, err)
		return
	}
	if len(confirmed) < len(ids) {
		result.Warnf("%s %s: %d건 중 %d건만 반영", api.Site(), stage, len(ids), len(confirmed))
	}
	tally[api.Site()] += len(confirmed)
}

// deliver mails the manifests and the run report, then archives the files.
func (s *Service) deliver(ctx context.Context, day time.Time, result *fulfillment.RunResult) {
	files := s.store.CollectDaily(day)
	if len(files) == 0 {
		result.Warnf("발송할 배송 주문서가 없습니다")
	} else {
		if err := s.mailer.SendManifests(ctx, day, files); err != nil {
			result.Errorf("배송 주문서 메일 발송 실패: %v", err)
		} else if s.backup != nil {
			if _, err := s.backup.BackupFiles(ctx, day, files); err != nil {
				result.Warnf("주문서 백업 실패: %v", err)
			}
		}
	}

	poBoxFile := ""
	if poBoxTotal(result) > 0 {
		poBoxFile = s.store.POBoxPath(day)
	}

	summary := result.Summary(s.now())
	if err := s.mailer.SendResult(ctx, day, summary, poBoxFile); err != nil {
		s.logger.Error("failed to send result mail", zap.Error(err))
	}

	if poBoxFile != "" && s.backup != nil {
		if _, err := s.backup.BackupFiles(ctx, day, []string{poBoxFile}); err != nil {
			s.logger.Warn("po box backup failed", zap.Error(err))
		}
	}
}

func poBoxTotal(result *fulfillment.RunResult) int {
	total := 0
	for _, n := range result.POBoxRows {
		total += n
	}
	return total
}

// splitPOBoxOrders separates orders shipping to a post office box.
func splitPOBoxOrders(orders []fulfillment.Order) (rest, poBox []fulfillment.Order) {
	for _, o := range orders {
		if o.UsesPOBox() {
			poBox = append(poBox, o)
			continue
		}
		rest = append(rest, o)
	}
	return rest, poBox
}

// applyProductNames overrides manifest product names from the catalog, keyed
// by the cleaned item code. Unmapped codes keep the storefront name.
func applyProductNames(rows []fulfillment.ManifestRow, names map[string]string) []fulfillment.ManifestRow {
	if len(names) == 0 {
		return rows
	}
	for i := range rows {
		if name, ok := names[rows[i].ItemCode]; ok && name != "" {
			rows[i].ProductName = name
		}
	}
	return rows
}

// emailsByOrderNumber indexes recipient emails for the overseas manifest's
// customs contact column.
func emailsByOrderNumber(orders []fulfillment.Order) map[string]string {
	emails := make(map[string]string, len(orders))
	for _, o := range orders {
		emails[o.Number()] = o.Email
	}
	return emails
}
