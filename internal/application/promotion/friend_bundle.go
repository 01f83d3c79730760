// Package promotion creates the bonus starter-pack orders granted to a friend
// named in the buyer's order note. Only the mini storefront runs the
// promotion.
package promotion

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noisycontents/fulfillment/internal/domain/fulfillment"
	"github.com/noisycontents/fulfillment/internal/domain/storefront"
)

// starterPackMarker tags the purchasable bundle the promotion applies to.
const starterPackMarker = "스타터팩"

// Option metadata keys on the starter pack line item.
const (
	metaFirstLanguage  = "첫-번째-언어"
	metaSecondLanguage = "두-번째-언어"
	metaPaperTypeLong  = "원하는 학습지 유형을 선택하세요!"
	metaPaperTypeAttr  = "pa_paper-type"
)

// Line item metadata written onto the generated order.
const (
	metaProductName     = "상품명"
	metaOriginalOrderID = "원본_주문번호"
)

// recentOrderWindow is how many of the newest orders are scanned when
// checking whether a friend order was already created.
const recentOrderWindow = 50

var emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

// ExtractFriendEmail pulls the first email address out of the buyer's order
// note. Empty when the note names no one.
func ExtractFriendEmail(note string) string {
	return emailPattern.FindString(note)
}

// BundleProductName derives the generated line item's display name from the
// second language option and the selected paper type.
func BundleProductName(secondLanguage, paperType string) string {
	if paperType == "digital" || paperType == "digitalonly" {
		return fmt.Sprintf("1&1-%s 스타터팩[디지털학습지]", secondLanguage)
	}
	return fmt.Sprintf("1&1-%s 스타터팩", secondLanguage)
}

// FriendBundleService scans completed starter pack orders and creates the
// matching friend order for each one that has not been processed yet.
type FriendBundleService struct {
	api       storefront.API
	productID int64
	lookback  time.Duration
	logger    *zap.Logger
}

// Option configures the promotion processor.
type Option func(*FriendBundleService)

// WithLookback caps how far back from the window end completed orders are
// scanned. Zero scans the whole window.
func WithLookback(d time.Duration) Option {
	return func(s *FriendBundleService) {
		s.lookback = d
	}
}

// NewFriendBundleService creates the promotion processor. The api must talk
// to the mini storefront, productID is the catalog entry the generated line
// item points at.
func NewFriendBundleService(api storefront.API, productID int64, logger *zap.Logger, opts ...Option) *FriendBundleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &FriendBundleService{
		api:       api,
		productID: productID,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Process walks completed orders inside the window and creates friend orders
// for starter pack purchases. Individual order failures are recorded on the
// result and do not stop the scan.
func (s *FriendBundleService) Process(ctx context.Context, from, to time.Time, result *fulfillment.RunResult) error {
	if s.api.Site() != fulfillment.SiteMini {
		return nil
	}

	if s.lookback > 0 {
		if cutoff := to.Add(-s.lookback); cutoff.After(from) {
			from = cutoff
		}
	}

	orders, err := s.api.ListOrders(ctx, storefront.StatusCompleted, from, to)
	if err != nil {
		return fmt.Errorf("promotion: failed to list completed orders: %w", err)
	}

	for _, order := range orders {
		starter, ok := starterPackItem(order)
		if !ok {
			continue
		}
		created, err := s.processOrder(ctx, order, starter, result)
		if err != nil {
			result.Errorf("주문 %s 스타터팩 친구 주문 생성 실패: %v", order.Number(), err)
			s.logger.Warn("friend order creation failed",
				zap.String("order", order.Number()),
				zap.Error(err))
			continue
		}
		if created {
			result.FriendOrders++
		}
	}
	return nil
}

// processOrder creates the friend order for one starter pack purchase.
// Returns false without error when the order does not qualify or was already
// handled.
func (s *FriendBundleService) processOrder(ctx context.Context, order fulfillment.Order, starter fulfillment.Item, result *fulfillment.RunResult) (bool, error) {
	secondLanguage := starter.Meta[metaSecondLanguage]
	if secondLanguage == "" {
		s.logger.Info("starter pack without second language option, skipping",
			zap.String("order", order.Number()))
		return false, nil
	}
	paperType := starter.Meta[metaPaperTypeLong]
	if paperType == "" {
		paperType = starter.Meta[metaPaperTypeAttr]
	}

	friendEmail := ExtractFriendEmail(order.Note)
	if friendEmail != "" {
		existingID, exists, err := s.friendOrderExists(ctx, order.ID, friendEmail)
		if err != nil {
			return false, err
		}
		if exists {
			result.Warnf("주문 %s 스타터팩 친구 주문 이미 존재, 기존 주문 %d 유지", order.Number(), existingID)
			s.logger.Info("friend order already exists, skipping",
				zap.String("order", order.Number()),
				zap.Int64("existing_order_id", existingID),
				zap.String("friend_email", friendEmail))
			return false, nil
		}
	}

	productName := BundleProductName(secondLanguage, paperType)
	req := storefront.CreateOrderRequest{
		Items: []storefront.LineItemInput{{
			ProductID: s.productID,
			Quantity:  1,
			// The bundle is a gift; the line item is forced to zero so the
			// storefront does not bill the catalog price.
			Total: decimal.Zero.StringFixed(0),
			Meta: map[string]string{
				metaProductName:     productName,
				metaOriginalOrderID: strconv.FormatInt(order.ID, 10),
			},
		}},
	}

	if friendEmail == "" {
		// No friend named: the bundle goes to the buyer themselves.
		req.Status = storefront.StatusShipped
		req.CustomerID = order.CustomerID
		req.Email = order.Email
	} else {
		firstName := friendEmail[:strings.Index(friendEmail, "@")]
		customer, err := s.api.EnsureCustomer(ctx, friendEmail, firstName, "")
		switch {
		case err != nil:
			s.logger.Warn("customer lookup failed, creating guest order",
				zap.String("friend_email", friendEmail),
				zap.Error(err))
			req.Status = storefront.StatusProcessing
			req.Email = friendEmail
			req.FirstName = firstName
		case customer.Member:
			req.Status = storefront.StatusShipped
			req.CustomerID = customer.ID
			req.Email = friendEmail
		default:
			// Freshly created guest record: leave the order in processing so
			// the friend gets onboarded before anything ships.
			req.Status = storefront.StatusProcessing
			req.CustomerID = customer.ID
			req.Email = friendEmail
			req.FirstName = firstName
		}
	}

	newID, err := s.api.CreateOrder(ctx, req)
	if err != nil {
		return false, err
	}
	s.logger.Info("friend order created",
		zap.String("original_order", order.Number()),
		zap.Int64("new_order_id", newID),
		zap.String("product_name", productName),
		zap.String("friend_email", friendEmail))
	return true, nil
}

// friendOrderExists scans recent orders for one addressed to the friend that
// references the original order, returning its id when found.
func (s *FriendBundleService) friendOrderExists(ctx context.Context, originalID int64, friendEmail string) (int64, bool, error) {
	recent, err := s.api.RecentOrders(ctx, recentOrderWindow)
	if err != nil {
		return 0, false, fmt.Errorf("promotion: failed to scan recent orders: %w", err)
	}
	want := strconv.FormatInt(originalID, 10)
	for _, order := range recent {
		if !strings.EqualFold(order.Email, friendEmail) {
			continue
		}
		for _, item := range order.Items {
			if item.Meta[metaOriginalOrderID] == want {
				return order.ID, true, nil
			}
		}
	}
	return 0, false, nil
}

func starterPackItem(order fulfillment.Order) (fulfillment.Item, bool) {
	for _, item := range order.Items {
		if strings.Contains(item.Name, starterPackMarker) {
			return item, true
		}
	}
	return fulfillment.Item{}, false
}
