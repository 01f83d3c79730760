// Package storefront defines the port to a storefront's order API. The two
// operated shops run the same platform, so one interface covers both; the
// infrastructure layer provides one adapter instance per site.
package storefront

import (
	"context"
	"errors"
	"time"

	"github.com/noisycontents/fulfillment/internal/domain/fulfillment"
)

var (
	// ErrUnavailable indicates the storefront could not be reached.
	ErrUnavailable = errors.New("storefront: service unavailable")
	// ErrRequestFailed indicates the storefront rejected the request.
	ErrRequestFailed = errors.New("storefront: request failed")
	// ErrInvalidResponse indicates the storefront returned an unparseable response.
	ErrInvalidResponse = errors.New("storefront: invalid response")
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("storefront: not found")
	// ErrNotConfigured indicates no credentials exist for the site.
	ErrNotConfigured = errors.New("storefront: site not configured")
)

// Order statuses written back by the fulfillment run.
const (
	StatusCompleted  = "completed"
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusShipping   = "shipping"
)

// TrackingUpdate carries one tracking-number write for an order.
type TrackingUpdate struct {
	OrderID        int64
	TrackingNumber string
	CarrierCode    string
	CarrierName    string
	RegisteredAt   time.Time
}

// LineItemInput describes a line item of an order to be created.
type LineItemInput struct {
	ProductID int64
	Name      string
	Quantity  int
	Total     string
	Meta      map[string]string
}

// CreateOrderRequest describes a zero-amount promotional order.
type CreateOrderRequest struct {
	Status       string
	CustomerID   int64
	Email        string
	FirstName    string
	LastName     string
	CustomerNote string
	Items        []LineItemInput
}

// Customer is a storefront customer account.
type Customer struct {
	ID        int64
	Email     string
	FirstName string
	LastName  string
	// Member is true when the account is a registered user rather than a
	// guest checkout record.
	Member bool
}

// API is the order-side surface of one storefront.
type API interface {
	// Site identifies which storefront this instance talks to.
	Site() fulfillment.Site

	// ListOrders returns orders with the given status created inside the
	// window, newest first, paging through the API transparently.
	ListOrders(ctx context.Context, status string, from, to time.Time) ([]fulfillment.Order, error)

	// RecentOrders returns the most recently created orders regardless of
	// status, up to limit.
	RecentOrders(ctx context.Context, limit int) ([]fulfillment.Order, error)

	// UpdateStatus moves a single order to the given status.
	UpdateStatus(ctx context.Context, orderID int64, status string) error

	// BatchUpdateStatus moves orders to the given status in API-sized
	// chunks and returns the IDs the storefront confirmed.
	BatchUpdateStatus(ctx context.Context, orderIDs []int64, status string) ([]int64, error)

	// BatchUpdateTracking writes tracking metadata and moves the orders to
	// the shipping status, returning confirmed IDs.
	BatchUpdateTracking(ctx context.Context, updates []TrackingUpdate) ([]int64, error)

	// CreateOrder creates a promotional order and returns its ID.
	CreateOrder(ctx context.Context, req CreateOrderRequest) (int64, error)

	// FindCustomer looks up a customer account by email, ErrNotFound when
	// no account exists.
	FindCustomer(ctx context.Context, email string) (*Customer, error)

	// EnsureCustomer returns the customer for the email, creating a guest
	// record if none exists.
	EnsureCustomer(ctx context.Context, email, firstName, lastName string) (*Customer, error)
}
