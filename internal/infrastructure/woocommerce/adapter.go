package woocommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noisycontents/fulfillment/internal/domain/catalog"
	"github.com/noisycontents/fulfillment/internal/domain/fulfillment"
	"github.com/noisycontents/fulfillment/internal/domain/shipping"
	"github.com/noisycontents/fulfillment/internal/domain/storefront"
)

// maxResponseSize is the maximum allowed response size from the API (10MB).
const maxResponseSize = 10 * 1024 * 1024

// Metadata keys of the shipment plugin installed on both sites.
const (
	metaCarrierCode    = "_msex_dlv_code"
	metaCarrierName    = "_msex_dlv_name"
	metaTrackingNumber = "_msex_sheet_no"
	metaRegisterDate   = "_msex_register_date"
)

// Adapter implements the storefront API port for one WooCommerce
// site.
type Adapter struct {
	config     *Config
	httpClient *http.Client
	logger     *zap.Logger

	// sleep is swapped out in tests to avoid real batch pauses.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewAdapter creates an adapter for the given site configuration.
func NewAdapter(config *Config, logger *zap.Logger) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		config:     config,
		httpClient: &http.Client{Timeout: config.timeout()},
		logger:     logger.With(zap.String("site", string(config.Site))),
		sleep:      sleepCtx,
	}, nil
}

var _ storefront.API = (*Adapter)(nil)

// Site identifies which storefront this adapter talks to.
func (a *Adapter) Site() fulfillment.Site {
	return a.config.Site
}

// ListOrders pages through the orders endpoint until the window is drained.
func (a *Adapter) ListOrders(ctx context.Context, status string, from, to time.Time) ([]fulfillment.Order, error) {
	var all []fulfillment.Order
	for page := 1; ; page++ {
		query := url.Values{}
		query.Set("status", status)
		query.Set("after", from.Format(time.RFC3339))
		query.Set("before", to.Format(time.RFC3339))
		query.Set("per_page", strconv.Itoa(a.config.pageSize()))
		query.Set("page", strconv.Itoa(page))
		query.Set("orderby", "date")
		query.Set("order", "desc")

		var orders []wcOrder
		if err := a.doRequest(ctx, http.MethodGet, "orders", query, nil, &orders); err != nil {
			return nil, err
		}
		for _, o := range orders {
			all = append(all, a.convertOrder(o))
		}
		if len(orders) < a.config.pageSize() {
			return all, nil
		}
	}
}

// RecentOrders returns the newest orders regardless of status.
func (a *Adapter) RecentOrders(ctx context.Context, limit int) ([]fulfillment.Order, error) {
	query := url.Values{}
	query.Set("per_page", strconv.Itoa(limit))
	query.Set("orderby", "date")
	query.Set("order", "desc")

	var orders []wcOrder
	if err := a.doRequest(ctx, http.MethodGet, "orders", query, nil, &orders); err != nil {
		return nil, err
	}
	out := make([]fulfillment.Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, a.convertOrder(o))
	}
	return out, nil
}

// UpdateStatus moves one order to the given status.
func (a *Adapter) UpdateStatus(ctx context.Context, orderID int64, status string) error {
	body := map[string]string{"status": status}
	var resp wcOrder
	return a.doRequest(ctx, http.MethodPut, fmt.Sprintf("orders/%d", orderID), nil, body, &resp)
}

// BatchUpdateStatus moves orders to the given status in chunks, pausing
// between chunks so the shared hosting does not throttle the run. Only IDs
// the API confirmed come back.
func (a *Adapter) BatchUpdateStatus(ctx context.Context, orderIDs []int64, status string) ([]int64, error) {
	var confirmed []int64
	for i, chunk := range chunkIDs(orderIDs, a.config.batchSize()) {
		if i > 0 {
			if err := a.sleep(ctx, a.config.batchPause()); err != nil {
				return confirmed, err
			}
		}
		req := wcBatchRequest[wcBatchStatusEntry]{}
		for _, id := range chunk {
			req.Update = append(req.Update, wcBatchStatusEntry{ID: id, Status: status})
		}
		ids, err := a.postBatch(ctx, req)
		if err != nil {
			a.logger.Warn("batch status update failed",
				zap.String("status", status),
				zap.Int64s("order_ids", chunk),
				zap.Error(err))
			continue
		}
		confirmed = append(confirmed, ids...)
	}
	return confirmed, nil
}

// BatchUpdateTracking writes the shipment plugin metadata and moves the
// orders to the shipping status.
func (a *Adapter) BatchUpdateTracking(ctx context.Context, updates []storefront.TrackingUpdate) ([]int64, error) {
	var confirmed []int64
	for i, chunk := range chunkUpdates(updates, a.config.batchSize()) {
		if i > 0 {
			if err := a.sleep(ctx, a.config.batchPause()); err != nil {
				return confirmed, err
			}
		}
		req := wcBatchRequest[wcBatchTrackingEntry]{}
		for _, u := range chunk {
			req.Update = append(req.Update, wcBatchTrackingEntry{
				ID:     u.OrderID,
				Status: storefront.StatusShipping,
				MetaData: []wcMetaOutput{
					{Key: metaCarrierCode, Value: u.CarrierCode},
					{Key: metaCarrierName, Value: u.CarrierName},
					{Key: metaTrackingNumber, Value: u.TrackingNumber},
					{Key: metaRegisterDate, Value: u.RegisteredAt.Format("2006-01-02 15:04:05")},
				},
			})
		}
		ids, err := a.postBatch(ctx, req)
		if err != nil {
			a.logger.Warn("batch tracking update failed", zap.Error(err))
			continue
		}
		confirmed = append(confirmed, ids...)
	}
	return confirmed, nil
}

// postBatch sends one batch update and returns the confirmed IDs.
func (a *Adapter) postBatch(ctx context.Context, body any) ([]int64, error) {
	var resp wcBatchResponse
	if err := a.doRequest(ctx, http.MethodPost, "orders/batch", nil, body, &resp); err != nil {
		return nil, err
	}
	var ids []int64
	for _, item := range resp.Update {
		if item.Error != nil && item.Error.IsError() {
			a.logger.Warn("order rejected in batch",
				zap.Int64("order_id", item.ID),
				zap.String("error", item.Error.String()))
			continue
		}
		if item.ID != 0 {
			ids = append(ids, item.ID)
		}
	}
	return ids, nil
}

// CreateOrder creates a promotional order and returns its ID.
func (a *Adapter) CreateOrder(ctx context.Context, req storefront.CreateOrderRequest) (int64, error) {
	payload := wcCreateOrder{
		Status:       req.Status,
		CustomerID:   req.CustomerID,
		CustomerNote: req.CustomerNote,
	}
	if req.CustomerID == 0 && req.Email != "" {
		payload.Billing = &wcContact{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
		}
	}
	for _, item := range req.Items {
		li := wcCreateLineItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Total:     item.Total,
		}
		for k, v := range item.Meta {
			li.MetaData = append(li.MetaData, wcMetaOutput{Key: k, Value: v})
		}
		payload.LineItems = append(payload.LineItems, li)
	}

	var resp wcOrder
	if err := a.doRequest(ctx, http.MethodPost, "orders", nil, payload, &resp); err != nil {
		return 0, err
	}
	if resp.ID == 0 {
		return 0, storefront.ErrInvalidResponse
	}
	return resp.ID, nil
}

// FindCustomer looks up a customer account by email.
func (a *Adapter) FindCustomer(ctx context.Context, email string) (*storefront.Customer, error) {
	query := url.Values{}
	query.Set("email", email)

	var customers []wcCustomer
	if err := a.doRequest(ctx, http.MethodGet, "customers", query, nil, &customers); err != nil {
		return nil, err
	}
	if len(customers) == 0 {
		return nil, storefront.ErrNotFound
	}
	c := customers[0]
	return &storefront.Customer{
		ID:        c.ID,
		Email:     c.Email,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Member:    c.Role != "" && c.Role != "guest",
	}, nil
}

// EnsureCustomer returns the customer record for the email, creating a guest
// record when no account exists.
func (a *Adapter) EnsureCustomer(ctx context.Context, email, firstName, lastName string) (*storefront.Customer, error) {
	c, err := a.FindCustomer(ctx, email)
	if err == nil {
		return c, nil
	}
	if err != storefront.ErrNotFound {
		return nil, err
	}

	payload := wcCustomer{Email: email, FirstName: firstName, LastName: lastName}
	var created wcCustomer
	if err := a.doRequest(ctx, http.MethodPost, "customers", nil, payload, &created); err != nil {
		return nil, err
	}
	return &storefront.Customer{
		ID:        created.ID,
		Email:     created.Email,
		FirstName: created.FirstName,
		LastName:  created.LastName,
	}, nil
}

// doRequest performs one authenticated API call and decodes the response
// into out. Credentials travel as query parameters over TLS and as basic
// auth on plain HTTP, matching what the platform accepts on each scheme.
func (a *Adapter) doRequest(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := fmt.Sprintf("%s/wp-json/wc/v3/%s", a.config.BaseURL, path)

	if query == nil {
		query = url.Values{}
	}
	if a.config.isTLS() {
		query.Set("consumer_key", a.config.ConsumerKey)
		query.Set("consumer_secret", a.config.ConsumerSecret)
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("woocommerce: failed to encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("woocommerce: failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !a.config.isTLS() {
		req.SetBasicAuth(a.config.ConsumerKey, a.config.ConsumerSecret)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", storefront.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("woocommerce: failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return storefront.ErrNotFound
	}
	if resp.StatusCode >= 400 {
		var apiErr wcError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.IsError() {
			return fmt.Errorf("%w: HTTP %d: %s", storefront.ErrRequestFailed, resp.StatusCode, apiErr.String())
		}
		return fmt.Errorf("%w: HTTP %d", storefront.ErrRequestFailed, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: %v", storefront.ErrInvalidResponse, err)
	}
	return nil
}

// convertOrder maps a wire order onto the domain model, classifying each
// line item's SKU and pre-building the display address.
func (a *Adapter) convertOrder(o wcOrder) fulfillment.Order {
	addr := shipping.Address{
		Address1:    o.Shipping.Address1,
		Address2:    o.Shipping.Address2,
		City:        o.Shipping.City,
		State:       o.Shipping.State,
		PostalCode:  o.Shipping.Postcode,
		CountryCode: o.Shipping.Country,
		Country:     o.Shipping.Country,
	}

	recipient := joinName(o.Shipping.FirstName, o.Shipping.LastName)
	if recipient == "" {
		recipient = joinName(o.Billing.FirstName, o.Billing.LastName)
	}

	order := fulfillment.Order{
		ID:             o.ID,
		Site:           a.config.Site,
		Status:         o.Status,
		CustomerID:     o.CustomerID,
		Recipient:      recipient,
		Phone:          o.Billing.Phone,
		Email:          o.Billing.Email,
		Note:           o.CustomerNote,
		Address:        addr,
		DisplayAddress: shipping.BuildDisplayAddress(addr),
	}

	for _, li := range o.LineItems {
		item := fulfillment.Item{
			ProductID: li.ProductID,
			Name:      li.Name,
			SKU:       catalog.Classify(li.SKU),
			Quantity:  li.Quantity,
		}
		if amount, err := decimal.NewFromString(li.Total); err == nil {
			item.TotalAmount = amount
		}
		if len(li.MetaData) > 0 {
			item.Meta = make(map[string]string, len(li.MetaData))
			for _, m := range li.MetaData {
				item.Meta[m.Key] = m.stringValue()
			}
		}
		order.Items = append(order.Items, item)
	}
	return order
}

// joinName renders a Korean name without the western space when both parts
// are Hangul, otherwise first-last.
func joinName(first, last string) string {
	switch {
	case first == "" && last == "":
		return ""
	case first == "":
		return last
	case last == "":
		return first
	case shipping.ContainsHangul(first) && shipping.ContainsHangul(last):
		return last + first
	default:
		return first + " " + last
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func chunkIDs(ids []int64, size int) [][]int64 {
	var chunks [][]int64
	for len(ids) > 0 {
		n := size
		if n > len(ids) {
			n = len(ids)
		}
		chunks = append(chunks, ids[:n])
		ids = ids[n:]
	}
	return chunks
}

func chunkUpdates(updates []storefront.TrackingUpdate, size int) [][]storefront.TrackingUpdate {
	var chunks [][]storefront.TrackingUpdate
	for len(updates) > 0 {
		n := size
		if n > len(updates) {
			n = len(updates)
		}
		chunks = append(chunks, updates[:n])
		updates = updates[n:]
	}
	return chunks
}
