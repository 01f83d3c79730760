package woocommerce

import (
	"encoding/json"
	"fmt"
)

// Wire representations of the WooCommerce v3 REST resources this adapter
// touches. Monetary fields arrive as strings; metadata values are untyped.

type wcContact struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

type wcAddress struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
}

type wcMeta struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// stringValue renders the metadata value as a plain string whatever its wire
// type.
func (m wcMeta) stringValue() string {
	var s string
	if err := json.Unmarshal(m.Value, &s); err == nil {
		return s
	}
	return string(m.Value)
}

type wcLineItem struct {
	ID        int64    `json:"id"`
	ProductID int64    `json:"product_id"`
	Name      string   `json:"name"`
	SKU       string   `json:"sku"`
	Quantity  int      `json:"quantity"`
	Total     string   `json:"total"`
	MetaData  []wcMeta `json:"meta_data"`
}

type wcOrder struct {
	ID           int64        `json:"id"`
	Status       string       `json:"status"`
	CustomerID   int64        `json:"customer_id"`
	CustomerNote string       `json:"customer_note"`
	DateCreated  string       `json:"date_created"`
	Billing      wcContact    `json:"billing"`
	Shipping     wcAddress    `json:"shipping"`
	LineItems    []wcLineItem `json:"line_items"`
}

type wcCustomer struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

// wcError is the platform's error envelope; a response that parses into one
// with a non-empty code is a failure even under HTTP 200.
type wcError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e wcError) IsError() bool {
	return e.Code != ""
}

func (e wcError) String() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Batch write envelopes.

type wcBatchStatusEntry struct {
	ID     int64  `json:"id"`
	Status string `json:"status,omitempty"`
}

type wcBatchTrackingEntry struct {
	ID       int64          `json:"id"`
	Status   string         `json:"status,omitempty"`
	MetaData []wcMetaOutput `json:"meta_data,omitempty"`
}

type wcMetaOutput struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type wcBatchRequest[T any] struct {
	Update []T `json:"update"`
}

// wcBatchResultItem is one entry of a batch response; an entry with an error
// object failed even though the batch call itself returned 200.
type wcBatchResultItem struct {
	ID    int64    `json:"id"`
	Error *wcError `json:"error"`
}

type wcBatchResponse struct {
	Update []wcBatchResultItem `json:"update"`
}

// Order creation payload.

type wcCreateLineItem struct {
	ProductID int64          `json:"product_id,omitempty"`
	Name      string         `json:"name,omitempty"`
	Quantity  int            `json:"quantity"`
	Total     string         `json:"total,omitempty"`
	MetaData  []wcMetaOutput `json:"meta_data,omitempty"`
}

type wcCreateOrder struct {
	Status       string             `json:"status"`
	CustomerID   int64              `json:"customer_id,omitempty"`
	CustomerNote string             `json:"customer_note,omitempty"`
	Billing      *wcContact         `json:"billing,omitempty"`
	LineItems    []wcCreateLineItem `json:"line_items"`
}
