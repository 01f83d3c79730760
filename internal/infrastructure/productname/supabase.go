// Package productname resolves display product names from the merchandising
// team's SKU table, with a cache in front so the daily run hits the table
// once.
package productname

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const maxResponseSize = 10 * 1024 * 1024

// ErrInvalidConfig indicates missing Supabase settings.
var ErrInvalidConfig = errors.New("productname: invalid configuration")

// Mapping is the item-code to display-name table.
type Mapping = map[string]string

// Source fetches the full mapping.
type Source interface {
	Fetch(ctx context.Context) (Mapping, error)
}

// SupabaseSource reads the mapping from the sku_total table over the
// Supabase REST API.
type SupabaseSource struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewSupabaseSource creates a REST-backed mapping source.
func NewSupabaseSource(baseURL, apiKey string, logger *zap.Logger) (*SupabaseSource, error) {
	if baseURL == "" || apiKey == "" {
		return nil, fmt.Errorf("%w: URL and key are required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SupabaseSource{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}, nil
}

var _ Source = (*SupabaseSource)(nil)

type skuRow struct {
	ItemCode    string `json:"품번코드"`
	ProductName string `json:"상품명"`
}

// Fetch pulls the complete item-code/name table.
func (s *SupabaseSource) Fetch(ctx context.Context) (Mapping, error) {
	url := fmt.Sprintf("%s/rest/v1/sku_total?select=%s", s.baseURL, "품번코드,상품명")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("productname: failed to create request: %w", err)
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("productname: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("productname: failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("productname: HTTP %d", resp.StatusCode)
	}

	var rows []skuRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("productname: invalid response: %w", err)
	}

	mapping := make(Mapping, len(rows))
	for _, r := range rows {
		if r.ItemCode != "" && r.ProductName != "" {
			mapping[r.ItemCode] = r.ProductName
		}
	}
	s.logger.Info("product name mapping loaded", zap.Int("entries", len(mapping)))
	return mapping, nil
}
