// Package calendar decides whether a daily run should execute and which
// order window it covers, based on Korean public holidays, weekends and
// operator-declared rest days.
package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	defaultBaseURL  = "https://date.nager.at/api/v3"
	maxResponseSize = 1024 * 1024
)

// HolidayClient fetches Korean public holidays from the Nager.Date API and
// falls back to a built-in table when the API is unreachable. Fetched years
// are cached for the process lifetime.
type HolidayClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger

	cache map[int]map[string]bool
}

// Option configures a HolidayClient.
type Option func(*HolidayClient)

// WithBaseURL overrides the API endpoint, used in tests.
func WithBaseURL(u string) Option {
	return func(c *HolidayClient) { c.baseURL = u }
}

// NewHolidayClient creates a holiday source backed by Nager.Date.
func NewHolidayClient(logger *zap.Logger, opts ...Option) *HolidayClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &HolidayClient{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		cache:      make(map[int]map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type nagerHoliday struct {
	Date string `json:"date"`
}

// Holidays returns the public holiday dates (formatted YYYY-MM-DD) of the
// given year. API failures degrade to the built-in table instead of
// erroring: a wrong holiday set delays a run at worst, while a failed run
// ships nothing.
func (c *HolidayClient) Holidays(ctx context.Context, year int) map[string]bool {
	if cached, ok := c.cache[year]; ok {
		return cached
	}

	dates, err := c.fetch(ctx, year)
	if err != nil {
		c.logger.Warn("holiday API unavailable, using fallback table",
			zap.Int("year", year), zap.Error(err))
		dates = fallbackHolidays(year)
	}
	c.cache[year] = dates
	return dates
}

func (c *HolidayClient) fetch(ctx context.Context, year int) (map[string]bool, error) {
	url := fmt.Sprintf("%s/PublicHolidays/%d/KR", c.baseURL, year)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("calendar: HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, err
	}

	var holidays []nagerHoliday
	if err := json.Unmarshal(body, &holidays); err != nil {
		return nil, fmt.Errorf("calendar: invalid response: %w", err)
	}
	dates := make(map[string]bool, len(holidays))
	for _, h := range holidays {
		dates[h.Date] = true
	}
	c.logger.Info("holidays loaded", zap.Int("year", year), zap.Int("count", len(dates)))
	return dates, nil
}

// fallbackHolidays is the hardcoded table used when the API is down. 2025 is
// maintained by hand including substitute holidays; other years carry only
// the fixed-date holidays.
func fallbackHolidays(year int) map[string]bool {
	if year == 2025 {
		return setOf(
			"2025-01-01", "2025-01-28", "2025-01-29", "2025-01-30",
			"2025-03-01", "2025-05-01", "2025-05-05", "2025-05-06",
			"2025-06-03", "2025-06-06", "2025-08-15",
			"2025-10-03",
			"2025-10-06", "2025-10-07", "2025-10-08", "2025-10-09", "2025-12-25",
		)
	}
	return setOf(
		fmt.Sprintf("%d-01-01", year),
		fmt.Sprintf("%d-03-01", year),
		fmt.Sprintf("%d-05-05", year),
		fmt.Sprintf("%d-06-06", year),
		fmt.Sprintf("%d-08-15", year),
		fmt.Sprintf("%d-10-03", year),
		fmt.Sprintf("%d-10-09", year),
		fmt.Sprintf("%d-12-25", year),
	)
}

func setOf(dates ...string) map[string]bool {
	m := make(map[string]bool, len(dates))
	for _, d := range dates {
		m[d] = true
	}
	return m
}
