package calendar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func holidaySource(t *testing.T, body string, status int) *HolidayClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewHolidayClient(nil, WithBaseURL(srv.URL))
}

func kstDate(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation("2006-01-02 15:04", value, KST)
	require.NoError(t, err)
	return ts
}

func TestHolidays_FallsBackWhenAPIDown(t *testing.T) {
	client := holidaySource(t, "server error", http.StatusInternalServerError)

	holidays := client.Holidays(context.Background(), 2025)

	assert.True(t, holidays["2025-01-01"])
	assert.True(t, holidays["2025-10-06"])
	assert.False(t, holidays["2025-04-01"])
}

func TestHolidays_GenericFallbackForOtherYears(t *testing.T) {
	client := holidaySource(t, "oops", http.StatusBadGateway)

	holidays := client.Holidays(context.Background(), 2030)

	assert.True(t, holidays["2030-03-01"])
	assert.True(t, holidays["2030-12-25"])
	assert.False(t, holidays["2030-01-28"])
}

func TestHolidays_Cached(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`[{"date": "2025-06-06"}]`))
	}))
	defer srv.Close()
	client := NewHolidayClient(nil, WithBaseURL(srv.URL))

	client.Holidays(context.Background(), 2025)
	holidays := client.Holidays(context.Background(), 2025)

	assert.Equal(t, 1, calls)
	assert.True(t, holidays["2025-06-06"])
}

func TestShouldSkip(t *testing.T) {
	client := holidaySource(t, `[{"date": "2025-06-06"}]`, http.StatusOK)
	w := NewWorkdays(client, []string{"2025-10-02"})
	ctx := context.Background()

	tests := []struct {
		name       string
		now        string
		wantSkip   bool
		wantReason string
	}{
		{"regular monday", "2025-06-02 07:00", false, ""},
		{"saturday", "2025-06-07 07:00", true, "weekend"},
		{"sunday", "2025-06-08 07:00", true, "weekend"},
		{"public holiday", "2025-06-06 07:00", true, "public holiday"},
		{"declared rest day", "2025-10-02 07:00", true, "declared rest day"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			skip, reason := w.ShouldSkip(ctx, kstDate(t, tt.now))
			assert.Equal(t, tt.wantSkip, skip)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestOrderWindow(t *testing.T) {
	client := holidaySource(t, `[{"date": "2025-06-06"}]`, http.StatusOK)
	w := NewWorkdays(client, nil)
	ctx := context.Background()

	t.Run("normal weekday covers 24 hours", func(t *testing.T) {
		start, end := w.OrderWindow(ctx, kstDate(t, "2025-06-04 07:00"))

		assert.Equal(t, kstDate(t, "2025-06-03 12:00"), start)
		assert.Equal(t, kstDate(t, "2025-06-04 12:00"), end)
	})

	t.Run("monday stretches back over the weekend", func(t *testing.T) {
		start, end := w.OrderWindow(ctx, kstDate(t, "2025-06-02 07:00"))

		// Friday 2025-05-30 was the last workday.
		assert.Equal(t, kstDate(t, "2025-05-30 12:00"), start)
		assert.Equal(t, kstDate(t, "2025-06-02 12:00"), end)
	})

	t.Run("holiday plus weekend stretches further", func(t *testing.T) {
		// 2025-06-06 is a Friday holiday; Monday's run reaches back to
		// Thursday 2025-06-05.
		start, end := w.OrderWindow(ctx, kstDate(t, "2025-06-09 07:00"))

		assert.Equal(t, kstDate(t, "2025-06-05 12:00"), start)
		assert.Equal(t, kstDate(t, "2025-06-09 12:00"), end)
	})
}

func TestLastWorkDay_CapsBacktracking(t *testing.T) {
	// Every day is declared a rest day, so the search hits the cap and
	// settles for yesterday.
	var rest []string
	day := kstDate(t, "2025-05-15 00:00")
	for i := 0; i < 20; i++ {
		rest = append(rest, day.AddDate(0, 0, -i).Format("2006-01-02"))
	}
	client := holidaySource(t, `[]`, http.StatusOK)
	w := NewWorkdays(client, rest)

	last := w.LastWorkDay(context.Background(), kstDate(t, "2025-05-15 07:00"))

	assert.Equal(t, "2025-05-14", last.Format("2006-01-02"))
}
