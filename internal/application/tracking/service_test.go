package tracking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noisycontents/fulfillment/internal/domain/fulfillment"
	"github.com/noisycontents/fulfillment/internal/domain/storefront"
	"github.com/noisycontents/fulfillment/internal/domain/tracking"
	"github.com/noisycontents/fulfillment/internal/infrastructure/sheets"
)

type fakeSource struct {
	sheets  []sheets.TrackingSheet
	rows    map[string][]tracking.SheetRow
	rowErr  map[string]error
	findErr error
}

func (f *fakeSource) FindTrackingSheets(ctx context.Context, day time.Time) ([]sheets.TrackingSheet, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.sheets, nil
}

func (f *fakeSource) ReadRows(ctx context.Context, sheet sheets.TrackingSheet) ([]tracking.SheetRow, error) {
	if err := f.rowErr[sheet.ID]; err != nil {
		return nil, err
	}
	return f.rows[sheet.ID], nil
}

type fakeSiteAPI struct {
	site      fulfillment.Site
	updates   []storefront.TrackingUpdate
	confirm   func(updates []storefront.TrackingUpdate) []int64
	updateErr error
}

func (a *fakeSiteAPI) Site() fulfillment.Site { return a.site }

func (a *fakeSiteAPI) BatchUpdateTracking(ctx context.Context, updates []storefront.TrackingUpdate) ([]int64, error) {
	if a.updateErr != nil {
		return nil, a.updateErr
	}
	a.updates = append(a.updates, updates...)
	if a.confirm != nil {
		return a.confirm(updates), nil
	}
	confirmed := make([]int64, 0, len(updates))
	for _, u := range updates {
		confirmed = append(confirmed, u.OrderID)
	}
	return confirmed, nil
}

func (a *fakeSiteAPI) ListOrders(ctx context.Context, status string, from, to time.Time) ([]fulfillment.Order, error) {
	return nil, nil
}
func (a *fakeSiteAPI) RecentOrders(ctx context.Context, limit int) ([]fulfillment.Order, error) {
	return nil, nil
}
func (a *fakeSiteAPI) UpdateStatus(ctx context.Context, orderID int64, status string) error {
	return nil
}
func (a *fakeSiteAPI) BatchUpdateStatus(ctx context.Context, orderIDs []int64, status string) ([]int64, error) {
	return nil, nil
}
func (a *fakeSiteAPI) CreateOrder(ctx context.Context, req storefront.CreateOrderRequest) (int64, error) {
	return 0, nil
}
func (a *fakeSiteAPI) FindCustomer(ctx context.Context, email string) (*storefront.Customer, error) {
	return nil, storefront.ErrNotFound
}
func (a *fakeSiteAPI) EnsureCustomer(ctx context.Context, email, firstName, lastName string) (*storefront.Customer, error) {
	return nil, storefront.ErrNotFound
}

var day = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func TestSync_WritesTrackingPerSite(t *testing.T) {
	source := &fakeSource{
		sheets: []sheets.TrackingSheet{
			{ID: "f1", Name: "250602 송장"},
			{ID: "f2", Name: "250602 해외 송장"},
		},
		rows: map[string][]tracking.SheetRow{
			"f1": {
				{OrderNumber: "S101", TrackingNumber: "688712345678", Address: "서울시 강남구"},
				{OrderNumber: "D201", TrackingNumber: "688787654321", Address: "부산광역시"},
			},
			"f2": {
				{OrderNumber: "S102", TrackingNumber: "EE123456789KR", Address: "1-2-3 Shibuya Tokyo", CountryCode: "JP"},
			},
		},
	}
	dok := &fakeSiteAPI{site: fulfillment.SiteDok}
	mini := &fakeSiteAPI{site: fulfillment.SiteMini}

	svc := NewService(source, []storefront.API{dok, mini}, nil)
	report, err := svc.Sync(context.Background(), day)
	require.NoError(t, err)

	assert.Equal(t, []string{"250602 송장", "250602 해외 송장"}, report.Sheets)
	assert.Equal(t, 3, report.RowsRead)
	assert.Equal(t, 2, report.Updated[fulfillment.SiteMini])
	assert.Equal(t, 1, report.Updated[fulfillment.SiteDok])
	assert.Empty(t, report.Errors)

	require.Len(t, dok.updates, 1)
	assert.Equal(t, int64(201), dok.updates[0].OrderID)
	assert.Equal(t, "CJGLS", dok.updates[0].CarrierCode)

	require.Len(t, mini.updates, 2)
	byOrder := map[int64]storefront.TrackingUpdate{}
	for _, u := range mini.updates {
		byOrder[u.OrderID] = u
	}
	assert.Equal(t, "688712345678", byOrder[101].TrackingNumber)
	assert.Equal(t, "EMS", byOrder[102].CarrierCode)
}

func TestSync_NoSheetsYet(t *testing.T) {
	source := &fakeSource{}
	svc := NewService(source, nil, nil)

	report, err := svc.Sync(context.Background(), day)

	require.ErrorIs(t, err, ErrNoSheets)
	assert.Nil(t, report)
}

func TestSync_DiscoveryFailure(t *testing.T) {
	source := &fakeSource{findErr: errors.New("drive: permission denied")}
	svc := NewService(source, nil, nil)

	_, err := svc.Sync(context.Background(), day)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sheet discovery failed")
}

func TestSync_EmptySheetSkipped(t *testing.T) {
	source := &fakeSource{
		sheets: []sheets.TrackingSheet{
			{ID: "f1", Name: "250602 송장"},
			{ID: "f2", Name: "250602 빈 시트"},
		},
		rows: map[string][]tracking.SheetRow{
			"f1": {{OrderNumber: "S101", TrackingNumber: "688712345678", Address: "서울시"}},
		},
		rowErr: map[string]error{"f2": sheets.ErrNoSheetData},
	}
	mini := &fakeSiteAPI{site: fulfillment.SiteMini}

	svc := NewService(source, []storefront.API{mini}, nil)
	report, err := svc.Sync(context.Background(), day)
	require.NoError(t, err)

	assert.Equal(t, 1, report.RowsRead)
	assert.Empty(t, report.Errors)
	assert.Equal(t, 1, report.Updated[fulfillment.SiteMini])
}

func TestSync_ReadFailureRecorded(t *testing.T) {
	source := &fakeSource{
		sheets: []sheets.TrackingSheet{
			{ID: "f1", Name: "250602 송장"},
			{ID: "f2", Name: "250602 해외"},
		},
		rows: map[string][]tracking.SheetRow{
			"f1": {{OrderNumber: "D201", TrackingNumber: "688787654321", Address: "부산시"}},
		},
		rowErr: map[string]error{"f2": errors.New("sheets: read timed out")},
	}
	dok := &fakeSiteAPI{site: fulfillment.SiteDok}

	svc := NewService(source, []storefront.API{dok}, nil)
	report, err := svc.Sync(context.Background(), day)
	require.NoError(t, err)

	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "250602 해외")
	assert.Equal(t, 1, report.Updated[fulfillment.SiteDok])
}

func TestSync_UnconfiguredSite(t *testing.T) {
	source := &fakeSource{
		sheets: []sheets.TrackingSheet{{ID: "f1", Name: "250602 송장"}},
		rows: map[string][]tracking.SheetRow{
			"f1": {
				{OrderNumber: "S101", TrackingNumber: "688712345678", Address: "서울시"},
				{OrderNumber: "D201", TrackingNumber: "688787654321", Address: "부산시"},
			},
		},
	}
	mini := &fakeSiteAPI{site: fulfillment.SiteMini}

	svc := NewService(source, []storefront.API{mini}, nil)
	report, err := svc.Sync(context.Background(), day)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Updated[fulfillment.SiteMini])
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "dok")
}

func TestSync_PartialConfirmation(t *testing.T) {
	source := &fakeSource{
		sheets: []sheets.TrackingSheet{{ID: "f1", Name: "250602 송장"}},
		rows: map[string][]tracking.SheetRow{
			"f1": {
				{OrderNumber: "S101", TrackingNumber: "688712345678", Address: "서울시"},
				{OrderNumber: "S102", TrackingNumber: "688712345679", Address: "서울시"},
			},
		},
	}
	mini := &fakeSiteAPI{site: fulfillment.SiteMini}
	mini.confirm = func(updates []storefront.TrackingUpdate) []int64 {
		return []int64{updates[0].OrderID}
	}

	svc := NewService(source, []storefront.API{mini}, nil)
	report, err := svc.Sync(context.Background(), day)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Updated[fulfillment.SiteMini])
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "1건만 반영")
}

func TestReport_Summary(t *testing.T) {
	report := &Report{
		Day:      day,
		Sheets:   []string{"250602 송장"},
		RowsRead: 3,
		Updated: map[fulfillment.Site]int{
			fulfillment.SiteMini: 2,
			fulfillment.SiteDok:  1,
		},
		Skipped: []string{"row missing order or tracking number"},
	}

	s := report.Summary()
	assert.Contains(t, s, "송장번호 동기화 결과 (2025-06-02)")
	assert.Contains(t, s, "시트 1개, 행 3건 읽음")
	assert.Contains(t, s, "[mini] 송장 등록: 2건")
	assert.Contains(t, s, "건너뛴 행 1건")
}
