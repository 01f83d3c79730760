package promotion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noisycontents/fulfillment/internal/domain/fulfillment"
	"github.com/noisycontents/fulfillment/internal/domain/storefront"
)

type fakeAPI struct {
	site      fulfillment.Site
	completed []fulfillment.Order
	recent    []fulfillment.Order
	customers map[string]*storefront.Customer

	created      []storefront.CreateOrderRequest
	ensuredGuest bool
	listFrom     time.Time
	listTo       time.Time
}

func (f *fakeAPI) Site() fulfillment.Site { return f.site }

func (f *fakeAPI) ListOrders(ctx context.Context, status string, from, to time.Time) ([]fulfillment.Order, error) {
	f.listFrom, f.listTo = from, to
	return f.completed, nil
}

func (f *fakeAPI) RecentOrders(ctx context.Context, limit int) ([]fulfillment.Order, error) {
	return f.recent, nil
}

func (f *fakeAPI) UpdateStatus(ctx context.Context, orderID int64, status string) error { return nil }

func (f *fakeAPI) BatchUpdateStatus(ctx context.Context, orderIDs []int64, status string) ([]int64, error) {
	return orderIDs, nil
}

func (f *fakeAPI) BatchUpdateTracking(ctx context.Context, updates []storefront.TrackingUpdate) ([]int64, error) {
	return nil, nil
}

func (f *fakeAPI) CreateOrder(ctx context.Context, req storefront.CreateOrderRequest) (int64, error) {
	f.created = append(f.created, req)
	return int64(900000 + len(f.created)), nil
}

func (f *fakeAPI) FindCustomer(ctx context.Context, email string) (*storefront.Customer, error) {
	if c, ok := f.customers[email]; ok {
		return c, nil
	}
	return nil, storefront.ErrNotFound
}

func (f *fakeAPI) EnsureCustomer(ctx context.Context, email, firstName, lastName string) (*storefront.Customer, error) {
	if c, ok := f.customers[email]; ok {
		return c, nil
	}
	f.ensuredGuest = true
	return &storefront.Customer{ID: 777, Email: email, FirstName: firstName}, nil
}

func starterOrder(id int64, note string, meta map[string]string) fulfillment.Order {
	return fulfillment.Order{
		ID:         id,
		Site:       fulfillment.SiteMini,
		Status:     "completed",
		CustomerID: 42,
		Email:      "buyer@example.com",
		Note:       note,
		Items: []fulfillment.Item{{
			ProductID: 11,
			Name:      "1&1 스타터팩",
			Quantity:  1,
			Meta:      meta,
		}},
	}
}

func TestExtractFriendEmail(t *testing.T) {
	tests := []struct {
		name string
		note string
		want string
	}{
		{name: "plain email", note: "친구: friend@example.com 에게 보내주세요", want: "friend@example.com"},
		{name: "first of two", note: "a@b.co 그리고 c@d.co", want: "a@b.co"},
		{name: "no email", note: "그냥 메모", want: ""},
		{name: "empty note", note: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractFriendEmail(tt.note))
		})
	}
}

func TestBundleProductName(t *testing.T) {
	assert.Equal(t, "1&1-일본어 스타터팩[디지털학습지]", BundleProductName("일본어", "digital"))
	assert.Equal(t, "1&1-일본어 스타터팩[디지털학습지]", BundleProductName("일본어", "digitalonly"))
	assert.Equal(t, "1&1-스페인어 스타터팩", BundleProductName("스페인어", "paperdigital"))
	assert.Equal(t, "1&1-스페인어 스타터팩", BundleProductName("스페인어", ""))
}

func TestProcess_MemberFriendGetsShippedOrder(t *testing.T) {
	api := &fakeAPI{
		site: fulfillment.SiteMini,
		completed: []fulfillment.Order{
			starterOrder(100, "친구 이메일: friend@example.com", map[string]string{
				metaSecondLanguage: "일본어",
				metaPaperTypeLong:  "digital",
			}),
		},
		customers: map[string]*storefront.Customer{
			"friend@example.com": {ID: 55, Email: "friend@example.com", Member: true},
		},
	}
	svc := NewFriendBundleService(api, 999, nil)
	result := fulfillment.NewRunResult(time.Now())

	err := svc.Process(context.Background(), time.Now().Add(-24*time.Hour), time.Now(), result)
	require.NoError(t, err)

	require.Len(t, api.created, 1)
	req := api.created[0]
	assert.Equal(t, storefront.StatusShipped, req.Status)
	assert.Equal(t, int64(55), req.CustomerID)
	require.Len(t, req.Items, 1)
	assert.Equal(t, int64(999), req.Items[0].ProductID)
	assert.Equal(t, "0", req.Items[0].Total)
	assert.Equal(t, "1&1-일본어 스타터팩[디지털학습지]", req.Items[0].Meta[metaProductName])
	assert.Equal(t, "100", req.Items[0].Meta[metaOriginalOrderID])
	assert.Equal(t, 1, result.FriendOrders)
}

func TestProcess_UnknownFriendGetsProcessingOrder(t *testing.T) {
	api := &fakeAPI{
		site: fulfillment.SiteMini,
		completed: []fulfillment.Order{
			starterOrder(101, "new.friend@example.com", map[string]string{
				metaSecondLanguage: "스페인어",
				metaPaperTypeAttr:  "paperdigital",
			}),
		},
	}
	svc := NewFriendBundleService(api, 999, nil)
	result := fulfillment.NewRunResult(time.Now())

	err := svc.Process(context.Background(), time.Now().Add(-24*time.Hour), time.Now(), result)
	require.NoError(t, err)

	require.Len(t, api.created, 1)
	req := api.created[0]
	assert.True(t, api.ensuredGuest)
	assert.Equal(t, storefront.StatusProcessing, req.Status)
	assert.Equal(t, "new.friend", req.FirstName)
	assert.Equal(t, "1&1-스페인어 스타터팩", req.Items[0].Meta[metaProductName])
}

func TestProcess_NoFriendEmailShipsToBuyer(t *testing.T) {
	api := &fakeAPI{
		site: fulfillment.SiteMini,
		completed: []fulfillment.Order{
			starterOrder(102, "메모 없음", map[string]string{
				metaSecondLanguage: "일본어",
			}),
		},
	}
	svc := NewFriendBundleService(api, 999, nil)
	result := fulfillment.NewRunResult(time.Now())

	err := svc.Process(context.Background(), time.Now().Add(-24*time.Hour), time.Now(), result)
	require.NoError(t, err)

	require.Len(t, api.created, 1)
	req := api.created[0]
	assert.Equal(t, storefront.StatusShipped, req.Status)
	assert.Equal(t, int64(42), req.CustomerID)
	assert.Equal(t, "buyer@example.com", req.Email)
}

func TestProcess_DuplicateFriendOrderSkipped(t *testing.T) {
	api := &fakeAPI{
		site: fulfillment.SiteMini,
		completed: []fulfillment.Order{
			starterOrder(103, "friend@example.com", map[string]string{
				metaSecondLanguage: "일본어",
			}),
		},
		recent: []fulfillment.Order{{
			ID:    900001,
			Email: "Friend@Example.com",
			Items: []fulfillment.Item{{
				Meta: map[string]string{metaOriginalOrderID: "103"},
			}},
		}},
	}
	svc := NewFriendBundleService(api, 999, nil)
	result := fulfillment.NewRunResult(time.Now())

	err := svc.Process(context.Background(), time.Now().Add(-24*time.Hour), time.Now(), result)
	require.NoError(t, err)

	assert.Empty(t, api.created)
	assert.Equal(t, 0, result.FriendOrders)

	// The existing friend order shows up in the run report.
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "S103")
	assert.Contains(t, result.Warnings[0], "900001")
}

func TestProcess_LookbackNarrowsScanWindow(t *testing.T) {
	api := &fakeAPI{site: fulfillment.SiteMini}
	svc := NewFriendBundleService(api, 999, nil, WithLookback(30*time.Minute))
	result := fulfillment.NewRunResult(time.Now())

	to := time.Date(2025, 6, 2, 16, 0, 0, 0, time.UTC)
	err := svc.Process(context.Background(), to.Add(-72*time.Hour), to, result)
	require.NoError(t, err)

	assert.Equal(t, to.Add(-30*time.Minute), api.listFrom)
	assert.Equal(t, to, api.listTo)
}

func TestProcess_LookbackNeverWidensWindow(t *testing.T) {
	api := &fakeAPI{site: fulfillment.SiteMini}
	svc := NewFriendBundleService(api, 999, nil, WithLookback(72*time.Hour))
	result := fulfillment.NewRunResult(time.Now())

	to := time.Date(2025, 6, 2, 16, 0, 0, 0, time.UTC)
	from := to.Add(-30 * time.Minute)
	err := svc.Process(context.Background(), from, to, result)
	require.NoError(t, err)

	assert.Equal(t, from, api.listFrom)
}

func TestProcess_SkipsNonStarterAndMissingLanguage(t *testing.T) {
	api := &fakeAPI{
		site: fulfillment.SiteMini,
		completed: []fulfillment.Order{
			{
				ID:    104,
				Site:  fulfillment.SiteMini,
				Items: []fulfillment.Item{{Name: "일반 학습지", Meta: nil}},
			},
			starterOrder(105, "friend@example.com", map[string]string{}),
		},
	}
	svc := NewFriendBundleService(api, 999, nil)
	result := fulfillment.NewRunResult(time.Now())

	err := svc.Process(context.Background(), time.Now().Add(-24*time.Hour), time.Now(), result)
	require.NoError(t, err)

	assert.Empty(t, api.created)
	assert.Empty(t, result.Errors)
}

func TestProcess_OtherSiteIsNoop(t *testing.T) {
	api := &fakeAPI{
		site: fulfillment.SiteDok,
		completed: []fulfillment.Order{
			starterOrder(106, "friend@example.com", map[string]string{
				metaSecondLanguage: "일본어",
			}),
		},
	}
	svc := NewFriendBundleService(api, 999, nil)
	result := fulfillment.NewRunResult(time.Now())

	err := svc.Process(context.Background(), time.Now().Add(-24*time.Hour), time.Now(), result)
	require.NoError(t, err)
	assert.Empty(t, api.created)
}
