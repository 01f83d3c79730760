package manifest

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noisycontents/fulfillment/internal/domain/fulfillment"
)

func testStore(t *testing.T) *ExcelStore {
	t.Helper()
	store, err := NewExcelStore(t.TempDir(), nil)
	require.NoError(t, err)
	return store
}

func sampleRow(orderNumber string) fulfillment.ManifestRow {
	return fulfillment.ManifestRow{
		OrderNumber: orderNumber,
		ProductName: "스페인어 30일",
		ItemCode:    "spanish",
		MallCode:    "spanish-30",
		Quantity:    "1",
		Recipient:   "김철수",
		Phone1:      "010-1234-5678",
		Phone2:      "010-1234-5678",
		PostalCode:  "06234",
		Address:     "서울특별시 강남구 테헤란로 1",
	}
}

func TestWriteAndRead_RoundTrip(t *testing.T) {
	store := testStore(t)
	path := filepath.Join(t.TempDir(), "orders.xlsx")

	require.NoError(t, store.Write(path, []fulfillment.ManifestRow{sampleRow("S100"), sampleRow("S101")}))

	rows, err := store.Read(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "S100", rows[0].OrderNumber)
	assert.Equal(t, "06234", rows[0].PostalCode)
	assert.Equal(t, "서울특별시 강남구 테헤란로 1", rows[1].Address)
}

func TestAppend_MergesIntoExistingFile(t *testing.T) {
	store := testStore(t)
	path := filepath.Join(t.TempDir(), "ems.xlsx")

	require.NoError(t, store.Append(path, []fulfillment.ManifestRow{sampleRow("S100")}))
	require.NoError(t, store.Append(path, []fulfillment.ManifestRow{sampleRow("D200")}))

	rows, err := store.Read(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "S100", rows[0].OrderNumber)
	assert.Equal(t, "D200", rows[1].OrderNumber)
}

func TestPaths(t *testing.T) {
	store := testStore(t)
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	assert.Contains(t, store.DomesticPath(fulfillment.SiteMini, day), "250602 노이지콘텐츠주문서(미니학습지_국내).xlsx")
	assert.Contains(t, store.DomesticPath(fulfillment.SiteDok, day), "250602 노이지콘텐츠주문서(독독독_국내).xlsx")
	assert.Contains(t, store.InternationalPath(day), "250602 노이지콘텐츠주문서(EMS).xlsx")
	assert.Contains(t, store.POBoxPath(day), "우체국용_사서함_주문_250602.xlsx")
}

func TestCollectDaily_ListsOnlyWrittenFiles(t *testing.T) {
	store := testStore(t)
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Write(store.DomesticPath(fulfillment.SiteMini, day), []fulfillment.ManifestRow{sampleRow("S100")}))
	require.NoError(t, store.Append(store.InternationalPath(day), []fulfillment.ManifestRow{sampleRow("S101")}))

	files := store.CollectDaily(day)

	require.Len(t, files, 2)
	assert.Contains(t, files[0], "미니학습지_국내")
	assert.Contains(t, files[1], "EMS")
}
