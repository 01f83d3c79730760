// Package manifest persists shipping manifests as xlsx files in the layout
// the logistics partner's intake system expects.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/noisycontents/fulfillment/internal/domain/fulfillment"
)

const sheetName = "Sheet1"

// File name patterns, keyed by site and channel. The partner matches files
// by these exact names.
const (
	fileMiniDomestic  = "%s 노이지콘텐츠주문서(미니학습지_국내).xlsx"
	fileDokDomestic   = "%s 노이지콘텐츠주문서(독독독_국내).xlsx"
	fileInternational = "%s 노이지콘텐츠주문서(EMS).xlsx"
	filePOBox         = "우체국용_사서함_주문_%s.xlsx"
)

// ExcelStore reads and writes manifest spreadsheets under one directory.
type ExcelStore struct {
	dir    string
	logger *zap.Logger
}

// NewExcelStore creates the output directory if needed.
func NewExcelStore(dir string, logger *zap.Logger) (*ExcelStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("manifest: failed to create output dir: %w", err)
	}
	return &ExcelStore{dir: dir, logger: logger}, nil
}

// DomesticPath returns the manifest file path for a site's parcel channel on
// the given day.
func (s *ExcelStore) DomesticPath(site fulfillment.Site, day time.Time) string {
	pattern := fileMiniDomestic
	if site == fulfillment.SiteDok {
		pattern = fileDokDomestic
	}
	return filepath.Join(s.dir, fmt.Sprintf(pattern, day.Format("060102")))
}

// InternationalPath returns the shared overseas manifest path for the day.
// Both sites append to the same file.
func (s *ExcelStore) InternationalPath(day time.Time) string {
	return filepath.Join(s.dir, fmt.Sprintf(fileInternational, day.Format("060102")))
}

// POBoxPath returns the postal-desk manifest path for the day.
func (s *ExcelStore) POBoxPath(day time.Time) string {
	return filepath.Join(s.dir, fmt.Sprintf(filePOBox, day.Format("060102")))
}

// Write saves rows to path, replacing any existing file.
func (s *ExcelStore) Write(path string, rows []fulfillment.ManifestRow) error {
	return s.save(path, rows)
}

// Append merges rows into the existing manifest at path, creating it when it
// does not exist yet. The merge is a plain read-concat-write; upstream
// classification guarantees an order shows up once per channel per day.
func (s *ExcelStore) Append(path string, rows []fulfillment.ManifestRow) error {
	var existing []fulfillment.ManifestRow
	if _, err := os.Stat(path); err == nil {
		existing, err = s.Read(path)
		if err != nil {
			return err
		}
	}
	return s.save(path, fulfillment.MergeRows(existing, rows))
}

// Read loads the manifest rows from path. A missing header column comes back
// as an empty string rather than an error: partners occasionally hand back
// trimmed sheets.
func (s *ExcelStore) Read(path string) ([]fulfillment.ManifestRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	raw, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("manifest: failed to read %s: %w", path, err)
	}
	if len(raw) < 2 {
		return nil, nil
	}

	colIdx := make(map[string]int, len(raw[0]))
	for i, name := range raw[0] {
		colIdx[name] = i
	}
	cell := func(row []string, name string) string {
		idx, ok := colIdx[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	rows := make([]fulfillment.ManifestRow, 0, len(raw)-1)
	for _, r := range raw[1:] {
		rows = append(rows, fulfillment.ManifestRow{
			OrderNumber: cell(r, "주문번호"),
			ProductName: cell(r, "상품명"),
			ItemCode:    cell(r, "품번코드"),
			MallCode:    cell(r, "쇼핑몰상품코드"),
			Quantity:    cell(r, "수량"),
			Recipient:   cell(r, "수령인명"),
			Phone1:      cell(r, "수령인연락처1"),
			Phone2:      cell(r, "수령인연락처2"),
			PostalCode:  cell(r, "우편번호"),
			Address:     cell(r, "배송지주소"),
			Message:     cell(r, "배송메세지"),
			TrackingNo:  cell(r, "송장번호"),
			CountryCode: cell(r, "국가코드"),
		})
	}
	return rows, nil
}

// save writes the workbook, forcing the phone, quantity and postal columns
// into text format so leading zeros survive a round trip through
// spreadsheet software.
func (s *ExcelStore) save(path string, rows []fulfillment.ManifestRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetRow(sheetName, "A1", headerRow()); err != nil {
		return fmt.Errorf("manifest: failed to write header: %w", err)
	}
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		cols := row.Columns()
		values := make([]any, len(cols))
		for j, v := range cols {
			values[j] = v
		}
		if err := f.SetSheetRow(sheetName, cellRef, &values); err != nil {
			return fmt.Errorf("manifest: failed to write row %d: %w", i+2, err)
		}
	}

	if err := s.applyTextFormat(f, len(rows)); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("manifest: failed to save %s: %w", path, err)
	}
	s.logger.Info("manifest saved", zap.String("path", path), zap.Int("rows", len(rows)))
	return nil
}

func headerRow() *[]any {
	header := make([]any, len(fulfillment.ManifestHeader))
	for i, h := range fulfillment.ManifestHeader {
		header[i] = h
	}
	return &header
}

func (s *ExcelStore) applyTextFormat(f *excelize.File, rowCount int) error {
	textFmt := "@"
	style, err := f.NewStyle(&excelize.Style{CustomNumFmt: &textFmt})
	if err != nil {
		return fmt.Errorf("manifest: failed to create text style: %w", err)
	}

	textCols := make(map[string]bool, len(fulfillment.TextColumns))
	for _, c := range fulfillment.TextColumns {
		textCols[c] = true
	}
	for i, name := range fulfillment.ManifestHeader {
		if !textCols[name] {
			continue
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if rowCount == 0 {
			continue
		}
		top := fmt.Sprintf("%s2", col)
		bottom := fmt.Sprintf("%s%d", col, rowCount+1)
		if err := f.SetCellStyle(sheetName, top, bottom, style); err != nil {
			return fmt.Errorf("manifest: failed to style column %s: %w", col, err)
		}
	}
	return nil
}

// CollectDaily returns the shipping manifests written for the given day, in
// a stable order, skipping the ones that were never produced. The PO box file
// is not a shipping manifest and travels with the result mail instead.
func (s *ExcelStore) CollectDaily(day time.Time) []string {
	candidates := []string{
		s.DomesticPath(fulfillment.SiteDok, day),
		s.DomesticPath(fulfillment.SiteMini, day),
		s.InternationalPath(day),
	}
	var existing []string
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	return existing
}
