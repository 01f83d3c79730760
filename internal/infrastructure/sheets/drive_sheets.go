// Package sheets finds and reads the logistics partner's daily tracking
// sheets on the shared Google Drive.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/noisycontents/fulfillment/internal/domain/tracking"
)

// readRange bounds a sheet read; a partner sheet never exceeds a thousand
// rows in practice.
const readRange = "A1:Z1000"

// ErrNoSheetData indicates the sheet exists but carries no data rows.
var ErrNoSheetData = errors.New("sheets: no data rows")

// b2bFilePattern matches "b2b" as its own token in a file name, so a sheet
// like "250602 b2b 송장" is excluded while a false hit inside a word is not.
var b2bFilePattern = regexp.MustCompile(`(?:^|[ _-])b2b(?:$|[ ._-])`)

// TrackingSheet is one discovered partner sheet.
type TrackingSheet struct {
	ID   string
	Name string
}

// International reports whether the file name marks an overseas sheet, which
// uses the postal service's column vocabulary.
func (s TrackingSheet) International() bool {
	lower := strings.ToLower(s.Name)
	return strings.Contains(lower, "해외") || strings.Contains(lower, "ems")
}

// DriveSheetsClient discovers tracking sheets in a shared-drive folder and
// reads their rows.
type DriveSheetsClient struct {
	drive  *drive.Service
	sheets *gsheets.Service
	logger *zap.Logger

	sharedDriveID string
	folderID      string
}

// NewDriveSheetsClient authenticates with the service-account credentials in
// credsJSON and binds to the partner's shared-drive folder.
func NewDriveSheetsClient(ctx context.Context, credsJSON []byte, sharedDriveID, folderID string, logger *zap.Logger) (*DriveSheetsClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	driveSvc, err := drive.NewService(ctx,
		option.WithCredentialsJSON(credsJSON),
		option.WithScopes(drive.DriveReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("sheets: drive auth failed: %w", err)
	}
	sheetsSvc, err := gsheets.NewService(ctx,
		option.WithCredentialsJSON(credsJSON),
		option.WithScopes(gsheets.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("sheets: sheets auth failed: %w", err)
	}
	return &DriveSheetsClient{
		drive:         driveSvc,
		sheets:        sheetsSvc,
		logger:        logger,
		sharedDriveID: sharedDriveID,
		folderID:      folderID,
	}, nil
}

// FindTrackingSheets lists the spreadsheets in the partner folder whose name
// starts with the day's YYMMDD prefix. Wholesale ("b2b") and head-office
// ("본사") sheets belong to other workflows and are skipped.
func (c *DriveSheetsClient) FindTrackingSheets(ctx context.Context, day time.Time) ([]TrackingSheet, error) {
	prefix := day.Format("060102")
	query := fmt.Sprintf(
		"'%s' in parents and trashed=false and mimeType='application/vnd.google-apps.spreadsheet' and name contains '%s'",
		c.folderID, prefix)

	list, err := c.drive.Files.List().
		Context(ctx).
		Q(query).
		Corpora("drive").
		DriveId(c.sharedDriveID).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		PageSize(50).
		Fields("files(id, name, mimeType, modifiedTime)").
		Do()
	if err != nil {
		return nil, fmt.Errorf("sheets: file search failed: %w", err)
	}

	var found []TrackingSheet
	for _, f := range list.Files {
		switch {
		case !strings.HasPrefix(f.Name, prefix):
			continue
		case b2bFilePattern.MatchString(strings.ToLower(f.Name)):
			c.logger.Info("skipping wholesale sheet", zap.String("name", f.Name))
		case strings.Contains(f.Name, "본사"):
			c.logger.Info("skipping head-office sheet", zap.String("name", f.Name))
		default:
			found = append(found, TrackingSheet{ID: f.Id, Name: f.Name})
			c.logger.Info("tracking sheet found", zap.String("name", f.Name))
		}
	}
	return found, nil
}

// ReadRows reads the first tab of the sheet into reconciler rows, retrying
// transient transport failures with exponential backoff.
func (c *DriveSheetsClient) ReadRows(ctx context.Context, sheet TrackingSheet) ([]tracking.SheetRow, error) {
	var rows []tracking.SheetRow
	operation := func() error {
		var err error
		rows, err = c.readOnce(ctx, sheet)
		if err != nil && !isTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(2*time.Second),
		backoff.WithMultiplier(2),
		backoff.WithRandomizationFactor(0),
	), 2), ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *DriveSheetsClient) readOnce(ctx context.Context, sheet TrackingSheet) ([]tracking.SheetRow, error) {
	meta, err := c.sheets.Spreadsheets.Get(sheet.ID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets: metadata read failed: %w", err)
	}
	if len(meta.Sheets) == 0 {
		return nil, ErrNoSheetData
	}
	tab := meta.Sheets[0].Properties.Title

	values, err := c.sheets.Spreadsheets.Values.
		Get(sheet.ID, fmt.Sprintf("%s!%s", tab, readRange)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("sheets: value read failed: %w", err)
	}
	if len(values.Values) <= 1 {
		return nil, ErrNoSheetData
	}

	return MapRows(values.Values, sheet.International()), nil
}

// Column names as the partner writes them. Overseas sheets come from the
// postal service's template and use a different vocabulary.
var (
	domesticColumns = map[string]string{
		"주문번호":  "order",
		"송장번호":  "tracking",
		"수령인명":  "recipient",
		"배송지주소": "address",
		"국가코드":  "country",
	}
	overseasColumns = map[string]string{
		"고객주문번호":   "order",
		"등기번호":     "tracking",
		"수취인명":     "recipient",
		"수취인 주소":   "address",
		"수취인 국가코드": "country",
	}
)

// MapRows converts a raw values grid (header row first) into reconciler
// rows, normalizing the column vocabulary. Short rows are padded.
func MapRows(grid [][]any, international bool) []tracking.SheetRow {
	if len(grid) < 2 {
		return nil
	}
	columns := domesticColumns
	if international {
		columns = overseasColumns
	}

	index := make(map[string]int)
	for i, h := range grid[0] {
		name, _ := h.(string)
		if canonical, ok := columns[strings.TrimSpace(name)]; ok {
			index[canonical] = i
		}
	}

	cell := func(row []any, name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) || row[i] == nil {
			return ""
		}
		if s, ok := row[i].(string); ok {
			return strings.TrimSpace(s)
		}
		return strings.TrimSpace(fmt.Sprint(row[i]))
	}

	rows := make([]tracking.SheetRow, 0, len(grid)-1)
	for _, raw := range grid[1:] {
		rows = append(rows, tracking.SheetRow{
			OrderNumber:    cell(raw, "order"),
			TrackingNumber: cell(raw, "tracking"),
			Recipient:      cell(raw, "recipient"),
			Address:        cell(raw, "address"),
			CountryCode:    cell(raw, "country"),
		})
	}
	return rows
}

// transientKeywords mark errors worth retrying; permission and not-found
// errors abort immediately.
var (
	transientKeywords = []string{"broken pipe", "connection", "timeout", "network", "errno 32"}
	permanentKeywords = []string{"permission", "not found", "404", "403", "401"}
)

func isTransient(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, kw := range permanentKeywords {
		if strings.Contains(msg, kw) {
			return false
		}
	}
	for _, kw := range transientKeywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}
