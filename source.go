package sheetwatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SourceOption holds what identifies the monitored data.
type SourceOption struct {
	Credentials   string `help:"service account credentials: JSON, base64 encoded JSON, a path to a JSON file or ssm://<parameter name>" env:"GOOGLE_CREDENTIALS_PATH"`
	SpreadsheetID string `name:"spreadsheet-id" help:"ID of the spreadsheet to monitor" env:"GOOGLE_SHEET_ID"`
	Worksheets    string `help:"comma separated worksheet names to monitor" env:"SOURCE_WORKSHEETS"`
}

// WorksheetNames returns the monitored worksheet names in configured order.
func (o SourceOption) WorksheetNames() []string {
	return SplitList(o.Worksheets)
}

// Validate reports the first missing required value.
func (o SourceOption) Validate() error {
	if strings.TrimSpace(o.SpreadsheetID) == "" {
		return &ConfigurationError{Field: "GOOGLE_SHEET_ID"}
	}
	if len(o.WorksheetNames()) == 0 {
		return &ConfigurationError{Field: "SOURCE_WORKSHEETS"}
	}
	return nil
}

// Source fetches the contents of worksheets. Worksheets that do not exist
// are skipped, so the result may be shorter than names.
type Source interface {
	FetchWorksheets(ctx context.Context, spreadsheetID string, names []string) ([]*WorksheetSnapshot, error)
}

// SheetsSource reads worksheets with the Google Sheets API v4.
type SheetsSource struct {
	svc *sheets.Service
}

func NewSheetsSource(ctx context.Context, opts ...option.ClientOption) (*SheetsSource, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &SheetsSource{svc: svc}, nil
}

// WorksheetTitles lists the titles of all worksheets in the spreadsheet.
func (s *SheetsSource) WorksheetTitles(ctx context.Context, spreadsheetID string) ([]string, error) {
	resp, err := s.svc.Spreadsheets.Get(spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return nil, newAccessError(spreadsheetID, err)
	}
	titles := make([]string, 0, len(resp.Sheets))
	for _, sheet := range resp.Sheets {
		if sheet.Properties == nil {
			continue
		}
		titles = append(titles, sheet.Properties.Title)
	}
	slog.DebugContext(ctx, "listed worksheets", "spreadsheet_id", spreadsheetID, "titles", titles)
	return titles, nil
}

func (s *SheetsSource) FetchWorksheets(ctx context.Context, spreadsheetID string, names []string) ([]*WorksheetSnapshot, error) {
	titles, err := s.WorksheetTitles(ctx, spreadsheetID)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "opened spreadsheet", "spreadsheet_id", spreadsheetID)
	snapshots := make([]*WorksheetSnapshot, 0, len(names))
	for _, name := range names {
		if !slices.Contains(titles, name) {
			slog.WarnContext(ctx, "worksheet not found, skipping", "worksheet", name)
			continue
		}
		vr, err := s.svc.Spreadsheets.Values.Get(spreadsheetID, QuoteSheetName(name)).
			MajorDimension("ROWS").
			Context(ctx).
			Do()
		if err != nil {
			return nil, newAccessError(spreadsheetID, err)
		}
		snapshot := &WorksheetSnapshot{
			Name: name,
			Rows: cellRows(vr.Values),
		}
		slog.InfoContext(ctx, "fetched worksheet", "worksheet", name, "rows_with_data", snapshot.RowsWithData())
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}

// QuoteSheetName returns the sheet name as an A1 range covering the whole sheet.
func QuoteSheetName(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func cellRows(values [][]interface{}) [][]string {
	return Map(values, func(row []interface{}) []string {
		return Map(row, func(cell interface{}) string {
			if cell == nil {
				return ""
			}
			return fmt.Sprint(cell)
		})
	})
}

func newAccessError(spreadsheetID string, err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return &AccessError{SpreadsheetID: spreadsheetID, Err: err}
	}
	var reason error
	switch gerr.Code {
	case http.StatusUnauthorized:
		reason = fmt.Errorf("credentials were rejected: %w", err)
	case http.StatusForbidden, http.StatusNotFound:
		reason = fmt.Errorf("spreadsheet not found or the service account has not been granted access: %w", err)
	default:
		reason = fmt.Errorf("sheets api error: %w", err)
	}
	return &AccessError{SpreadsheetID: spreadsheetID, StatusCode: gerr.Code, Err: reason}
}
