package sheetwatch

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// ExportMIMETypes maps the export formats a spreadsheet supports to MIME types.
var ExportMIMETypes = map[string]string{
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"ods":  "application/vnd.oasis.opendocument.spreadsheet",
	"pdf":  "application/pdf",
	"csv":  "text/csv",
	"tsv":  "text/tab-separated-values",
	"zip":  "application/zip",
}

// SpreadsheetMetadata is what Drive knows about the spreadsheet file.
type SpreadsheetMetadata struct {
	Name           string
	ModifiedTime   time.Time
	LastModifiedBy string
}

// MetadataFetcher looks up file metadata of a spreadsheet.
type MetadataFetcher interface {
	SpreadsheetMetadata(ctx context.Context, spreadsheetID string) (*SpreadsheetMetadata, error)
}

// Exporter exports a spreadsheet into a downloadable format.
type Exporter interface {
	Export(ctx context.Context, spreadsheetID, format string) (*ExportResult, error)
}

// DriveClient reads spreadsheet metadata and exports through the Google Drive API v3.
type DriveClient struct {
	svc *drive.Service
}

func NewDriveClient(ctx context.Context, opts ...option.ClientOption) (*DriveClient, error) {
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return &DriveClient{svc: svc}, nil
}

func (d *DriveClient) SpreadsheetMetadata(ctx context.Context, spreadsheetID string) (*SpreadsheetMetadata, error) {
	f, err := d.svc.Files.Get(spreadsheetID).
		SupportsAllDrives(true).
		Fields("name", "modifiedTime", "lastModifyingUser(displayName,emailAddress)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, newAccessError(spreadsheetID, err)
	}
	meta := &SpreadsheetMetadata{Name: f.Name}
	if f.ModifiedTime != "" {
		if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
			meta.ModifiedTime = t
		}
	}
	if u := f.LastModifyingUser; u != nil {
		meta.LastModifiedBy = coalesce(u.DisplayName, u.EmailAddress)
	}
	return meta, nil
}

// ExportResult contains the body of an export.
type ExportResult struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// Export exports the spreadsheet to format, one of the ExportMIMETypes keys.
func (d *DriveClient) Export(ctx context.Context, spreadsheetID, format string) (*ExportResult, error) {
	mimeType, ok := ExportMIMETypes[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
	resp, err := d.svc.Files.Export(spreadsheetID, mimeType).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("export spreadsheet %s as %s: %w", spreadsheetID, format, newAccessError(spreadsheetID, err))
	}
	return &ExportResult{
		Body:        resp.Body,
		ContentType: mimeType,
		Size:        resp.ContentLength,
	}, nil
}
