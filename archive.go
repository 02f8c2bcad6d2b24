package sheetwatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Songmu/flextime"
	"github.com/pullus/sheetwatch/pkg/sheetevent"
)

// ArchiveConfig keeps an exported copy of the spreadsheet in S3 whenever a
// change is detected. BucketName and ObjectKey can be CEL expressions or
// static values.
//
//	archive:
//	  when: "!outcome.firstRun"
//	  bucket_name: qa-tracker-archive
//	  object_key: '"snapshots/" + outcome.spreadsheetId + "/" + outcome.contentHash + ".xlsx"'
//	  format: xlsx
type ArchiveConfig struct {
	When       ExprOrBool   `yaml:"when,omitempty"`
	BucketName ExprOrString `yaml:"bucket_name"`
	ObjectKey  ExprOrString `yaml:"object_key"`
	Format     string       `yaml:"format,omitempty"`
}

const DefaultArchiveFormat = "xlsx"

// Bind validates and binds CEL expressions in the configuration.
func (c *ArchiveConfig) Bind(env *CELEnv) error {
	if c.When.Raw() == "" {
		c.When = NewExprOrBool("true")
	}
	if c.Format == "" {
		c.Format = DefaultArchiveFormat
	}
	c.Format = strings.ToLower(c.Format)
	if _, ok := ExportMIMETypes[c.Format]; !ok {
		return &ConfigurationError{Field: "archive.format", Err: fmt.Errorf("unsupported export format %q", c.Format)}
	}
	if err := c.When.Bind(env); err != nil {
		return &ConfigurationError{Field: "archive.when", Err: err}
	}
	if c.BucketName.Raw() == "" {
		return &ConfigurationError{Field: "archive.bucket_name"}
	}
	if err := c.BucketName.Bind(env); err != nil {
		return &ConfigurationError{Field: "archive.bucket_name", Err: err}
	}
	if c.ObjectKey.Raw() == "" {
		return &ConfigurationError{Field: "archive.object_key"}
	}
	if err := c.ObjectKey.Bind(env); err != nil {
		return &ConfigurationError{Field: "archive.object_key", Err: err}
	}
	return nil
}

// Archiver exports the spreadsheet and uploads the export to S3.
type Archiver struct {
	config   *ArchiveConfig
	exporter Exporter
	uploader *S3Uploader
}

func NewArchiver(cfg *ArchiveConfig, exporter Exporter, uploader *S3Uploader) *Archiver {
	return &Archiver{
		config:   cfg,
		exporter: exporter,
		uploader: uploader,
	}
}

// Archive returns nil when the when expression is false or when any step
// fails. Failures are logged as warnings and do not stop the check.
func (a *Archiver) Archive(ctx context.Context, outcome *sheetevent.Outcome) *sheetevent.Archive {
	ok, err := a.config.When.Eval(outcome)
	if err != nil {
		slog.WarnContext(ctx, "archive: failed to evaluate when", "error", err)
		return nil
	}
	if !ok {
		slog.DebugContext(ctx, "archive: when is false, skipping")
		return nil
	}
	bucketName, err := a.config.BucketName.Eval(outcome)
	if err != nil {
		slog.WarnContext(ctx, "archive: failed to evaluate bucket_name", "error", err)
		return nil
	}
	objectKey, err := a.config.ObjectKey.Eval(outcome)
	if err != nil {
		slog.WarnContext(ctx, "archive: failed to evaluate object_key", "error", err)
		return nil
	}
	if bucketName == "" || objectKey == "" {
		slog.WarnContext(ctx, "archive: bucket_name or object_key evaluated to empty", "bucket", bucketName, "key", objectKey)
		return nil
	}

	slog.InfoContext(ctx, "archive: exporting spreadsheet",
		"spreadsheet_id", outcome.SpreadsheetID,
		"bucket", bucketName,
		"key", objectKey,
		"format", a.config.Format,
	)
	export, err := a.exporter.Export(ctx, outcome.SpreadsheetID, a.config.Format)
	if err != nil {
		slog.WarnContext(ctx, "archive: failed to export spreadsheet", "error", err)
		return nil
	}
	defer export.Body.Close()

	out, err := a.uploader.Upload(ctx, &UploadInput{
		Bucket:      bucketName,
		Key:         objectKey,
		Body:        export.Body,
		ContentType: export.ContentType,
	})
	if err != nil {
		slog.WarnContext(ctx, "archive: failed to upload to S3", "bucket", bucketName, "key", objectKey, "error", err)
		return nil
	}
	slog.InfoContext(ctx, "archive: completed", "s3_uri", out.S3URI, "size", out.Size)
	return &sheetevent.Archive{
		S3URI:       out.S3URI,
		ContentType: export.ContentType,
		Size:        out.Size,
		ArchivedAt:  flextime.Now(),
	}
}
