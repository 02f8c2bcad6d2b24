package sheetwatch

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pullus/sheetwatch/pkg/qatracker"
)

// TemplateOption contains options for the template command.
type TemplateOption struct {
	Output string `help:"path of the generated workbook" default:"Pullus_QA_Tracker_Template.xlsx" env:"SHEETWATCH_TEMPLATE_OUTPUT"`
	Rows   int    `help:"data rows prepared with formulas, styles and dropdowns" default:"2000" env:"SHEETWATCH_TEMPLATE_ROWS"`
	NoDemo bool   `help:"leave the sample rows out" default:"false" env:"SHEETWATCH_TEMPLATE_NO_DEMO"`
	S3URI  string `name:"s3-uri" help:"also upload the workbook to this s3:// URI; a URI ending in / gets the file name appended" env:"SHEETWATCH_TEMPLATE_S3_URI"`
}

// GenerateTemplate writes the QA tracker workbook to opt.Output and, when
// opt.S3URI is set, uploads the same bytes with uploader.
func GenerateTemplate(ctx context.Context, opt TemplateOption, uploader *S3Uploader) error {
	if opt.Output == "" {
		opt.Output = qatracker.DefaultFileName
	}
	var bucket, key string
	if opt.S3URI != "" {
		if uploader == nil {
			return &ConfigurationError{Field: "template-s3-uri", Err: fmt.Errorf("no S3 client available")}
		}
		var err error
		bucket, key, err = ParseS3URI(opt.S3URI, filepath.Base(opt.Output))
		if err != nil {
			return &ConfigurationError{Field: "template-s3-uri", Err: err}
		}
	}

	var buf bytes.Buffer
	if err := qatracker.Write(&buf, qatracker.Options{Rows: opt.Rows, SkipDemo: opt.NoDemo}); err != nil {
		return fmt.Errorf("generate template: %w", err)
	}
	if err := os.WriteFile(opt.Output, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write template: %w", err)
	}
	slog.InfoContext(ctx, "QA tracker template created", "path", opt.Output, "size", buf.Len())

	if opt.S3URI == "" {
		return nil
	}
	out, err := uploader.Upload(ctx, &UploadInput{
		Bucket:      bucket,
		Key:         key,
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: qatracker.ContentType,
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "QA tracker template uploaded", "s3_uri", out.S3URI, "size", out.Size)
	return nil
}
