package sheetwatch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3PutObjectClient is the subset of *s3.Client used by S3Uploader.
type S3PutObjectClient interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader handles file uploads to Amazon S3.
type S3Uploader struct {
	client S3PutObjectClient
}

// NewS3Uploader creates a new S3Uploader with the given client.
func NewS3Uploader(client S3PutObjectClient) *S3Uploader {
	return &S3Uploader{
		client: client,
	}
}

// UploadInput contains parameters for uploading a file to S3.
type UploadInput struct {
	Bucket      string
	Key         string
	Body        io.Reader
	ContentType string
}

// UploadOutput contains the result of an upload operation.
type UploadOutput struct {
	S3URI string
	Size  int64
}

// Upload uploads data to S3 and returns the S3 URI.
func (u *S3Uploader) Upload(ctx context.Context, input *UploadInput) (*UploadOutput, error) {
	// PutObject needs the Content-Length up front
	buf, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, fmt.Errorf("read body for s3://%s/%s: %w", input.Bucket, input.Key, err)
	}

	putInput := &s3.PutObjectInput{
		Bucket:        aws.String(input.Bucket),
		Key:           aws.String(input.Key),
		Body:          bytes.NewReader(buf),
		ContentLength: aws.Int64(int64(len(buf))),
	}
	if input.ContentType != "" {
		putInput.ContentType = aws.String(input.ContentType)
	}

	if _, err := u.client.PutObject(ctx, putInput); err != nil {
		return nil, fmt.Errorf("upload to s3://%s/%s: %w", input.Bucket, input.Key, err)
	}

	return &UploadOutput{
		S3URI: fmt.Sprintf("s3://%s/%s", input.Bucket, input.Key),
		Size:  int64(len(buf)),
	}, nil
}

// ParseS3URI splits s3://bucket/key. A key ending in "/" is completed with fileName.
func ParseS3URI(uri string, fileName string) (bucket string, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("parse %s: %w", uri, err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("%s is not an s3:// URI", uri)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" || strings.HasSuffix(key, "/") {
		key += fileName
	}
	return u.Host, key, nil
}
