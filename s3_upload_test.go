package sheetwatch_test

import (
	"context"
	"strings"
	"testing"

	"github.com/pullus/sheetwatch"
	"github.com/stretchr/testify/require"
)

func TestParseS3URI(t *testing.T) {
	cases := []struct {
		uri    string
		bucket string
		key    string
	}{
		{uri: "s3://bucket/path/file.xlsx", bucket: "bucket", key: "path/file.xlsx"},
		{uri: "s3://bucket/path/", bucket: "bucket", key: "path/default.xlsx"},
		{uri: "s3://bucket", bucket: "bucket", key: "default.xlsx"},
		{uri: "s3://bucket/", bucket: "bucket", key: "default.xlsx"},
	}
	for _, c := range cases {
		t.Run(c.uri, func(t *testing.T) {
			bucket, key, err := sheetwatch.ParseS3URI(c.uri, "default.xlsx")
			require.NoError(t, err)
			require.Equal(t, c.bucket, bucket)
			require.Equal(t, c.key, key)
		})
	}

	for _, uri := range []string{"https://bucket/key", "s3:///key", "bucket/key"} {
		_, _, err := sheetwatch.ParseS3URI(uri, "default.xlsx")
		require.Error(t, err, uri)
	}
}

func TestS3Uploader_Upload(t *testing.T) {
	client := &fakeS3{}
	out, err := sheetwatch.NewS3Uploader(client).Upload(context.Background(), &sheetwatch.UploadInput{
		Bucket:      "bucket",
		Key:         "snapshots/a.csv",
		Body:        strings.NewReader("Date,Batch Number\n15-Jan-2025,BF-001\n"),
		ContentType: "text/csv",
	})
	require.NoError(t, err)
	require.Equal(t, "s3://bucket/snapshots/a.csv", out.S3URI)
	require.EqualValues(t, 37, out.Size)
	require.Len(t, client.objects, 1)
	require.Equal(t, "text/csv", client.objects[0].ContentType)
}
