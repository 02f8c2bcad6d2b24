package sheetwatch_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofrs/flock"
	"github.com/pullus/sheetwatch"
	"github.com/pullus/sheetwatch/pkg/sheetevent"
	"github.com/stretchr/testify/require"
)

const testSpreadsheetID = "sheet-id"

var testWorksheets = []string{"QA Data", "Blast Freezing Data"}

type recordingNotification struct {
	mu      sync.Mutex
	details []*sheetevent.Detail
	err     error
	onSend  func(*sheetevent.Detail)
}

func (n *recordingNotification) SendChanges(_ context.Context, detail *sheetevent.Detail) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.details = append(n.details, detail)
	if n.onSend != nil {
		n.onSend(detail)
	}
	return n.err
}

func (n *recordingNotification) Details() []*sheetevent.Detail {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*sheetevent.Detail(nil), n.details...)
}

type putObject struct {
	Bucket      string
	Key         string
	ContentType string
	Body        []byte
}

type fakeS3 struct {
	mu      sync.Mutex
	objects []putObject
	err     error
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	if params.ContentLength != nil && *params.ContentLength != int64(len(body)) {
		return nil, errors.New("content length mismatch")
	}
	f.objects = append(f.objects, putObject{
		Bucket:      aws.ToString(params.Bucket),
		Key:         aws.ToString(params.Key),
		ContentType: aws.ToString(params.ContentType),
		Body:        body,
	})
	return &s3.PutObjectOutput{}, nil
}

func seedQATracker(stub *stubHandler) {
	stub.SetWorksheet(testSpreadsheetID, "QA Data", [][]any{
		{"Date", "Purchase Officer", "Supplier Name"},
		{"15-Jan-2025", "Femi Abubakar", "Adeyemi Farms"},
	})
	stub.SetWorksheet(testSpreadsheetID, "Blast Freezing Data", [][]any{
		{"Date", "Batch Number", "Quantity (kg)"},
		{"15-Jan-2025", "BF-001", "500"},
	})
	stub.SetWorksheet(testSpreadsheetID, "Column Definitions", [][]any{
		{"Column Name", "Description"},
	})
}

type appFixture struct {
	app          *sheetwatch.App
	stub         *stubHandler
	storage      *sheetwatch.FileStorage
	notification *recordingNotification
}

func newAppFixture(t *testing.T, watch *sheetwatch.WatchConfig) *appFixture {
	t.Helper()
	server, stub := NewStub(t)
	seedQATracker(stub)
	storage, err := sheetwatch.NewFileStorage(context.Background(), sheetwatch.StorageOption{
		DataFile: filepath.Join(t.TempDir(), "last_source_hash.json"),
	})
	require.NoError(t, err)
	notification := &recordingNotification{}
	app, err := sheetwatch.New(sheetwatch.AppConfig{
		SpreadsheetID: testSpreadsheetID,
		Worksheets:    testWorksheets,
		Watch:         watch,
	}, newStubSource(t, server), storage, notification)
	require.NoError(t, err)
	return &appFixture{
		app:          app,
		stub:         stub,
		storage:      storage,
		notification: notification,
	}
}

func mustWatchConfig(t *testing.T, yaml string) *sheetwatch.WatchConfig {
	t.Helper()
	env, err := sheetwatch.NewCELEnv()
	require.NoError(t, err)
	cfg, err := sheetwatch.ParseWatchConfig(strings.NewReader(yaml), env)
	require.NoError(t, err)
	return cfg
}

func TestApp_Check(t *testing.T) {
	ctx := context.Background()
	f := newAppFixture(t, nil)

	first, err := f.app.Check(ctx)
	require.NoError(t, err)
	require.True(t, first.Changed)
	require.True(t, first.FirstRun)
	require.Empty(t, first.PreviousHash)
	require.Equal(t, testWorksheets, first.Worksheets)
	require.Len(t, f.notification.Details(), 1)

	stored, err := f.storage.LoadHash(ctx)
	require.NoError(t, err)
	require.Equal(t, first.ContentHash, stored)

	detail := f.notification.Details()[0]
	require.NotEmpty(t, detail.ID)
	require.Equal(t, "Changes detected in 2 worksheet(s)", detail.Subject)
	require.Equal(t, "https://docs.google.com/spreadsheets/d/sheet-id", detail.SpreadsheetURL)
	require.Equal(t, first.ContentHash, detail.ContentHash)
	require.Nil(t, detail.Archive)

	t.Run("unchanged", func(t *testing.T) {
		before := snapshotStateDir(t, f.storage.FilePath)
		second, err := f.app.Check(ctx)
		require.NoError(t, err)
		require.False(t, second.Changed)
		require.False(t, second.FirstRun)
		require.Equal(t, first.ContentHash, second.ContentHash)
		require.Len(t, f.notification.Details(), 1, "no notification without changes")
		require.Equal(t, before, snapshotStateDir(t, f.storage.FilePath), "state directory rewritten")
	})

	t.Run("worksheet outside the monitored set", func(t *testing.T) {
		f.stub.SetWorksheet(testSpreadsheetID, "Column Definitions", [][]any{{"Column Name", "Description", "Type / Values"}})
		outcome, err := f.app.Check(ctx)
		require.NoError(t, err)
		require.False(t, outcome.Changed)
	})

	t.Run("cell edited", func(t *testing.T) {
		f.stub.SetWorksheet(testSpreadsheetID, "Blast Freezing Data", [][]any{
			{"Date", "Batch Number", "Quantity (kg)"},
			{"15-Jan-2025", "BF-001", "520"},
		})
		third, err := f.app.Check(ctx)
		require.NoError(t, err)
		require.True(t, third.Changed)
		require.False(t, third.FirstRun)
		require.Equal(t, first.ContentHash, third.PreviousHash)
		require.NotEqual(t, first.ContentHash, third.ContentHash)

		details := f.notification.Details()
		require.Len(t, details, 2)
		require.Equal(t, first.ContentHash, details[1].PreviousHash)
	})
}

type stateEntry struct {
	Name    string
	ModTime time.Time
	Content string
}

func snapshotStateDir(t *testing.T, dataFile string) []stateEntry {
	t.Helper()
	dir := filepath.Dir(dataFile)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	snapshot := make([]stateEntry, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		require.NoError(t, err)
		bs, err := os.ReadFile(filepath.Join(dir, e.Name()))
		require.NoError(t, err)
		snapshot = append(snapshot, stateEntry{Name: e.Name(), ModTime: info.ModTime(), Content: string(bs)})
	}
	return snapshot
}

type loadOnlyStorage struct {
	sheetwatch.Storage
	t *testing.T
}

func (s loadOnlyStorage) SaveHash(_ context.Context, previous, current string) error {
	s.t.Errorf("SaveHash(%q, %q) called for unchanged content", previous, current)
	return errors.New("unexpected save")
}

func TestApp_Check__UnchangedWritesNothing(t *testing.T) {
	ctx := context.Background()
	f := newAppFixture(t, nil)
	first, err := f.app.Check(ctx)
	require.NoError(t, err)

	server, stub := NewStub(t)
	seedQATracker(stub)
	notification := &recordingNotification{}
	app, err := sheetwatch.New(sheetwatch.AppConfig{
		SpreadsheetID: testSpreadsheetID,
		Worksheets:    testWorksheets,
	}, newStubSource(t, server), loadOnlyStorage{Storage: f.storage, t: t}, notification)
	require.NoError(t, err)

	t.Run("state directory is read-only", func(t *testing.T) {
		dir := filepath.Dir(f.storage.FilePath)
		require.NoError(t, os.Remove(f.storage.LockFile))
		require.NoError(t, os.Chmod(dir, 0o555))
		t.Cleanup(func() { os.Chmod(dir, 0o755) })
		before := snapshotStateDir(t, f.storage.FilePath)

		outcome, err := app.Check(ctx)
		require.NoError(t, err)
		require.False(t, outcome.Changed)
		require.Equal(t, first.ContentHash, outcome.ContentHash)
		require.Empty(t, notification.Details())
		require.Equal(t, before, snapshotStateDir(t, f.storage.FilePath))
	})

	t.Run("lock held by another process", func(t *testing.T) {
		held := flock.New(f.storage.LockFile)
		locked, err := held.TryLock()
		require.NoError(t, err)
		require.True(t, locked)
		defer held.Unlock()

		start := time.Now()
		outcome, err := app.Check(ctx)
		require.NoError(t, err)
		require.False(t, outcome.Changed)
		require.Less(t, time.Since(start), 2*time.Second)
	})
}

func TestApp_Check__SaveBeforeNotify(t *testing.T) {
	ctx := context.Background()
	f := newAppFixture(t, nil)
	var storedAtSend string
	f.notification.err = &sheetwatch.NotificationError{StatusCode: http.StatusInternalServerError}
	f.notification.onSend = func(detail *sheetevent.Detail) {
		var err error
		storedAtSend, err = f.storage.LoadHash(ctx)
		require.NoError(t, err)
	}

	outcome, err := f.app.Check(ctx)
	require.NoError(t, err, "notification failures are not fatal")
	require.True(t, outcome.Changed)
	require.Equal(t, outcome.ContentHash, storedAtSend)

	again, err := f.app.Check(ctx)
	require.NoError(t, err)
	require.False(t, again.Changed, "failed notification is not retried")
}

func TestApp_Check__NotifyWhen(t *testing.T) {
	ctx := context.Background()
	f := newAppFixture(t, mustWatchConfig(t, `notify_when: "!outcome.firstRun"`))

	outcome, err := f.app.Check(ctx)
	require.NoError(t, err)
	require.True(t, outcome.Changed)
	require.Empty(t, f.notification.Details())
	stored, err := f.storage.LoadHash(ctx)
	require.NoError(t, err)
	require.Equal(t, outcome.ContentHash, stored)

	f.stub.SetWorksheet(testSpreadsheetID, "QA Data", [][]any{{"Date"}})
	_, err = f.app.Check(ctx)
	require.NoError(t, err)
	require.Len(t, f.notification.Details(), 1)
}

func TestApp_Check__AccessDenied(t *testing.T) {
	ctx := context.Background()
	f := newAppFixture(t, nil)
	f.stub.Deny(testSpreadsheetID, http.StatusForbidden)

	_, err := f.app.Check(ctx)
	var accessErr *sheetwatch.AccessError
	require.True(t, errors.As(err, &accessErr), "got %v", err)
	require.Equal(t, http.StatusForbidden, accessErr.StatusCode)

	stored, err := f.storage.LoadHash(ctx)
	require.NoError(t, err)
	require.Empty(t, stored, "state untouched on fetch failure")
	require.Empty(t, f.notification.Details())
}

func TestApp_Check__Metadata(t *testing.T) {
	ctx := context.Background()
	f := newAppFixture(t, nil)
	server, stub := NewStub(t)
	seedQATracker(stub)
	f.app.SetMetadataFetcher(newStubDrive(t, server))

	_, err := f.app.Check(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{testSpreadsheetID}, stub.FileGets())
	details := f.notification.Details()
	require.Len(t, details, 1)
	require.Equal(t, "Pullus QA Tracker", details[0].SpreadsheetName)
	require.Equal(t, "Femi Abubakar", details[0].LastModifiedBy)

	t.Run("metadata failure is not fatal", func(t *testing.T) {
		stub.Deny(testSpreadsheetID, http.StatusForbidden)
		f.stub.SetWorksheet(testSpreadsheetID, "QA Data", [][]any{{"Date"}})
		outcome, err := f.app.Check(ctx)
		require.NoError(t, err)
		require.True(t, outcome.Changed)
		details := f.notification.Details()
		require.Len(t, details, 2)
		require.Empty(t, details[1].LastModifiedBy)
	})
}

func TestApp_Check__MetadataSkippedWithoutDelivery(t *testing.T) {
	ctx := context.Background()
	server, stub := NewStub(t)
	seedQATracker(stub)
	storage, err := sheetwatch.NewFileStorage(ctx, sheetwatch.StorageOption{
		DataFile: filepath.Join(t.TempDir(), "last_source_hash.json"),
	})
	require.NoError(t, err)
	notification, err := sheetwatch.NewGoogleChatNotification(ctx, sheetwatch.NotificationOption{}, nil)
	require.NoError(t, err)
	require.False(t, notification.Enabled())
	app, err := sheetwatch.New(sheetwatch.AppConfig{
		SpreadsheetID: testSpreadsheetID,
		Worksheets:    testWorksheets,
	}, newStubSource(t, server), storage, notification)
	require.NoError(t, err)
	app.SetMetadataFetcher(newStubDrive(t, server))

	outcome, err := app.Check(ctx)
	require.NoError(t, err)
	require.True(t, outcome.Changed)
	require.Empty(t, stub.FileGets(), "no Drive lookup for a notification that is dropped")
}

const archiveConfigYAML = `
archive:
  bucket_name: qa-tracker-archive
  object_key: '"snapshots/" + outcome.spreadsheetId + "/" + outcome.contentHash + ".xlsx"'
`

func TestApp_Check__Archive(t *testing.T) {
	ctx := context.Background()
	watch := mustWatchConfig(t, archiveConfigYAML)
	f := newAppFixture(t, watch)
	server, stub := NewStub(t)
	seedQATracker(stub)
	client := &fakeS3{}
	f.app.SetArchiver(sheetwatch.NewArchiver(watch.Archive, newStubDrive(t, server), sheetwatch.NewS3Uploader(client)))

	outcome, err := f.app.Check(ctx)
	require.NoError(t, err)

	xlsx := sheetwatch.ExportMIMETypes["xlsx"]
	require.Equal(t, []string{xlsx}, stub.Exports())
	require.Len(t, client.objects, 1)
	obj := client.objects[0]
	require.Equal(t, "qa-tracker-archive", obj.Bucket)
	require.Equal(t, "snapshots/sheet-id/"+outcome.ContentHash+".xlsx", obj.Key)
	require.Equal(t, xlsx, obj.ContentType)
	require.Equal(t, "exported:sheet-id", string(obj.Body))

	details := f.notification.Details()
	require.Len(t, details, 1)
	require.NotNil(t, details[0].Archive)
	require.Equal(t, "s3://qa-tracker-archive/"+obj.Key, details[0].Archive.S3URI)
	require.EqualValues(t, len("exported:sheet-id"), details[0].Archive.Size)

	t.Run("unchanged content is not archived again", func(t *testing.T) {
		_, err := f.app.Check(ctx)
		require.NoError(t, err)
		require.Len(t, client.objects, 1)
	})
}

func TestApp_Check__ArchiveFailure(t *testing.T) {
	ctx := context.Background()
	watch := mustWatchConfig(t, archiveConfigYAML)
	f := newAppFixture(t, watch)
	server, stub := NewStub(t)
	seedQATracker(stub)
	client := &fakeS3{err: errors.New("AccessDenied")}
	f.app.SetArchiver(sheetwatch.NewArchiver(watch.Archive, newStubDrive(t, server), sheetwatch.NewS3Uploader(client)))

	outcome, err := f.app.Check(ctx)
	require.NoError(t, err)
	require.True(t, outcome.Changed)
	details := f.notification.Details()
	require.Len(t, details, 1, "notification is still sent")
	require.Nil(t, details[0].Archive)
}

func TestApp_Inspect(t *testing.T) {
	ctx := context.Background()
	server, stub := NewStub(t)
	seedQATracker(stub)
	storage, err := sheetwatch.NewFileStorage(ctx, sheetwatch.StorageOption{
		DataFile: filepath.Join(t.TempDir(), "last_source_hash.json"),
	})
	require.NoError(t, err)
	app, err := sheetwatch.New(sheetwatch.AppConfig{
		SpreadsheetID: testSpreadsheetID,
		Worksheets:    []string{"QA Data", "Cold Room Log"},
	}, newStubSource(t, server), storage, &recordingNotification{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, app.Inspect(ctx, sheetwatch.InspectOption{Output: &buf}))
	out := buf.String()
	require.Contains(t, out, "QA Data")
	require.Contains(t, out, "found")
	require.Contains(t, out, "Cold Room Log")
	require.Contains(t, out, "missing")
	require.Contains(t, out, "stored hash:  -")
	require.Contains(t, out, "changed:      true")

	stored, err := storage.LoadHash(ctx)
	require.NoError(t, err)
	require.Empty(t, stored, "inspect never writes state")
}

func TestApp_LambdaHandler(t *testing.T) {
	ctx := context.Background()
	f := newAppFixture(t, nil)
	handler := f.app.LambdaHandler()

	resp, err := handler(ctx, json.RawMessage(`{"source": "aws.events"}`))
	require.NoError(t, err)
	require.True(t, resp.NeedsUpdate)
	require.Equal(t, testWorksheets, resp.Worksheets)
	require.Len(t, resp.ContentHash, 64)

	resp, err = handler(ctx, json.RawMessage(`{}`))
	require.NoError(t, err)
	require.False(t, resp.NeedsUpdate)

	f.stub.Deny(testSpreadsheetID, http.StatusNotFound)
	_, err = handler(ctx, nil)
	require.Error(t, err)
}

func TestNew__MissingConfiguration(t *testing.T) {
	cases := []struct {
		name  string
		cfg   sheetwatch.AppConfig
		field string
	}{
		{name: "spreadsheet id", cfg: sheetwatch.AppConfig{Worksheets: testWorksheets}, field: "GOOGLE_SHEET_ID"},
		{name: "worksheets", cfg: sheetwatch.AppConfig{SpreadsheetID: testSpreadsheetID}, field: "SOURCE_WORKSHEETS"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := sheetwatch.New(c.cfg, nil, nil, nil)
			var cfgErr *sheetwatch.ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			require.Equal(t, c.field, cfgErr.Field)
		})
	}
}
