package sheetwatch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/Songmu/flextime"
	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/pullus/sheetwatch/pkg/sheetevent"
)

// AppConfig describes one watched spreadsheet.
type AppConfig struct {
	SpreadsheetID string
	Worksheets    []string
	// Watch is the bound watch configuration; nil means the defaults.
	Watch *WatchConfig
}

// App detects content changes of the monitored worksheets.
type App struct {
	spreadsheetID string
	worksheets    []string
	watch         *WatchConfig
	source        Source
	storage       Storage
	notification  Notification
	metadata      MetadataFetcher
	archiver      *Archiver
}

func New(cfg AppConfig, source Source, storage Storage, notification Notification) (*App, error) {
	if cfg.SpreadsheetID == "" {
		return nil, &ConfigurationError{Field: "GOOGLE_SHEET_ID"}
	}
	if len(cfg.Worksheets) == 0 {
		return nil, &ConfigurationError{Field: "SOURCE_WORKSHEETS"}
	}
	watch := cfg.Watch
	if watch == nil {
		env, err := NewCELEnv()
		if err != nil {
			return nil, err
		}
		watch, err = LoadWatchConfig("", env)
		if err != nil {
			return nil, err
		}
	}
	return &App{
		spreadsheetID: cfg.SpreadsheetID,
		worksheets:    slices.Clone(cfg.Worksheets),
		watch:         watch,
		source:        source,
		storage:       storage,
		notification:  notification,
	}, nil
}

// SetMetadataFetcher enables enriching change details with Drive file metadata.
func (app *App) SetMetadataFetcher(m MetadataFetcher) {
	app.metadata = m
}

// SetArchiver enables archiving an export of the spreadsheet on every change.
func (app *App) SetArchiver(a *Archiver) {
	app.archiver = a
}

// Check runs one detection cycle. When the content hash differs from the
// stored one, the new hash is saved before any notification is attempted.
// Notification failures are logged and never returned.
func (app *App) Check(ctx context.Context) (*sheetevent.Outcome, error) {
	slog.InfoContext(ctx, "checking for changes in source worksheets", "spreadsheet_id", app.spreadsheetID, "worksheets", app.worksheets)
	current, err := app.currentHash(ctx)
	if err != nil {
		return nil, err
	}
	previous, err := app.storage.LoadHash(ctx)
	if err != nil {
		return nil, err
	}
	outcome := &sheetevent.Outcome{
		FirstRun:      previous == "",
		SpreadsheetID: app.spreadsheetID,
		Worksheets:    slices.Clone(app.worksheets),
		ContentHash:   current,
		PreviousHash:  previous,
	}
	if outcome.FirstRun {
		slog.InfoContext(ctx, "first time check")
	}
	if current == previous {
		slog.InfoContext(ctx, "no changes in source data detected, skipping update")
		return outcome, nil
	}
	slog.InfoContext(ctx, "source data changes detected, update needed", "content_hash", current)
	if err := app.storage.SaveHash(ctx, previous, current); err != nil {
		return nil, err
	}
	outcome.Changed = true
	var archive *sheetevent.Archive
	if app.archiver != nil {
		archive = app.archiver.Archive(ctx, outcome)
	}
	app.notify(ctx, outcome, archive)
	return outcome, nil
}

func (app *App) currentHash(ctx context.Context) (string, error) {
	snapshots, err := app.source.FetchWorksheets(ctx, app.spreadsheetID, app.worksheets)
	if err != nil {
		return "", err
	}
	hash, err := ContentHash(snapshots)
	if err != nil {
		return "", err
	}
	slog.DebugContext(ctx, "combined content hash generated", "content_hash", hash, "worksheets", len(snapshots))
	return hash, nil
}

func (app *App) notify(ctx context.Context, outcome *sheetevent.Outcome, archive *sheetevent.Archive) {
	ok, err := app.watch.NotifyWhen.Eval(outcome)
	if err != nil {
		slog.WarnContext(ctx, "notify_when evaluation failed, skipping notification", "error", err)
		return
	}
	if !ok {
		slog.InfoContext(ctx, "notify_when is false, skipping notification", "expr", app.watch.NotifyWhen.Raw())
		return
	}
	detail := &sheetevent.Detail{
		ID:             uuid.NewString(),
		Subject:        fmt.Sprintf("Changes detected in %d worksheet(s)", len(outcome.Worksheets)),
		SpreadsheetID:  outcome.SpreadsheetID,
		SpreadsheetURL: sheetevent.SpreadsheetURL(outcome.SpreadsheetID),
		Worksheets:     outcome.Worksheets,
		ContentHash:    outcome.ContentHash,
		PreviousHash:   outcome.PreviousHash,
		DetectedAt:     flextime.Now(),
		Archive:        archive,
	}
	if app.metadata != nil && notificationEnabled(app.notification) {
		meta, err := app.metadata.SpreadsheetMetadata(ctx, outcome.SpreadsheetID)
		if err != nil {
			slog.WarnContext(ctx, "could not fetch spreadsheet metadata", "error", err)
		} else {
			detail.SpreadsheetName = meta.Name
			detail.LastModifiedBy = meta.LastModifiedBy
		}
	}
	if err := app.notification.SendChanges(ctx, detail); err != nil {
		slog.WarnContext(ctx, "could not send change notification", "error", err)
	}
}

// InspectOption contains options for the inspect command.
type InspectOption struct {
	Output io.Writer `kong:"-"`
}

// Inspect prints the monitored worksheets and the current and stored hashes
// without writing any state.
func (app *App) Inspect(ctx context.Context, opt InspectOption) error {
	snapshots, err := app.source.FetchWorksheets(ctx, app.spreadsheetID, app.worksheets)
	if err != nil {
		return err
	}
	current, err := ContentHash(snapshots)
	if err != nil {
		return err
	}
	stored, err := app.storage.LoadHash(ctx)
	if err != nil {
		return err
	}
	w := opt.Output
	if w == nil {
		w = io.Discard
	}
	table := tablewriter.NewWriter(w)
	table.Header("Worksheet", "Status", "Rows", "Rows With Data")
	for _, name := range app.worksheets {
		i := slices.IndexFunc(snapshots, func(s *WorksheetSnapshot) bool { return s.Name == name })
		if i < 0 {
			if err := table.Append([]string{name, "missing", "-", "-"}); err != nil {
				return err
			}
			continue
		}
		s := snapshots[i]
		if err := table.Append([]string{name, "found", fmt.Sprint(len(s.Rows)), fmt.Sprint(s.RowsWithData())}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintf(w, "current hash: %s\n", current)
	fmt.Fprintf(w, "stored hash:  %s\n", coalesce(stored, "-"))
	fmt.Fprintf(w, "changed:      %t\n", current != stored)
	return nil
}

func coalesce(strs ...string) string {
	for _, str := range strs {
		if str != "" {
			return str
		}
	}
	return ""
}
