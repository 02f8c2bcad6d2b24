package sheetwatch_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/pullus/sheetwatch"
	"github.com/stretchr/testify/require"
)

func TestSheetsSource__FetchWorksheets(t *testing.T) {
	server, stub := NewStub(t)
	stub.SetWorksheet("sheet-id", "Form Responses 1", [][]any{
		{"Date", "Officer"},
		{"15-Jan-2025", "Femi Abubakar"},
	})
	stub.SetWorksheet("sheet-id", "Blast Freezing", [][]any{
		{"Date", "Qty"},
		{"15-Jan-2025", 500},
		{},
	})
	stub.SetWorksheet("sheet-id", "Untracked", [][]any{{"x"}})
	source := newStubSource(t, server)

	snapshots, err := source.FetchWorksheets(context.Background(), "sheet-id", []string{"Blast Freezing", "Missing", "Form Responses 1"})
	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	require.Equal(t, "Blast Freezing", snapshots[0].Name)
	require.Equal(t, [][]string{{"Date", "Qty"}, {"15-Jan-2025", "500"}, nil}, snapshots[0].Rows)
	require.Equal(t, 2, snapshots[0].RowsWithData())
	require.Equal(t, "Form Responses 1", snapshots[1].Name)
	require.Equal(t, []string{"'Blast Freezing'", "'Form Responses 1'"}, stub.ValueGets())
}

func TestSheetsSource__QuotedName(t *testing.T) {
	server, stub := NewStub(t)
	stub.SetWorksheet("sheet-id", "Officer's Log", [][]any{{"a"}})
	source := newStubSource(t, server)

	snapshots, err := source.FetchWorksheets(context.Background(), "sheet-id", []string{"Officer's Log"})
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	require.Equal(t, [][]string{{"a"}}, snapshots[0].Rows)
	require.Equal(t, []string{"'Officer''s Log'"}, stub.ValueGets())
}

func TestSheetsSource__EmptyWorksheet(t *testing.T) {
	server, stub := NewStub(t)
	stub.SetWorksheet("sheet-id", "Empty", nil)
	source := newStubSource(t, server)

	snapshots, err := source.FetchWorksheets(context.Background(), "sheet-id", []string{"Empty"})
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	require.Empty(t, snapshots[0].Rows)
}

func TestSheetsSource__AccessError(t *testing.T) {
	server, stub := NewStub(t)
	stub.Deny("private", http.StatusForbidden)
	source := newStubSource(t, server)

	cases := []struct {
		name string
		id   string
		code int
	}{
		{name: "forbidden", id: "private", code: http.StatusForbidden},
		{name: "not found", id: "unknown", code: http.StatusNotFound},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := source.FetchWorksheets(context.Background(), c.id, []string{"Sheet1"})
			require.Error(t, err)
			var accessErr *sheetwatch.AccessError
			require.True(t, errors.As(err, &accessErr))
			require.Equal(t, c.code, accessErr.StatusCode)
			require.Equal(t, c.id, accessErr.SpreadsheetID)
			require.Contains(t, err.Error(), "not been granted access")
		})
	}
}

func TestQuoteSheetName(t *testing.T) {
	require.Equal(t, "'Sheet1'", sheetwatch.QuoteSheetName("Sheet1"))
	require.Equal(t, "'Form Responses 1'", sheetwatch.QuoteSheetName("Form Responses 1"))
	require.Equal(t, "'It''s'", sheetwatch.QuoteSheetName("It's"))
}

func TestSourceOption__Validate(t *testing.T) {
	cases := []struct {
		name  string
		opt   sheetwatch.SourceOption
		field string
	}{
		{name: "no spreadsheet", opt: sheetwatch.SourceOption{Worksheets: "A"}, field: "GOOGLE_SHEET_ID"},
		{name: "no worksheets", opt: sheetwatch.SourceOption{SpreadsheetID: "id", Worksheets: " , "}, field: "SOURCE_WORKSHEETS"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.opt.Validate()
			var cfgErr *sheetwatch.ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			require.Equal(t, c.field, cfgErr.Field)
		})
	}
	opt := sheetwatch.SourceOption{SpreadsheetID: "id", Worksheets: "Form Responses 1, Blast Freezing,"}
	require.NoError(t, opt.Validate())
	require.Equal(t, []string{"Form Responses 1", "Blast Freezing"}, opt.WorksheetNames())
}
