package sheetwatch_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/pullus/sheetwatch"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

type stubWorksheet struct {
	title  string
	values [][]any
}

// stubHandler serves the parts of the Sheets v4 and Drive v3 APIs used by sheetwatch.
type stubHandler struct {
	mu           sync.RWMutex
	router       *mux.Router
	spreadsheets map[string][]*stubWorksheet
	denied       map[string]int
	valueGets    []string
	fileGets     []string
	exports      []string
}

func NewStub(t *testing.T) (*httptest.Server, *stubHandler) {
	t.Helper()
	stub := &stubHandler{
		router:       mux.NewRouter(),
		spreadsheets: make(map[string][]*stubWorksheet),
		denied:       make(map[string]int),
	}
	stub.setupRoute()
	server := httptest.NewServer(stub)
	t.Cleanup(server.Close)
	return server, stub
}

func (h *stubHandler) setupRoute() {
	h.router.HandleFunc("/v4/spreadsheets/{id}", h.handleGetSpreadsheet).Methods(http.MethodGet)
	h.router.HandleFunc("/v4/spreadsheets/{id}/values/{range}", h.handleGetValues).Methods(http.MethodGet)
	h.router.HandleFunc("/files/{id}", h.handleGetFile).Methods(http.MethodGet)
	h.router.HandleFunc("/files/{id}/export", h.handleExport).Methods(http.MethodGet)
}

func (h *stubHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// SetWorksheet adds or replaces a worksheet, keeping the order of first insertion.
func (h *stubHandler) SetWorksheet(spreadsheetID, title string, values [][]any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ws := range h.spreadsheets[spreadsheetID] {
		if ws.title == title {
			ws.values = values
			return
		}
	}
	h.spreadsheets[spreadsheetID] = append(h.spreadsheets[spreadsheetID], &stubWorksheet{title: title, values: values})
}

func (h *stubHandler) Deny(spreadsheetID string, code int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.denied[spreadsheetID] = code
}

func (h *stubHandler) ValueGets() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]string(nil), h.valueGets...)
}

func (h *stubHandler) FileGets() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]string(nil), h.fileGets...)
}

func (h *stubHandler) Exports() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]string(nil), h.exports...)
}

func (h *stubHandler) lookup(w http.ResponseWriter, r *http.Request) ([]*stubWorksheet, bool) {
	id := mux.Vars(r)["id"]
	if code, ok := h.denied[id]; ok {
		writeAPIError(w, code, "The caller does not have permission")
		return nil, false
	}
	sheets, ok := h.spreadsheets[id]
	if !ok {
		writeAPIError(w, http.StatusNotFound, "Requested entity was not found.")
		return nil, false
	}
	return sheets, true
}

func (h *stubHandler) handleGetSpreadsheet(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	worksheets, ok := h.lookup(w, r)
	if !ok {
		return
	}
	type properties struct {
		Title string `json:"title"`
	}
	type sheet struct {
		Properties properties `json:"properties"`
	}
	resp := struct {
		Sheets []sheet `json:"sheets"`
	}{}
	for _, ws := range worksheets {
		resp.Sheets = append(resp.Sheets, sheet{Properties: properties{Title: ws.title}})
	}
	writeJSON(w, resp)
}

func (h *stubHandler) handleGetValues(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	worksheets, ok := h.lookup(w, r)
	if !ok {
		return
	}
	a1 := mux.Vars(r)["range"]
	h.valueGets = append(h.valueGets, a1)
	if dim := r.URL.Query().Get("majorDimension"); dim != "ROWS" {
		writeAPIError(w, http.StatusBadRequest, "unexpected majorDimension: "+dim)
		return
	}
	if !strings.HasPrefix(a1, "'") || !strings.HasSuffix(a1, "'") {
		writeAPIError(w, http.StatusBadRequest, "Unable to parse range: "+a1)
		return
	}
	title := strings.ReplaceAll(a1[1:len(a1)-1], "''", "'")
	for _, ws := range worksheets {
		if ws.title != title {
			continue
		}
		resp := map[string]any{
			"range":          fmt.Sprintf("%s!A1:Z1000", a1),
			"majorDimension": "ROWS",
		}
		if len(ws.values) > 0 {
			resp["values"] = ws.values
		}
		writeJSON(w, resp)
		return
	}
	writeAPIError(w, http.StatusBadRequest, "Unable to parse range: "+a1)
}

func (h *stubHandler) handleGetFile(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fileGets = append(h.fileGets, mux.Vars(r)["id"])
	if _, ok := h.lookup(w, r); !ok {
		return
	}
	writeJSON(w, map[string]any{
		"name":         "Pullus QA Tracker",
		"modifiedTime": "2025-01-15T09:10:00.000Z",
		"lastModifyingUser": map[string]any{
			"displayName":  "Femi Abubakar",
			"emailAddress": "femi@example.com",
		},
	})
}

func (h *stubHandler) handleExport(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.lookup(w, r); !ok {
		return
	}
	mimeType := r.URL.Query().Get("mimeType")
	h.exports = append(h.exports, mimeType)
	w.Header().Set("Content-Type", mimeType)
	fmt.Fprint(w, "exported:"+mux.Vars(r)["id"])
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}

func stubClientOptions(server *httptest.Server) []option.ClientOption {
	return []option.ClientOption{
		option.WithoutAuthentication(),
		option.WithEndpoint(server.URL),
	}
}

func newStubSource(t *testing.T, server *httptest.Server) *sheetwatch.SheetsSource {
	t.Helper()
	source, err := sheetwatch.NewSheetsSource(context.Background(), stubClientOptions(server)...)
	require.NoError(t, err)
	return source
}

func newStubDrive(t *testing.T, server *httptest.Server) *sheetwatch.DriveClient {
	t.Helper()
	client, err := sheetwatch.NewDriveClient(context.Background(), stubClientOptions(server)...)
	require.NoError(t, err)
	return client
}
