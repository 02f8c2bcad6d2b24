// Package sheetevent provides types for sheetwatch change event payloads.
// These types can be used in Lambda functions to unmarshal events that
// sheetwatch puts on Amazon EventBridge.
//
//	func handler(ctx context.Context, event sheetevent.Event) error {
//	    fmt.Println(event.DetailType)
//	    fmt.Println(event.Detail.Worksheets)
//	}
package sheetevent

import "time"

// DetailType is the EventBridge detail-type of change events.
const DetailType = "Worksheets Changed"

// Event represents the full EventBridge event from sheetwatch.
type Event struct {
	Version    string    `json:"version"`
	ID         string    `json:"id"`
	DetailType string    `json:"detail-type"`
	Source     string    `json:"source"`
	AccountID  string    `json:"account"`
	Time       time.Time `json:"time"`
	Region     string    `json:"region"`
	Resources  []string  `json:"resources"`
	Detail     Detail    `json:"detail"`
}

// Detail is the event detail payload.
type Detail struct {
	ID             string    `json:"id"`
	Subject        string    `json:"subject"`
	SpreadsheetID  string    `json:"spreadsheetId"`
	SpreadsheetURL string    `json:"spreadsheetUrl"`
	Worksheets     []string  `json:"worksheets"`
	ContentHash    string    `json:"contentHash"`
	PreviousHash   string    `json:"previousHash,omitempty"`
	DetectedAt     time.Time `json:"detectedAt"`

	// Filled from Drive file metadata when it is available.
	SpreadsheetName string   `json:"spreadsheetName,omitempty"`
	LastModifiedBy  string   `json:"lastModifiedBy,omitempty"`
	Archive         *Archive `json:"archive,omitempty"`
}

// Archive describes the exported copy of the spreadsheet kept in S3.
type Archive struct {
	S3URI       string    `json:"s3Uri"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	ArchivedAt  time.Time `json:"archivedAt"`
}

// Outcome is the result of one check run.
type Outcome struct {
	Changed       bool     `json:"changed"`
	FirstRun      bool     `json:"firstRun"`
	SpreadsheetID string   `json:"spreadsheetId"`
	Worksheets    []string `json:"worksheets"`
	ContentHash   string   `json:"contentHash"`
	PreviousHash  string   `json:"previousHash,omitempty"`
}

// SpreadsheetURL returns the browser URL of a spreadsheet.
func SpreadsheetURL(spreadsheetID string) string {
	return "https://docs.google.com/spreadsheets/d/" + spreadsheetID
}
