// Package sheetwatch detects content changes in worksheets of a Google
// Spreadsheet and notifies people and downstream systems about them.
//
// Each check fetches the monitored worksheets through the Google Sheets API,
// reduces their cell values to a single SHA-256 content hash and compares it
// with the hash persisted by the previous run. When the hashes differ, the new
// hash is saved first and only then is a notification sent, so a failing
// webhook never causes the same change to be reported twice.
//
// # Components
//
//   - [Source]: reads worksheet values ([SheetsSource] uses the Sheets API v4)
//   - [Storage]: keeps the last content hash (local JSON file or DynamoDB)
//   - [Notification]: delivers change details (Google Chat card, NDJSON file or EventBridge)
//   - [Archiver]: optionally exports the spreadsheet through Drive and keeps the copy in S3
//
// # Usage
//
// For CLI usage, create a [CLI] instance and call Run:
//
//	var cli sheetwatch.CLI
//	exitCode := cli.Run(ctx)
//
// For programmatic usage, create an [App] instance:
//
//	source, _ := sheetwatch.NewSheetsSource(ctx, opts...)
//	storage, _ := sheetwatch.NewStorage(ctx, storageOption, spreadsheetID)
//	notification, _ := sheetwatch.NewNotification(ctx, notificationOption, nil)
//	app, _ := sheetwatch.New(sheetwatch.AppConfig{
//		SpreadsheetID: spreadsheetID,
//		Worksheets:    []string{"QA Data", "Blast Freezing Data"},
//	}, source, storage, notification)
//	outcome, err := app.Check(ctx)
//
// # Deployment Modes
//
// The check command prints NEEDS_UPDATE=true or NEEDS_UPDATE=false for use in
// shell pipelines. Inside AWS Lambda it serves one check per invocation,
// typically triggered by an EventBridge schedule.
//
// The template command generates the QA tracker workbook that the monitored
// spreadsheet is created from; see package qatracker.
package sheetwatch
