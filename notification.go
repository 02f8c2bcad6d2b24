package sheetwatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/pullus/sheetwatch/pkg/sheetevent"
)

// NotificationOption contains configuration for change notification delivery.
//
// Supported notification types:
//   - "googlechat": Posts a card message to a Google Chat incoming webhook (default)
//   - "file": Appends events to a local NDJSON file (suitable for development)
//   - "eventbridge": Sends events to Amazon EventBridge
type NotificationOption struct {
	Type       string        `help:"notification type" default:"googlechat" enum:"googlechat,file,eventbridge" env:"SHEETWATCH_NOTIFICATION_TYPE"`
	WebhookURL string        `name:"webhook-url" help:"Google Chat incoming webhook URL (googlechat type only)" env:"GOOGLE_CHAT_WEBHOOK_URL"`
	Timeout    time.Duration `help:"webhook request timeout (googlechat type only)" default:"10s" env:"SHEETWATCH_NOTIFICATION_TIMEOUT"`
	EventBus   string        `help:"event bus name (eventbridge type only)" default:"default" env:"SHEETWATCH_EVENTBRIDGE_EVENT_BUS"`
	EventFile  string        `help:"event file path (file type only)" default:"sheetwatch.json" env:"SHEETWATCH_EVENT_FILE"`
}

// Notification delivers change details to people or downstream systems.
type Notification interface {
	SendChanges(context.Context, *sheetevent.Detail) error
}

// NewNotification creates a Notification implementation based on the configuration type.
func NewNotification(ctx context.Context, cfg NotificationOption, msg *MessageConfig) (Notification, error) {
	switch cfg.Type {
	case "googlechat", "":
		return NewGoogleChatNotification(ctx, cfg, msg)
	case "file":
		return NewFileNotification(ctx, cfg)
	case "eventbridge":
		awsCfg, err := loadAWSConfig(ctx)
		if err != nil {
			return nil, err
		}
		return NewEventBridgeNotification(ctx, eventbridge.NewFromConfig(awsCfg), cfg)
	}
	return nil, &ConfigurationError{Field: "notification-type", Err: fmt.Errorf("unknown notification type %q", cfg.Type)}
}

// GoogleChatNotification posts a card message to a Google Chat incoming webhook.
type GoogleChatNotification struct {
	webhookURL string
	client     *http.Client
	message    *MessageConfig
}

func NewGoogleChatNotification(_ context.Context, cfg NotificationOption, msg *MessageConfig) (*GoogleChatNotification, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if msg == nil {
		msg = &DefaultWatchConfig().Message
	}
	return &GoogleChatNotification{
		webhookURL: cfg.WebhookURL,
		client:     &http.Client{Timeout: timeout},
		message:    msg,
	}, nil
}

// Enabled reports whether a webhook URL is configured.
func (n *GoogleChatNotification) Enabled() bool {
	return n.webhookURL != ""
}

// notificationEnabled is false for notifications configured to drop every
// message.
func notificationEnabled(n Notification) bool {
	if e, ok := n.(interface{ Enabled() bool }); ok {
		return e.Enabled()
	}
	return true
}

func (n *GoogleChatNotification) SendChanges(ctx context.Context, detail *sheetevent.Detail) error {
	if n.webhookURL == "" {
		slog.WarnContext(ctx, "GOOGLE_CHAT_WEBHOOK_URL not set, skipping notification")
		return nil
	}
	msg, err := n.BuildMessage(detail)
	if err != nil {
		return &NotificationError{Err: err}
	}
	bs, err := json.Marshal(msg)
	if err != nil {
		return &NotificationError{Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(bs))
	if err != nil {
		return &NotificationError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	resp, err := n.client.Do(req)
	if err != nil {
		return &NotificationError{Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
		notifyErr := &NotificationError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		if err != nil {
			notifyErr.Err = fmt.Errorf("read response body: %w", err)
		}
		return notifyErr
	}
	slog.InfoContext(ctx, "google chat notification sent", "status", resp.StatusCode)
	return nil
}

// BuildMessage renders the card message for the detail.
func (n *GoogleChatNotification) BuildMessage(detail *sheetevent.Detail) (*ChatMessage, error) {
	outcome := &sheetevent.Outcome{
		Changed:       true,
		FirstRun:      detail.PreviousHash == "",
		SpreadsheetID: detail.SpreadsheetID,
		Worksheets:    detail.Worksheets,
		ContentHash:   detail.ContentHash,
		PreviousHash:  detail.PreviousHash,
	}
	title, err := n.message.Title.Eval(outcome)
	if err != nil {
		return nil, fmt.Errorf("message title: %w", err)
	}
	subtitle, err := n.message.Subtitle.Eval(outcome)
	if err != nil {
		return nil, fmt.Errorf("message subtitle: %w", err)
	}
	detectedAt := detail.DetectedAt.In(n.message.Location()).Format("January 02, 2006 at 03:04 PM MST")
	widgets := []ChatWidget{
		{KeyValue: &ChatKeyValue{TopLabel: "Updated Sheet(s)", Content: strings.Join(detail.Worksheets, ", "), Icon: "DESCRIPTION"}},
		{KeyValue: &ChatKeyValue{TopLabel: "Detected At", Content: detectedAt, Icon: "CLOCK"}},
	}
	if detail.LastModifiedBy != "" {
		widgets = append(widgets, ChatWidget{KeyValue: &ChatKeyValue{TopLabel: "Last Modified By", Content: detail.LastModifiedBy, Icon: "PERSON"}})
	}
	if detail.Archive != nil {
		widgets = append(widgets, ChatWidget{KeyValue: &ChatKeyValue{TopLabel: "Archived Copy", Content: detail.Archive.S3URI, Icon: "BOOKMARK"}})
	}
	widgets = append(widgets, ChatWidget{Buttons: []ChatButton{{
		TextButton: &ChatTextButton{
			Text:    "OPEN SPREADSHEET",
			OnClick: ChatOnClick{OpenLink: ChatOpenLink{URL: detail.SpreadsheetURL}},
		},
	}}})
	return &ChatMessage{
		Cards: []ChatCard{{
			Header: ChatCardHeader{
				Title:    title,
				Subtitle: subtitle,
			},
			Sections: []ChatSection{{Widgets: widgets}},
		}},
	}, nil
}

// ChatMessage is a Google Chat card message.
type ChatMessage struct {
	Cards []ChatCard `json:"cards"`
}

type ChatCard struct {
	Header   ChatCardHeader `json:"header"`
	Sections []ChatSection  `json:"sections"`
}

type ChatCardHeader struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
}

type ChatSection struct {
	Widgets []ChatWidget `json:"widgets"`
}

type ChatWidget struct {
	KeyValue *ChatKeyValue `json:"keyValue,omitempty"`
	Buttons  []ChatButton  `json:"buttons,omitempty"`
}

type ChatKeyValue struct {
	TopLabel string `json:"topLabel"`
	Content  string `json:"content"`
	Icon     string `json:"icon"`
}

type ChatButton struct {
	TextButton *ChatTextButton `json:"textButton"`
}

type ChatTextButton struct {
	Text    string      `json:"text"`
	OnClick ChatOnClick `json:"onClick"`
}

type ChatOnClick struct {
	OpenLink ChatOpenLink `json:"openLink"`
}

type ChatOpenLink struct {
	URL string `json:"url"`
}

// EventBridgeClient is the interface for Amazon EventBridge operations.
// This is satisfied by *eventbridge.Client.
type EventBridgeClient interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// EventBridgeNotification implements Notification using Amazon EventBridge.
type EventBridgeNotification struct {
	client   EventBridgeClient
	eventBus string
}

func NewEventBridgeNotification(_ context.Context, client EventBridgeClient, cfg NotificationOption) (*EventBridgeNotification, error) {
	return &EventBridgeNotification{
		client:   client,
		eventBus: cfg.EventBus,
	}, nil
}

func (n *EventBridgeNotification) SendChanges(ctx context.Context, detail *sheetevent.Detail) error {
	bs, err := json.Marshal(detail)
	if err != nil {
		return &NotificationError{Err: err}
	}
	source := "sheetwatch/" + detail.SpreadsheetID
	slog.DebugContext(ctx, "event", "source", source, "detail-type", sheetevent.DetailType, "detail", string(bs))
	output, err := n.client.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []types.PutEventsRequestEntry{{
			EventBusName: aws.String(n.eventBus),
			Resources:    []string{},
			Source:       aws.String(source),
			DetailType:   aws.String(sheetevent.DetailType),
			Time:         aws.Time(detail.DetectedAt),
			Detail:       aws.String(string(bs)),
		}},
	})
	if err != nil {
		return &NotificationError{Err: fmt.Errorf("put events: %w", err)}
	}
	for _, entry := range output.Entries {
		if entry.ErrorCode != nil {
			return &NotificationError{
				Err: fmt.Errorf("put events failed error_code=%s, error_message=%s", *entry.ErrorCode, aws.ToString(entry.ErrorMessage)),
			}
		}
		if entry.EventId != nil {
			slog.InfoContext(ctx, "put event", "event_bus", n.eventBus, "event_id", *entry.EventId)
		}
	}
	return nil
}

// FileNotification implements Notification by writing events to a local file.
//
// Events are appended to the file as newline-delimited JSON (NDJSON format).
type FileNotification struct {
	eventFile string
}

func NewFileNotification(_ context.Context, cfg NotificationOption) (*FileNotification, error) {
	return &FileNotification{
		eventFile: cfg.EventFile,
	}, nil
}

func (n *FileNotification) SendChanges(ctx context.Context, detail *sheetevent.Detail) error {
	fp, err := os.OpenFile(n.eventFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return &NotificationError{Err: err}
	}
	defer fp.Close()
	slog.InfoContext(ctx, "output change event", "event_file", n.eventFile, "worksheets", detail.Worksheets)
	if err := json.NewEncoder(fp).Encode(detail); err != nil {
		return &NotificationError{Err: err}
	}
	return nil
}
