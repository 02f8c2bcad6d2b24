package sheetwatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/mashiike/slogutils"
)

var Version = "current"

// CLI is the command-line interface for sheetwatch.
//
// Use the Run method to execute the CLI:
//
//	var cli sheetwatch.CLI
//	ctx := context.Background()
//	exitCode := cli.Run(ctx)
//
// Available commands:
//   - check: Detect changes in the monitored worksheets (default)
//   - inspect: Show the monitored worksheets and hashes without saving state
//   - template: Generate the QA tracker workbook template
//   - validate: Validate the watch configuration file
//   - version: Show version
type CLI struct {
	LogLevel     string             `help:"log level" default:"info" env:"SHEETWATCH_LOG_LEVEL"`
	LogFormat    string             `help:"log format" default:"text" enum:"text,json" env:"SHEETWATCH_LOG_FORMAT"`
	LogColor     bool               `help:"enable color output" default:"true" env:"SHEETWATCH_LOG_COLOR" negatable:""`
	Version      kong.VersionFlag   `help:"show version"`
	Config       string             `help:"path to the watch configuration file" env:"SHEETWATCH_CONFIG"`
	Source       SourceOption       `embed:""`
	Storage      StorageOption      `embed:"" prefix:"storage-"`
	Notification NotificationOption `embed:"" prefix:"notification-"`

	Check      CheckOption    `cmd:"" help:"check the monitored worksheets for changes and notify" default:"true"`
	Inspect    InspectOption  `cmd:"" help:"show the monitored worksheets and content hashes without saving state"`
	Template   TemplateOption `cmd:"" help:"generate the QA tracker workbook template"`
	Validate   ValidateOption `cmd:"" help:"validate the watch configuration file"`
	VersionCmd struct{}       `cmd:"" name:"version" help:"show version"`
}

// CheckOption contains options for the check command.
type CheckOption struct {
	// Output receives the NEEDS_UPDATE marker; nil means stdout.
	Output io.Writer `kong:"-"`
}

// ValidateOption contains options for the validate command.
type ValidateOption struct {
	ConfigFile string `arg:"" name:"config-file" optional:"" help:"path to the watch configuration file (overrides --config)"`
}

// Run parses command-line arguments and executes the appropriate command.
// Returns 0 on success, 1 on error.
func (c *CLI) Run(ctx context.Context) int {
	dotenvErr := loadDotenv()
	k := kong.Parse(c,
		kong.Name("sheetwatch"),
		kong.Description("sheetwatch detects content changes in Google Sheets worksheets and notifies about them."),
		kong.UsageOnError(),
		kong.Vars{"version": Version},
	)
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(c.LogLevel)); err != nil {
		k.Fatalf("invalid log level: %s", c.LogLevel)
	}
	logger := newLogger(logLevel, c.LogFormat, c.LogColor)
	slog.SetDefault(logger)
	if dotenvErr != nil {
		slog.WarnContext(ctx, "could not load env file", "details", dotenvErr)
	}
	if err := c.run(ctx, k); err != nil {
		slog.Error("runtime error", "details", err)
		return 1
	}
	return 0
}

// loadDotenv reads SHEETWATCH_ENV_FILE (default .env) into the environment
// outside CI. Variables already set are kept. A missing file is not an error.
func loadDotenv() error {
	if os.Getenv("CI") == "true" {
		return nil
	}
	path := os.Getenv("SHEETWATCH_ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func (c *CLI) run(ctx context.Context, k *kong.Context) error {
	switch k.Command() {
	case "version":
		fmt.Printf("sheetwatch version %s\n", Version)
		return nil
	case "validate", "validate <config-file>":
		return c.runValidate(ctx)
	case "template":
		return c.runTemplate(ctx)
	}
	app, err := c.newApp(ctx)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	switch k.Command() {
	case "check", "":
		return c.runCheck(ctx, app)
	case "inspect":
		if c.Inspect.Output == nil {
			c.Inspect.Output = os.Stdout
		}
		return app.Inspect(ctx, c.Inspect)
	default:
		return fmt.Errorf("unknown command: %s", k.Command())
	}
}

func (c *CLI) runCheck(ctx context.Context, app *App) error {
	if isLambda() {
		slog.InfoContext(ctx, "running as lambda handler")
		lambda.StartWithOptions(app.LambdaHandler(), lambda.WithContext(ctx))
		return nil
	}
	outcome, err := app.Check(ctx)
	if err != nil {
		return err
	}
	w := c.Check.Output
	if w == nil {
		w = os.Stdout
	}
	fmt.Fprintf(w, "NEEDS_UPDATE=%t\n", outcome.Changed)
	return nil
}

func (c *CLI) runTemplate(ctx context.Context) error {
	var uploader *S3Uploader
	if c.Template.S3URI != "" {
		awsCfg, err := loadAWSConfig(ctx)
		if err != nil {
			return err
		}
		uploader = NewS3Uploader(s3.NewFromConfig(awsCfg))
	}
	return GenerateTemplate(ctx, c.Template, uploader)
}

func (c *CLI) runValidate(ctx context.Context) error {
	configPath := c.Validate.ConfigFile
	if configPath == "" {
		configPath = c.Config
	}
	if configPath == "" {
		return fmt.Errorf("no configuration file specified; use --config or provide a path as argument")
	}

	env, err := NewCELEnv()
	if err != nil {
		return fmt.Errorf("create CEL environment: %w", err)
	}

	slog.InfoContext(ctx, "validating watch configuration", "path", configPath)
	cfg, err := LoadWatchConfig(configPath, env)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	slog.InfoContext(ctx, "configuration is valid",
		"notify_when", cfg.NotifyWhen.Raw(),
		"title_is_expr", cfg.Message.Title.IsExpr(),
		"subtitle_is_expr", cfg.Message.Subtitle.IsExpr(),
		"time_zone", cfg.Message.Location().String(),
		"archive", cfg.Archive != nil,
	)

	if c.Source.Credentials != "" {
		creds, err := ResolveCredentials(ctx, c.Source.Credentials, newSSMClient)
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		slog.InfoContext(ctx, "credentials are valid", "form", creds.Form.String(), "client_email", creds.Account.ClientEmail)
	}

	fmt.Println("✓ Configuration is valid")
	return nil
}

func (c *CLI) newApp(ctx context.Context) (*App, error) {
	if err := c.Source.Validate(); err != nil {
		return nil, err
	}
	creds, err := ResolveCredentials(ctx, c.Source.Credentials, newSSMClient)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "google credentials loaded", "form", creds.Form.String(), "client_email", creds.Account.ClientEmail)

	env, err := NewCELEnv()
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}
	watch, err := LoadWatchConfig(c.Config, env)
	if err != nil {
		return nil, err
	}
	storage, err := NewStorage(ctx, c.Storage, c.Source.SpreadsheetID)
	if err != nil {
		return nil, fmt.Errorf("create Storage: %w", err)
	}
	notification, err := NewNotification(ctx, c.Notification, &watch.Message)
	if err != nil {
		return nil, fmt.Errorf("create Notification: %w", err)
	}
	var extraScopes []string
	if watch.Archive != nil {
		extraScopes = ArchiveScopes
	}
	clientOpts, err := creds.ClientOptions(ctx, extraScopes...)
	if err != nil {
		return nil, err
	}
	source, err := NewSheetsSource(ctx, clientOpts...)
	if err != nil {
		return nil, err
	}
	app, err := New(AppConfig{
		SpreadsheetID: c.Source.SpreadsheetID,
		Worksheets:    c.Source.WorksheetNames(),
		Watch:         watch,
	}, source, storage, notification)
	if err != nil {
		return nil, err
	}
	deliver := notificationEnabled(notification)
	if !deliver && watch.Archive == nil {
		return app, nil
	}
	driveClient, err := NewDriveClient(ctx, clientOpts...)
	if err != nil {
		return nil, err
	}
	if deliver {
		app.SetMetadataFetcher(driveClient)
	}
	if watch.Archive != nil {
		awsCfg, err := loadAWSConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("setup archive: %w", err)
		}
		app.SetArchiver(NewArchiver(watch.Archive, driveClient, NewS3Uploader(s3.NewFromConfig(awsCfg))))
		slog.InfoContext(ctx, "archive enabled", "format", watch.Archive.Format, "bucket_name", watch.Archive.BucketName.Raw())
	}
	return app, nil
}

func newLogger(level slog.Level, format string, c bool) *slog.Logger {
	var f func(io.Writer, *slog.HandlerOptions) slog.Handler
	switch format {
	case "json":
		f = func(w io.Writer, ho *slog.HandlerOptions) slog.Handler {
			return slog.NewJSONHandler(w, ho)
		}
	default:
		f = func(w io.Writer, ho *slog.HandlerOptions) slog.Handler {
			return slog.NewTextHandler(w, ho)
		}
	}
	var modifierFuncs map[slog.Level]slogutils.ModifierFunc
	if c {
		modifierFuncs = map[slog.Level]slogutils.ModifierFunc{
			slog.LevelDebug: slogutils.Color(color.FgBlack),
			slog.LevelInfo:  nil,
			slog.LevelWarn:  slogutils.Color(color.FgYellow),
			slog.LevelError: slogutils.Color(color.FgRed, color.Bold),
		}
	}
	middleware := slogutils.NewMiddleware(
		f,
		slogutils.MiddlewareOptions{
			// stdout is reserved for the NEEDS_UPDATE marker
			Writer:        os.Stderr,
			ModifierFuncs: modifierFuncs,
			HandlerOptions: &slog.HandlerOptions{
				Level:     level,
				AddSource: level == slog.LevelDebug,
			},
			RecordTransformerFuncs: []slogutils.RecordTransformerFunc{
				slogutils.ConvertLegacyLevel(
					map[string]slog.Level{
						"debug": slog.LevelDebug,
						"info":  slog.LevelInfo,
						"warn":  slog.LevelWarn,
						"error": slog.LevelError,
					},
					true,
				),
			},
		},
	)
	return slog.New(middleware)
}
