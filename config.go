package sheetwatch

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

const (
	DefaultMessageTitle    = "🔔 QA Tracker Update Detected"
	DefaultMessageSubtitle = "Changes found in source worksheets"
	DefaultTimeZone        = "Africa/Lagos"
)

// WatchConfig is the optional YAML configuration of a watch.
//
//	notify_when: "!outcome.firstRun"
//	message:
//	  title: "🔔 QA Tracker Update Detected"
//	  subtitle: "Changes in " + worksheets.join(", ")
//	  time_zone: Africa/Lagos
//
// See ArchiveConfig for the optional archive block.
type WatchConfig struct {
	NotifyWhen ExprOrBool     `yaml:"notify_when,omitempty"`
	Message    MessageConfig  `yaml:"message,omitempty"`
	Archive    *ArchiveConfig `yaml:"archive,omitempty"`
}

// MessageConfig controls the chat card.
type MessageConfig struct {
	Title    ExprOrString `yaml:"title,omitempty"`
	Subtitle ExprOrString `yaml:"subtitle,omitempty"`
	TimeZone string       `yaml:"time_zone,omitempty"`

	location *time.Location
}

// Location returns the time zone used for the detection timestamp.
func (m *MessageConfig) Location() *time.Location {
	if m.location != nil {
		return m.location
	}
	loc, err := time.LoadLocation(m.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DefaultWatchConfig returns the configuration used when no file is given.
func DefaultWatchConfig() *WatchConfig {
	cfg := &WatchConfig{}
	cfg.applyDefaults()
	return cfg
}

func (cfg *WatchConfig) applyDefaults() {
	if cfg.NotifyWhen.Raw() == "" {
		cfg.NotifyWhen = NewExprOrBool("true")
	}
	if cfg.Message.Title.Raw() == "" {
		cfg.Message.Title = NewExprOrString(DefaultMessageTitle)
	}
	if cfg.Message.Subtitle.Raw() == "" {
		cfg.Message.Subtitle = NewExprOrString(DefaultMessageSubtitle)
	}
	if cfg.Message.TimeZone == "" {
		cfg.Message.TimeZone = DefaultTimeZone
	}
}

// Bind compiles expressions and resolves the time zone.
func (cfg *WatchConfig) Bind(env *CELEnv) error {
	cfg.applyDefaults()
	if err := cfg.NotifyWhen.Bind(env); err != nil {
		return &ConfigurationError{Field: "notify_when", Err: err}
	}
	if err := cfg.Message.Title.Bind(env); err != nil {
		return &ConfigurationError{Field: "message.title", Err: err}
	}
	if err := cfg.Message.Subtitle.Bind(env); err != nil {
		return &ConfigurationError{Field: "message.subtitle", Err: err}
	}
	loc, err := time.LoadLocation(cfg.Message.TimeZone)
	if err != nil {
		return &ConfigurationError{Field: "message.time_zone", Err: err}
	}
	cfg.Message.location = loc
	if cfg.Archive != nil {
		if err := cfg.Archive.Bind(env); err != nil {
			return err
		}
	}
	return nil
}

// LoadWatchConfig reads and binds a watch configuration file.
// An empty path yields the bound default configuration.
func LoadWatchConfig(path string, env *CELEnv) (*WatchConfig, error) {
	if path == "" {
		cfg := DefaultWatchConfig()
		if err := cfg.Bind(env); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	fp, err := os.Open(path)
	if err != nil {
		return nil, &ConfigurationError{Field: "config", Err: err}
	}
	defer fp.Close()
	cfg, err := ParseWatchConfig(fp, env)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseWatchConfig decodes a YAML watch configuration and binds it.
func ParseWatchConfig(r io.Reader, env *CELEnv) (*WatchConfig, error) {
	cfg := &WatchConfig{}
	dec := yaml.NewDecoder(r, yaml.DisallowUnknownField())
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, &ConfigurationError{Field: "config", Err: err}
	}
	if err := cfg.Bind(env); err != nil {
		return nil, err
	}
	return cfg, nil
}
