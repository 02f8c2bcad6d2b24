package sheetwatch

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

//go:embed service_account.schema.json
var serviceAccountSchemaJSON []byte

const serviceAccountSchemaURL = "https://github.com/pullus/sheetwatch/service_account.schema.json"

// GoogleScopes are requested for every service account credential.
var GoogleScopes = []string{
	sheets.SpreadsheetsReadonlyScope,
	drive.DriveMetadataReadonlyScope,
}

// CredentialsForm tells how the credential value was interpreted.
type CredentialsForm int

const (
	CredentialsFormUnknown CredentialsForm = iota
	CredentialsFormJSON
	CredentialsFormBase64
	CredentialsFormFile
	CredentialsFormSSM
)

func (f CredentialsForm) String() string {
	switch f {
	case CredentialsFormJSON:
		return "embedded JSON"
	case CredentialsFormBase64:
		return "base64 JSON"
	case CredentialsFormFile:
		return "file"
	case CredentialsFormSSM:
		return "SSM parameter"
	}
	return "unknown"
}

// ServiceAccount is the identity part of a service account key.
type ServiceAccount struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id,omitempty"`
	PrivateKeyID string `json:"private_key_id,omitempty"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
	ClientID     string `json:"client_id,omitempty"`
	TokenURI     string `json:"token_uri,omitempty"`
}

// Credentials is a resolved service account credential.
type Credentials struct {
	Form    CredentialsForm
	Path    string
	JSON    []byte
	Account ServiceAccount
}

// ParseCredentials resolves the credential value. The value may hold the
// service account JSON itself, the same JSON base64 encoded, or a path to a
// JSON file; the first interpretation that yields a valid service account wins.
func ParseCredentials(value string) (*Credentials, error) {
	value = unquoteCredentialsValue(value)
	if value == "" {
		return nil, &ConfigurationError{Field: "GOOGLE_CREDENTIALS_PATH"}
	}
	v, err := loadServiceAccountValidator()
	if err != nil {
		return nil, err
	}
	var reasons []error

	account, err := v.parse([]byte(value))
	if err == nil {
		return &Credentials{Form: CredentialsFormJSON, JSON: []byte(value), Account: account}, nil
	}
	reasons = append(reasons, fmt.Errorf("as JSON: %w", err))

	if decoded, ok := decodeBase64Credentials(value); ok {
		account, err := v.parse(decoded)
		if err == nil {
			return &Credentials{Form: CredentialsFormBase64, JSON: decoded, Account: account}, nil
		}
		reasons = append(reasons, fmt.Errorf("as base64: %w", err))
	}

	info, err := os.Stat(value)
	if err != nil {
		reasons = append(reasons, fmt.Errorf("as file: %w", err))
		return nil, &CredentialError{
			Err: fmt.Errorf("value is neither service account JSON (raw or base64) nor an existing file: %w", errors.Join(reasons...)),
		}
	}
	if info.IsDir() {
		return nil, &CredentialError{Form: CredentialsFormFile, Err: fmt.Errorf("%s is a directory", value)}
	}
	bs, err := os.ReadFile(value)
	if err != nil {
		return nil, &CredentialError{Form: CredentialsFormFile, Err: err}
	}
	account, err = v.parse(bs)
	if err != nil {
		return nil, &CredentialError{Form: CredentialsFormFile, Err: fmt.Errorf("%s: %w", value, err)}
	}
	return &Credentials{Form: CredentialsFormFile, Path: value, JSON: bs, Account: account}, nil
}

// ArchiveScopes are added when spreadsheet exports are archived.
var ArchiveScopes = []string{drive.DriveReadonlyScope}

// ClientOptions returns Google API client options authenticated as the
// service account with GoogleScopes plus extraScopes.
func (c *Credentials) ClientOptions(ctx context.Context, extraScopes ...string) ([]option.ClientOption, error) {
	scopes := append(slices.Clone(GoogleScopes), extraScopes...)
	cfg, err := google.JWTConfigFromJSON(c.JSON, scopes...)
	if err != nil {
		return nil, &CredentialError{Form: c.Form, Err: err}
	}
	return []option.ClientOption{option.WithTokenSource(cfg.TokenSource(ctx))}, nil
}

func unquoteCredentialsValue(value string) string {
	value = strings.TrimSpace(value)
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if (first == '"' || first == '\'') && first == last {
			value = strings.TrimSpace(value[1 : len(value)-1])
		}
	}
	return value
}

func decodeBase64Credentials(value string) ([]byte, bool) {
	cleaned := strings.Join(strings.Fields(value), "")
	if cleaned == "" {
		return nil, false
	}
	if r := len(cleaned) % 4; r != 0 {
		cleaned += strings.Repeat("=", 4-r)
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.URLEncoding} {
		decoded, err := enc.DecodeString(cleaned)
		if err != nil {
			continue
		}
		return bytes.TrimSpace(decoded), true
	}
	return nil, false
}

type serviceAccountValidator struct {
	schema *jsonschema.Schema
}

var loadServiceAccountValidator = sync.OnceValues(func() (*serviceAccountValidator, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(serviceAccountSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("parse service account schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(serviceAccountSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("add service account schema: %w", err)
	}
	sch, err := c.Compile(serviceAccountSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile service account schema: %w", err)
	}
	return &serviceAccountValidator{schema: sch}, nil
})

func (v *serviceAccountValidator) parse(bs []byte) (ServiceAccount, error) {
	var account ServiceAccount
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(bs))
	if err != nil {
		return account, fmt.Errorf("not JSON: %w", err)
	}
	if err := v.schema.Validate(inst); err != nil {
		return account, fmt.Errorf("not a service account key: %w", err)
	}
	if err := json.Unmarshal(bs, &account); err != nil {
		return account, err
	}
	return account, nil
}
