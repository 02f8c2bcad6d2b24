package sheetwatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Songmu/flextime"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/gofrs/flock"
	"github.com/shogo82148/go-retry"
)

// StorageOption contains configuration for where the last content hash is kept.
//
// Supported storage types:
//   - "file": a JSON record on the local filesystem (default)
//   - "dynamodb": one item per spreadsheet in an Amazon DynamoDB table
type StorageOption struct {
	Type       string `help:"storage type" default:"file" enum:"file,dynamodb" env:"SHEETWATCH_STORAGE_TYPE"`
	DataFile   string `help:"file storage state file" default:"last_source_hash.json" env:"SHEETWATCH_STATE_FILE"`
	LockFile   string `help:"file storage lock file (defaults to the state file with a .lock suffix)" env:"SHEETWATCH_STATE_LOCK_FILE"`
	Strict     bool   `help:"fail when the stored state is corrupted instead of treating it as a first run" default:"false" env:"SHEETWATCH_STATE_STRICT" negatable:""`
	TableName  string `help:"dynamodb table name" default:"sheetwatch" env:"SHEETWATCH_DDB_TABLE_NAME"`
	AutoCreate bool   `help:"auto create dynamodb table" default:"false" env:"SHEETWATCH_DDB_AUTO_CREATE" negatable:""`
}

// Storage persists the content hash of the last run.
type Storage interface {
	// LoadHash returns the stored hash, or "" when nothing was stored yet.
	LoadHash(context.Context) (string, error)
	// SaveHash replaces previous with current. It fails with ErrStateConflict
	// when the stored hash is no longer previous.
	SaveHash(ctx context.Context, previous, current string) error
}

// NewStorage creates a Storage based on the configuration type.
// stateKey identifies the record in shared backends; the spreadsheet ID is used.
func NewStorage(ctx context.Context, cfg StorageOption, stateKey string) (Storage, error) {
	switch cfg.Type {
	case "file", "":
		return NewFileStorage(ctx, cfg)
	case "dynamodb":
		awsCfg, err := loadAWSConfig(ctx)
		if err != nil {
			return nil, err
		}
		return NewDynamoDBStorage(ctx, dynamodb.NewFromConfig(awsCfg), cfg, stateKey)
	}
	return nil, &ConfigurationError{Field: "storage-type", Err: fmt.Errorf("unknown storage type %q", cfg.Type)}
}

type stateRecord struct {
	ContentHash string `json:"content_hash"`
}

// FileStorage keeps the hash in a JSON file guarded by a lock file.
type FileStorage struct {
	FilePath string
	LockFile string
	Strict   bool
}

func NewFileStorage(_ context.Context, cfg StorageOption) (*FileStorage, error) {
	if cfg.DataFile == "" {
		return nil, &ConfigurationError{Field: "storage-data-file"}
	}
	lockFile := cfg.LockFile
	if lockFile == "" {
		lockFile = cfg.DataFile + ".lock"
	}
	return &FileStorage{
		FilePath: cfg.DataFile,
		LockFile: lockFile,
		Strict:   cfg.Strict,
	}, nil
}

// LoadHash reads the stored hash without taking the lock, so an unchanged run
// never touches the state directory. SaveHash re-reads under the lock.
func (s *FileStorage) LoadHash(ctx context.Context) (string, error) {
	return s.restore(ctx)
}

func (s *FileStorage) SaveHash(ctx context.Context, previous, current string) error {
	return s.transactional(ctx, func(ctx context.Context) error {
		stored, err := s.restore(ctx)
		if err != nil {
			return err
		}
		if stored != previous {
			slog.WarnContext(ctx, "state changed since it was loaded", "file", s.FilePath, "expected", previous, "stored", stored)
			return &StorageError{Op: "save", Err: ErrStateConflict}
		}
		return s.store(ctx, current)
	})
}

func (s *FileStorage) transactional(ctx context.Context, fn func(context.Context) error) error {
	fileLock := flock.New(s.LockFile)
	policy := retry.Policy{
		MinDelay: 100 * time.Millisecond,
		MaxDelay: 1 * time.Second,
		MaxCount: 10,
		Jitter:   35 * time.Millisecond,
	}

	retrier := policy.Start(ctx)
	var err error
	var locked bool
	for retrier.Continue() {
		slog.DebugContext(ctx, "try state file lock", "lock_file", s.LockFile)
		locked, err = fileLock.TryLock()
		if err != nil {
			slog.DebugContext(ctx, "state file lock failed", "lock_file", s.LockFile, "error", err)
			continue
		}
		if locked {
			break
		}
	}
	if !locked {
		if err == nil {
			err = errors.New("lock is held by another process")
		}
		return &StorageError{Op: "lock", Err: fmt.Errorf("%s: %w", s.LockFile, err)}
	}
	defer func() {
		if err := fileLock.Unlock(); err != nil {
			slog.DebugContext(ctx, "state file unlock failed", "lock_file", s.LockFile, "error", err)
		}
	}()
	return fn(ctx)
}

func (s *FileStorage) restore(ctx context.Context) (string, error) {
	bs, err := os.ReadFile(s.FilePath)
	if errors.Is(err, fs.ErrNotExist) {
		slog.DebugContext(ctx, "state file not found", "file", s.FilePath)
		return "", nil
	}
	if err != nil {
		return s.corrupted(ctx, err)
	}
	var record stateRecord
	if err := json.Unmarshal(bs, &record); err != nil {
		return s.corrupted(ctx, err)
	}
	return record.ContentHash, nil
}

func (s *FileStorage) corrupted(ctx context.Context, err error) (string, error) {
	if s.Strict {
		return "", &StorageError{Op: "load", Err: fmt.Errorf("%s: %w", s.FilePath, err)}
	}
	slog.WarnContext(ctx, "could not load last hash, treating as first run", "file", s.FilePath, "error", err)
	return "", nil
}

func (s *FileStorage) store(ctx context.Context, hash string) error {
	bs, err := json.MarshalIndent(stateRecord{ContentHash: hash}, "", "  ")
	if err != nil {
		return &StorageError{Op: "save", Err: err}
	}
	dir, base := filepath.Split(s.FilePath)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, base+".*.tmp")
	if err != nil {
		return &StorageError{Op: "save", Err: err}
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(bs); err != nil {
		tmp.Close()
		return &StorageError{Op: "save", Err: err}
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return &StorageError{Op: "save", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &StorageError{Op: "save", Err: err}
	}
	if err := os.Rename(tmp.Name(), s.FilePath); err != nil {
		return &StorageError{Op: "save", Err: err}
	}
	slog.InfoContext(ctx, "saved new content hash", "file", s.FilePath)
	return nil
}

// DynamoDBClient is the subset of *dynamodb.Client used by DynamoDBStorage.
type DynamoDBClient interface {
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoDBStorage keeps one item per spreadsheet, keyed by SpreadsheetID.
type DynamoDBStorage struct {
	client    DynamoDBClient
	tableName string
	stateKey  string
	strict    bool
}

func NewDynamoDBStorage(ctx context.Context, client DynamoDBClient, cfg StorageOption, stateKey string) (*DynamoDBStorage, error) {
	if stateKey == "" {
		return nil, &ConfigurationError{Field: "GOOGLE_SHEET_ID"}
	}
	s := &DynamoDBStorage{
		client:    client,
		tableName: cfg.TableName,
		stateKey:  stateKey,
		strict:    cfg.Strict,
	}
	slog.DebugContext(ctx, "check describe dynamodb table", "table", s.tableName)
	exists, err := s.tableExists(ctx)
	if err != nil {
		return nil, &StorageError{Op: "describe table", Err: err}
	}
	if !exists {
		if !cfg.AutoCreate {
			slog.WarnContext(ctx, "dynamodb table is not active", "table", s.tableName)
			return s, nil
		}
		if err := s.createTable(ctx); err != nil {
			return nil, &StorageError{Op: "create table", Err: err}
		}
	}
	return s, nil
}

func (s *DynamoDBStorage) tableExists(ctx context.Context) (bool, error) {
	table, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.tableName),
	})
	if err != nil {
		var ae smithy.APIError
		if errors.As(err, &ae) && ae.ErrorCode() == "ResourceNotFoundException" {
			return false, nil
		}
		return false, err
	}
	slog.DebugContext(ctx, "dynamodb table status", "table", s.tableName, "status", table.Table.TableStatus)
	switch table.Table.TableStatus {
	case types.TableStatusActive, types.TableStatusUpdating:
		return true, nil
	}
	return false, nil
}

func (s *DynamoDBStorage) waitTableActive(ctx context.Context) error {
	policy := retry.Policy{
		MinDelay: 200 * time.Millisecond,
		MaxDelay: 2 * time.Second,
		MaxCount: 20,
		Jitter:   100 * time.Millisecond,
	}
	retrier := policy.Start(ctx)
	var err error
	var exists bool
	for retrier.Continue() {
		exists, err = s.tableExists(ctx)
		if err == nil && exists {
			return nil
		}
	}
	if err == nil {
		return fmt.Errorf("table %s not active", s.tableName)
	}
	return fmt.Errorf("table %s not active: %w", s.tableName, err)
}

func (s *DynamoDBStorage) createTable(ctx context.Context) error {
	slog.InfoContext(ctx, "create dynamodb table", "table", s.tableName)
	_, err := s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(s.tableName),
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String("SpreadsheetID"),
				AttributeType: types.ScalarAttributeTypeS,
			},
		},
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String("SpreadsheetID"),
				KeyType:       types.KeyTypeHash,
			},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		var ae smithy.APIError
		if !errors.As(err, &ae) || ae.ErrorCode() != "ResourceInUseException" {
			return err
		}
		slog.DebugContext(ctx, "dynamodb table is being created by someone else", "table", s.tableName)
	}
	return s.waitTableActive(ctx)
}

func (s *DynamoDBStorage) key() map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"SpreadsheetID": &types.AttributeValueMemberS{Value: s.stateKey},
	}
}

func (s *DynamoDBStorage) LoadHash(ctx context.Context) (string, error) {
	output, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            s.key(),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", &StorageError{Op: "load", Err: err}
	}
	if len(output.Item) == 0 {
		slog.DebugContext(ctx, "state item not found", "table", s.tableName, "spreadsheet_id", s.stateKey)
		return "", nil
	}
	value, ok := GetAttributeValueAs[*types.AttributeValueMemberS]("ContentHash", output.Item)
	if !ok {
		err := errors.New("ContentHash attribute is missing or not a string")
		if s.strict {
			return "", &StorageError{Op: "load", Err: err}
		}
		slog.WarnContext(ctx, "could not load last hash, treating as first run", "table", s.tableName, "error", err)
		return "", nil
	}
	return value.Value, nil
}

func (s *DynamoDBStorage) SaveHash(ctx context.Context, previous, current string) error {
	item := s.key()
	item["ContentHash"] = &types.AttributeValueMemberS{Value: current}
	item["UpdatedAt"] = &types.AttributeValueMemberN{
		Value: strconv.FormatInt(flextime.Now().UnixMilli(), 10),
	}
	input := &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}
	if previous == "" {
		// an unreadable hash was loaded as "" too
		input.ConditionExpression = aws.String("attribute_not_exists(ContentHash) OR NOT attribute_type(ContentHash, :string)")
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":string": &types.AttributeValueMemberS{Value: string(types.ScalarAttributeTypeS)},
		}
	} else {
		input.ConditionExpression = aws.String("ContentHash = :previous")
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":previous": &types.AttributeValueMemberS{Value: previous},
		}
	}
	if _, err := s.client.PutItem(ctx, input); err != nil {
		var ae smithy.APIError
		if errors.As(err, &ae) && ae.ErrorCode() == "ConditionalCheckFailedException" {
			return &StorageError{Op: "save", Err: ErrStateConflict}
		}
		return &StorageError{Op: "save", Err: err}
	}
	slog.InfoContext(ctx, "saved new content hash", "table", s.tableName, "spreadsheet_id", s.stateKey)
	return nil
}

func GetAttributeValueAs[T types.AttributeValue](key string, values map[string]types.AttributeValue) (T, bool) {
	var empty T
	value, ok := values[key]
	if !ok {
		return empty, false
	}
	if v, ok := value.(T); ok {
		return v, true
	}
	return empty, false
}
