// Package dynamo implements types.RecordStore on an existing DynamoDB table.
//
// The table has a numeric partition key "id". Item id 0 is reserved for the
// id counter (attribute "seq"), which is bumped with an atomic ADD on every
// insert so ids grow monotonically and are never reused.
//
// Reads are Scans sorted client-side by id. Deletes run as TransactWriteItems
// in chunks of up to 100 items. A process-local RWMutex keeps every operation
// atomic for readers inside the same process.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Attribute names and reserved keys.
const (
	attrID       = "id"
	attrName     = "name"
	attrQuantity = "quantity"
	attrSeq      = "seq"

	counterID = "0"

	// MaxTransactItems is the DynamoDB limit on actions per transaction.
	MaxTransactItems = 100
)

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("dynamodb store is closed")

// API is the subset of the DynamoDB client the store uses.
type API interface {
	UpdateItem(ctx context.Context, in *sdk.UpdateItemInput, optFns ...func(*sdk.Options)) (*sdk.UpdateItemOutput, error)
	PutItem(ctx context.Context, in *sdk.PutItemInput, optFns ...func(*sdk.Options)) (*sdk.PutItemOutput, error)
	Scan(ctx context.Context, in *sdk.ScanInput, optFns ...func(*sdk.Options)) (*sdk.ScanOutput, error)
	TransactWriteItems(ctx context.Context, in *sdk.TransactWriteItemsInput, optFns ...func(*sdk.Options)) (*sdk.TransactWriteItemsOutput, error)
}

var _ types.RecordStore = (*Store)(nil)

// item is the stored shape of a record.
type item struct {
	ID       int64  `dynamodbav:"id"`
	Name     string `dynamodbav:"name"`
	Quantity int64  `dynamodbav:"quantity"`
}

// Store implements types.RecordStore on DynamoDB.
type Store struct {
	mu     sync.RWMutex
	client API
	table  string
	closed bool
}

// New wraps an existing client.
func New(client API, table string) *Store {
	return &Store{client: client, table: table}
}

// Open builds a client from cfg.DynamoDB. Static credentials are used when
// an access key is configured; otherwise the default AWS chain applies.
func Open(ctx context.Context, cfg types.Config) (*Store, error) {
	if cfg.Backend != types.BackendDynamoDB {
		return nil, fmt.Errorf("dynamodb backend cannot open %q config: %w", cfg.Backend, types.ErrBackendUnknown)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d := cfg.DynamoDB
	var opts []func(*config.LoadOptions) error
	if d.Region != "" {
		opts = append(opts, config.WithRegion(d.Region))
	}
	if d.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(d.AccessKeyID, d.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS configuration: %w", err)
	}

	client := sdk.NewFromConfig(awsCfg, func(o *sdk.Options) {
		if d.Endpoint != "" {
			o.BaseEndpoint = aws.String(d.Endpoint)
		}
	})
	return New(client, d.Table), nil
}

// Insert allocates the next id from the counter item and writes the record.
func (s *Store) Insert(ctx context.Context, name string, quantity int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	id, err := s.nextID(ctx)
	if err != nil {
		return 0, err
	}

	av, err := attributevalue.MarshalMap(item{ID: id, Name: name, Quantity: quantity})
	if err != nil {
		return 0, fmt.Errorf("marshal record: %w", err)
	}
	_, err = s.client.PutItem(ctx, &sdk.PutItemInput{
		TableName:                aws.String(s.table),
		Item:                     av,
		ConditionExpression:      aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{"#id": attrID},
	})
	if err != nil {
		return 0, fmt.Errorf("put record %d: %w", id, err)
	}
	return id, nil
}

// nextID atomically increments the counter item and returns the new value.
func (s *Store) nextID(ctx context.Context) (int64, error) {
	out, err := s.client.UpdateItem(ctx, &sdk.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       map[string]ddbtypes.AttributeValue{attrID: &ddbtypes.AttributeValueMemberN{Value: counterID}},
		UpdateExpression:          aws.String("ADD #seq :one"),
		ExpressionAttributeNames:  map[string]string{"#seq": attrSeq},
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{":one": &ddbtypes.AttributeValueMemberN{Value: "1"}},
		ReturnValues:              ddbtypes.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("allocate id: %w", err)
	}
	var counter struct {
		Seq int64 `dynamodbav:"seq"`
	}
	if err := attributevalue.UnmarshalMap(out.Attributes, &counter); err != nil {
		return 0, fmt.Errorf("decode id counter: %w", err)
	}
	if counter.Seq <= 0 {
		return 0, fmt.Errorf("id counter returned %d", counter.Seq)
	}
	return counter.Seq, nil
}

// FindByName scans for records whose name matches exactly.
func (s *Store) FindByName(ctx context.Context, name string) ([]types.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.scan(ctx, &sdk.ScanInput{
		TableName:                 aws.String(s.table),
		FilterExpression:          aws.String(filterByName),
		ExpressionAttributeNames:  map[string]string{"#name": attrName},
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{":name": &ddbtypes.AttributeValueMemberS{Value: name}},
	})
}

// ListAll scans every record, skipping the counter item.
func (s *Store) ListAll(ctx context.Context) ([]types.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.scan(ctx, listAllInput(s.table))
}

// DeleteByName removes every record named name and returns the count.
func (s *Store) DeleteByName(ctx context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	matches, err := s.scan(ctx, &sdk.ScanInput{
		TableName:                 aws.String(s.table),
		FilterExpression:          aws.String(filterByName),
		ExpressionAttributeNames:  map[string]string{"#name": attrName},
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{":name": &ddbtypes.AttributeValueMemberS{Value: name}},
	})
	if err != nil {
		return 0, err
	}

	var deleted int64
	for start := 0; start < len(matches); start += MaxTransactItems {
		end := min(start+MaxTransactItems, len(matches))
		actions := make([]ddbtypes.TransactWriteItem, 0, end-start)
		for _, r := range matches[start:end] {
			actions = append(actions, ddbtypes.TransactWriteItem{
				Delete: &ddbtypes.Delete{
					TableName: aws.String(s.table),
					Key:       map[string]ddbtypes.AttributeValue{attrID: idValue(r.ID)},
				},
			})
		}
		if _, err := s.client.TransactWriteItems(ctx, &sdk.TransactWriteItemsInput{TransactItems: actions}); err != nil {
			return deleted, fmt.Errorf("delete records named %q: %w", name, err)
		}
		deleted += int64(end - start)
	}
	return deleted, nil
}

// Close marks the store closed. The SDK client holds no resources to release.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Filter expressions used by scans.
const (
	filterByName = "#name = :name"
	filterAll    = "#id > :zero"
)

func listAllInput(table string) *sdk.ScanInput {
	return &sdk.ScanInput{
		TableName:                 aws.String(table),
		FilterExpression:          aws.String(filterAll),
		ExpressionAttributeNames:  map[string]string{"#id": attrID},
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{":zero": &ddbtypes.AttributeValueMemberN{Value: counterID}},
	}
}

// scan pages through a Scan and returns the records sorted by id.
func (s *Store) scan(ctx context.Context, in *sdk.ScanInput) ([]types.Record, error) {
	records := []types.Record{}
	p := sdk.NewScanPaginator(s.client, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.table, err)
		}
		var items []item
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("decode scanned records: %w", err)
		}
		for _, it := range items {
			records = append(records, types.Record{ID: it.ID, Name: it.Name, Quantity: it.Quantity})
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

func idValue(id int64) ddbtypes.AttributeValue {
	return &ddbtypes.AttributeValueMemberN{Value: strconv.FormatInt(id, 10)}
}
