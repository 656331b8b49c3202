package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// MaxBatchSize is the maximum number of requests DynamoDB accepts in one BatchWriteItem call.
const MaxBatchSize = 25

var errUnprocessed = errors.New("store: unprocessed batch items")

// Store provides single-table DynamoDB operations.
type Store struct {
	client API
	config Config
	logger *zap.Logger
}

// New creates a new Store instance.
func New(client API, config Config, logger *zap.Logger) *Store {
	config.validate()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		client: client,
		config: config,
		logger: logger,
	}
}

// Config returns the validated store configuration.
func (s *Store) Config() Config {
	return s.config
}

// Get retrieves one item by key, returning ErrNotFound if it is missing.
// When a projection is given the key attributes are always included, so an
// existing row is never mistaken for a missing one.
func (s *Store) Get(ctx context.Context, key Key, projection ...string) (Item, error) {
	input := &dynamodb.GetItemInput{
		TableName: aws.String(s.config.TableName),
		Key:       KeyAttributes(key),
	}

	if len(projection) > 0 {
		expr, err := expression.NewBuilder().
			WithProjection(projectionOf(append([]string{AttrItemID, AttrSortKey}, projection...))).
			Build()
		if err != nil {
			return nil, fmt.Errorf("build projection: %w", err)
		}
		input.ProjectionExpression = expr.Projection()
		input.ExpressionAttributeNames = expr.Names()
	}

	result, err := s.client.GetItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	if len(result.Item) == 0 {
		return nil, ErrNotFound
	}
	return result.Item, nil
}

// Query runs a begins_with query inside one partition.
//
// With Limit > 0 a single page is returned together with its continuation
// token. One extra row is read ahead so that a page ending exactly at the last
// row reports no further pages. With Limit == 0 every page is drained and
// NextToken is empty.
func (s *Store) Query(ctx context.Context, input QueryInput) (*Page, error) {
	if input.Limit > 0 && len(input.Projection) > 0 {
		input.Projection = append(slices.Clone(input.Projection), pageKeyAttrs(input)...)
	}
	queryInput, err := s.buildQuery(input)
	if err != nil {
		return nil, err
	}

	if input.Limit > 0 {
		return s.queryPage(ctx, input, queryInput)
	}

	// Paginate through all results
	page := &Page{}
	paginator := dynamodb.NewQueryPaginator(s.client, queryInput)
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query %s/%s: %w", input.Partition, input.Prefix, err)
		}
		page.Items = append(page.Items, out.Items...)
	}
	return page, nil
}

func (s *Store) queryPage(ctx context.Context, input QueryInput, queryInput *dynamodb.QueryInput) (*Page, error) {
	queryInput.Limit = aws.Int32(input.Limit + 1)
	out, err := s.client.Query(ctx, queryInput)
	if err != nil {
		return nil, fmt.Errorf("query %s/%s: %w", input.Partition, input.Prefix, err)
	}

	items := out.Items
	lastKey := out.LastEvaluatedKey
	if len(items) > int(input.Limit) {
		items = items[:input.Limit]
		lastKey = Item{}
		for _, attr := range pageKeyAttrs(input) {
			if v, ok := items[len(items)-1][attr]; ok {
				lastKey[attr] = v
			}
		}
	}

	token, err := EncodeToken(lastKey)
	if err != nil {
		return nil, err
	}
	return &Page{Items: items, NextToken: token}, nil
}

// pageKeyAttrs lists the attributes that make up a LastEvaluatedKey for the query.
func pageKeyAttrs(input QueryInput) []string {
	if input.IndexName != "" {
		return []string{AttrItemID, AttrSortKey, AttrObjectID}
	}
	return []string{AttrItemID, AttrSortKey}
}

func (s *Store) buildQuery(input QueryInput) (*dynamodb.QueryInput, error) {
	rangeAttr := AttrSortKey
	if input.IndexName != "" {
		rangeAttr = AttrObjectID
	}

	keyCond := expression.Key(AttrItemID).Equal(expression.Value(input.Partition))
	if input.Prefix != "" {
		keyCond = keyCond.And(expression.Key(rangeAttr).BeginsWith(input.Prefix))
	}

	builder := expression.NewBuilder().WithKeyCondition(keyCond)
	if len(input.Projection) > 0 {
		builder = builder.WithProjection(projectionOf(input.Projection))
	}

	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("build query expression: %w", err)
	}

	startKey, err := DecodeToken(input.StartToken)
	if err != nil {
		return nil, err
	}

	queryInput := &dynamodb.QueryInput{
		TableName:                 aws.String(s.config.TableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ProjectionExpression:      expr.Projection(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ExclusiveStartKey:         startKey,
	}
	if input.IndexName != "" {
		queryInput.IndexName = aws.String(input.IndexName)
	}
	return queryInput, nil
}

// Put writes an item unconditionally. Concurrent writers to the same key
// resolve as last writer wins.
func (s *Store) Put(ctx context.Context, item Item) error {
	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.config.TableName),
		Item:      item,
	})
	if err != nil {
		key, _ := KeyOf(item)
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// BatchWrite applies puts and deletes in chunks of MaxBatchSize.
//
// Each chunk is retried with exponential backoff while DynamoDB reports
// unprocessed items or the call fails, up to Config.MaxAttempts tries. Rows
// still pending afterwards are returned in a *BatchError; every other row has
// been applied. The batch is not atomic.
func (s *Store) BatchWrite(ctx context.Context, puts []Item, deletes []Key) error {
	requests := make([]types.WriteRequest, 0, len(puts)+len(deletes))
	for _, item := range puts {
		requests = append(requests, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: item},
		})
	}
	for _, key := range deletes {
		requests = append(requests, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{Key: KeyAttributes(key)},
		})
	}

	var failed []Key
	var lastErr error
	for start := 0; start < len(requests); start += MaxBatchSize {
		end := min(start+MaxBatchSize, len(requests))
		pending, err := s.writeChunk(ctx, requests[start:end])
		if err != nil {
			lastErr = err
			for _, req := range pending {
				failed = append(failed, requestKey(req))
			}
		}
	}

	if len(failed) > 0 {
		s.logger.Warn("batch write incomplete",
			zap.Int("failed", len(failed)),
			zap.Int("total", len(requests)),
			zap.Error(lastErr),
		)
		return &BatchError{Failed: failed, Err: lastErr}
	}
	return nil
}

// writeChunk writes one chunk and returns the requests that never went through.
func (s *Store) writeChunk(ctx context.Context, chunk []types.WriteRequest) ([]types.WriteRequest, error) {
	pending := chunk
	attempt := 0

	_, err := backoff.Retry(ctx, func() (int, error) {
		attempt++
		out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				s.config.TableName: pending,
			},
		})
		if err != nil {
			return len(pending), err
		}
		if out != nil {
			pending = out.UnprocessedItems[s.config.TableName]
		} else {
			pending = nil
		}
		if len(pending) > 0 {
			return len(pending), errUnprocessed
		}
		return 0, nil
	},
		backoff.WithBackOff(s.newBackOff()),
		backoff.WithMaxTries(uint(s.config.MaxAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.logger.Debug("retrying batch chunk",
				zap.Int("attempt", attempt),
				zap.Int("pending", len(pending)),
				zap.Duration("backoff", next),
				zap.Error(err),
			)
		}),
	)
	if err != nil {
		return pending, err
	}
	return nil, nil
}

func (s *Store) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.config.BaseDelay
	b.MaxInterval = s.config.MaxDelay
	return b
}

// requestKey returns the primary key targeted by a write request.
func requestKey(req types.WriteRequest) Key {
	if req.PutRequest != nil {
		key, _ := KeyOf(req.PutRequest.Item)
		return key
	}
	if req.DeleteRequest != nil {
		key, _ := KeyOf(req.DeleteRequest.Key)
		return key
	}
	return Key{}
}

// projectionOf builds a projection from a non-empty attribute list.
// DynamoDB rejects overlapping paths, so duplicates are dropped.
func projectionOf(attrs []string) expression.ProjectionBuilder {
	proj := expression.NamesList(expression.Name(attrs[0]))
	seen := map[string]bool{attrs[0]: true}
	for _, attr := range attrs[1:] {
		if seen[attr] {
			continue
		}
		seen[attr] = true
		proj = proj.AddNames(expression.Name(attr))
	}
	return proj
}
