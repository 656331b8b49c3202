package store_test

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/jacentio/projects/store"
)

type apiCall[T, U any] = func(context.Context, *T, ...func(*dynamodb.Options)) (*U, error)

// mockClient is an expectation-based stand-in for the DynamoDB client.
type mockClient struct {
	GetFunc        apiCall[dynamodb.GetItemInput, dynamodb.GetItemOutput]
	PutFunc        apiCall[dynamodb.PutItemInput, dynamodb.PutItemOutput]
	QueryFunc      apiCall[dynamodb.QueryInput, dynamodb.QueryOutput]
	BatchWriteFunc apiCall[dynamodb.BatchWriteItemInput, dynamodb.BatchWriteItemOutput]
}

var _ store.API = (*mockClient)(nil)

func newMockClient(t *testing.T) *mockClient {
	return &mockClient{
		GetFunc:        unexpected[dynamodb.GetItemInput, dynamodb.GetItemOutput](t),
		PutFunc:        unexpected[dynamodb.PutItemInput, dynamodb.PutItemOutput](t),
		QueryFunc:      unexpected[dynamodb.QueryInput, dynamodb.QueryOutput](t),
		BatchWriteFunc: unexpected[dynamodb.BatchWriteItemInput, dynamodb.BatchWriteItemOutput](t),
	}
}

func unexpected[T, U any](t *testing.T) apiCall[T, U] {
	return func(context.Context, *T, ...func(*dynamodb.Options)) (*U, error) {
		t.Fatal("unexpected call")
		return nil, nil
	}
}

func (m *mockClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return m.GetFunc(ctx, params, optFns...)
}

func (m *mockClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return m.PutFunc(ctx, params, optFns...)
}

func (m *mockClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return m.QueryFunc(ctx, params, optFns...)
}

func (m *mockClient) BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	return m.BatchWriteFunc(ctx, params, optFns...)
}
