package store

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/projects/internal/keys"
)

// Attribute names shared by every row.
const (
	AttrItemID     = "item_id"
	AttrSortKey    = "sort_key"
	AttrObjectID   = "object_id"
	AttrObjectType = "object_type"
)

// Key is a composite primary key: tenant partition plus sort key.
type Key = keys.Key

// Item is a raw DynamoDB item.
type Item = map[string]types.AttributeValue

// API is the subset of the DynamoDB client used by the Store.
// *dynamodb.Client satisfies it.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// QueryInput defines a begins_with range query inside one partition.
type QueryInput struct {
	// Partition is the item_id (organization id) to query.
	Partition string

	// Prefix restricts sort_key, or object_id when IndexName is set, with begins_with.
	// Empty selects the whole partition.
	Prefix string

	// IndexName is the optional object index to query.
	IndexName string

	// Projection lists the attributes to return (empty = all).
	Projection []string

	// Limit is the page size. 0 drains every page and ignores pagination.
	Limit int32

	// StartToken resumes a previous paged query. It must be a Page.NextToken value.
	StartToken string
}

// Page is one page of query results.
type Page struct {
	// Items are the rows of this page.
	Items []Item

	// NextToken resumes the query; empty when there are no more pages.
	NextToken string
}

// HasMore reports whether the query has further pages.
func (p *Page) HasMore() bool {
	return p.NextToken != ""
}

// KeyAttributes returns the DynamoDB key attributes for a Key.
func KeyAttributes(k Key) Item {
	return Item{
		AttrItemID:  &types.AttributeValueMemberS{Value: k.ItemID},
		AttrSortKey: &types.AttributeValueMemberS{Value: k.SortKey},
	}
}

// KeyOf extracts the primary key from an item.
func KeyOf(item Item) (Key, bool) {
	itemID := StringAttr(item, AttrItemID)
	sortKey := StringAttr(item, AttrSortKey)
	if itemID == "" || sortKey == "" {
		return Key{}, false
	}
	return Key{ItemID: itemID, SortKey: sortKey}, true
}

// StringAttr returns a string attribute, or "" when absent or not a string.
func StringAttr(item Item, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}
