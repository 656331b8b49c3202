package store

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
)

// EncodeToken turns a LastEvaluatedKey into an opaque continuation token.
// An empty key yields an empty token.
func EncodeToken(lastKey Item) (string, error) {
	if len(lastKey) == 0 {
		return "", nil
	}
	var attrs map[string]string
	if err := attributevalue.UnmarshalMap(lastKey, &attrs); err != nil {
		return "", fmt.Errorf("encode token: %w", err)
	}
	raw, err := json.Marshal(attrs)
	if err != nil {
		return "", fmt.Errorf("encode token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeToken turns a continuation token back into an ExclusiveStartKey.
// An empty token yields a nil key.
func DecodeToken(token string) (Item, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	var attrs map[string]string
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if attrs[AttrItemID] == "" {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidToken, AttrItemID)
	}
	key, err := attributevalue.MarshalMap(attrs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return key, nil
}
