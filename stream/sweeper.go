// Package stream provides DynamoDB Streams handlers that repair project
// relationships left behind by partially failed deletes.
package stream

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/jacentio/projects/internal/keys"
	"github.com/jacentio/projects/project"
	"github.com/jacentio/projects/store"
)

// Table is the subset of *store.Store the sweeper uses.
type Table interface {
	Query(ctx context.Context, input store.QueryInput) (*store.Page, error)
	BatchWrite(ctx context.Context, puts []store.Item, deletes []store.Key) error
}

// Handler processes DynamoDB stream events for removed projects.
type Handler struct {
	table    Table
	registry *store.Registry
	logger   *zap.Logger
}

// NewHandler creates a new stream handler.
func NewHandler(table Table, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		table:    table,
		registry: project.NewRegistry(),
		logger:   logger,
	}
}

// HandleProjectRemoved deletes the relationship rows of every project row
// removed in the batch. It is an AWS Lambda handler; a returned error makes
// Lambda retry the batch, which is safe because deletes are idempotent.
func (h *Handler) HandleProjectRemoved(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process record",
				zap.String("eventID", record.EventID),
				zap.Error(err),
			)
			return err
		}
	}
	return nil
}

// processRecord sweeps one stream record.
func (h *Handler) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	if record.EventName != "REMOVE" {
		return nil
	}

	key, ok := store.KeyOf(ConvertStreamKey(record.Change.Keys))
	if !ok {
		return nil
	}
	projectID, ok := keys.ParseProject(key.SortKey)
	if !ok {
		return nil
	}
	// Old images are optional on the stream; when present they must describe a project.
	if objectType := getStringAttr(record.Change.OldImage, store.AttrObjectType); objectType != "" && objectType != project.ObjectTypeProject {
		return nil
	}

	page, err := h.table.Query(ctx, store.QueryInput{
		Partition: key.ItemID,
		Prefix:    keys.ProjectTeamsPrefix(projectID),
	})
	if err != nil {
		return fmt.Errorf("query relationships: %w", err)
	}

	var leftovers []store.Key
	for _, item := range page.Items {
		row, err := h.registry.Decode(item)
		if err != nil {
			h.logger.Warn("skipping undecodable row",
				zap.String("organizationID", key.ItemID),
				zap.String("sortKey", store.StringAttr(item, store.AttrSortKey)),
				zap.Error(err),
			)
			continue
		}
		if rel, ok := row.(*project.Relationship); ok && rel.ProjectID == projectID {
			leftovers = append(leftovers, rel.Key())
		}
	}
	if len(leftovers) == 0 {
		return nil
	}

	h.logger.Info("sweeping project relationships",
		zap.String("organizationID", key.ItemID),
		zap.String("projectID", projectID),
		zap.String("name", getStringAttr(record.Change.OldImage, "name")),
		zap.Int("relationships", len(leftovers)),
	)

	if err := h.table.BatchWrite(ctx, nil, leftovers); err != nil {
		return fmt.Errorf("delete relationships of %s: %w", projectID, err)
	}
	return nil
}

// getStringAttr extracts a string attribute from a DynamoDB stream image.
func getStringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	if v, ok := image[key]; ok && v.DataType() == events.DataTypeString {
		return v.String()
	}
	return ""
}

// ConvertStreamKey converts a DynamoDB stream key to a store item.
func ConvertStreamKey(streamKey map[string]events.DynamoDBAttributeValue) store.Item {
	result := make(store.Item)
	for k, v := range streamKey {
		switch v.DataType() {
		case events.DataTypeString:
			result[k] = &types.AttributeValueMemberS{Value: v.String()}
		case events.DataTypeNumber:
			result[k] = &types.AttributeValueMemberN{Value: v.Number()}
		case events.DataTypeBinary:
			result[k] = &types.AttributeValueMemberB{Value: v.Binary()}
		}
	}
	return result
}
