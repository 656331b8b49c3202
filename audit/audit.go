// Package audit records an immutable event for every mutating operation.
//
// Recording is fire-and-forget for callers: [Emitter.Record] never returns an
// error. Sink failures are logged and swallowed so they cannot fail the
// operation being audited.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"go.uber.org/zap"

	"github.com/jacentio/projects/internal/keys"
	"github.com/jacentio/projects/store"
)

// Event types.
const (
	TypeCreate = "create"
	TypeUpdate = "update"
	TypeDelete = "delete"
)

// ObjectTypeEvent is the object_type of audit rows.
const ObjectTypeEvent = "event"

// Event describes one mutation.
type Event struct {
	OrganizationID string
	EventID        string
	Description    string
	Actor          string
	Type           string
	SourceIP       string

	// Snapshot is the entity as it was written (or as it was before a delete).
	Snapshot any
}

// Sink persists events.
type Sink interface {
	Write(ctx context.Context, ev Event) error
}

// Emitter records events through a Sink and reports failures to the logger.
type Emitter struct {
	sink   Sink
	logger *zap.Logger
}

// NewEmitter creates an Emitter. A nil logger discards failure reports.
func NewEmitter(sink Sink, logger *zap.Logger) *Emitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Emitter{sink: sink, logger: logger}
}

// Record writes ev. Failures are logged at warn level and otherwise ignored.
func (e *Emitter) Record(ctx context.Context, ev Event) {
	if e == nil || e.sink == nil {
		return
	}
	if err := e.sink.Write(ctx, ev); err != nil {
		e.logger.Warn("failed to record audit event",
			zap.String("eventID", ev.EventID),
			zap.String("eventType", ev.Type),
			zap.String("organizationID", ev.OrganizationID),
			zap.Error(err),
		)
	}
}

// Putter is the store operation TableSink needs.
type Putter interface {
	Put(ctx context.Context, item store.Item) error
}

// record is the stored shape of an event row.
type record struct {
	ItemID      string `dynamodbav:"item_id"`
	SortKey     string `dynamodbav:"sort_key"`
	ObjectType  string `dynamodbav:"object_type"`
	ObjectID    string `dynamodbav:"object_id"`
	EventID     string `dynamodbav:"event_id"`
	EventType   string `dynamodbav:"event_type"`
	Description string `dynamodbav:"description"`
	Actor       string `dynamodbav:"actor"`
	IPAddress   string `dynamodbav:"ip_address,omitempty"`
	CreatedOn   string `dynamodbav:"created_on"`
}

// TableSink writes events as event rows in the organization's partition.
type TableSink struct {
	table Putter
	now   func() time.Time
}

// NewTableSink creates a sink writing through table.
func NewTableSink(table Putter) *TableSink {
	return &TableSink{
		table: table,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Write stores ev with its snapshot under the "body" attribute.
func (s *TableSink) Write(ctx context.Context, ev Event) error {
	if ev.OrganizationID == "" || ev.EventID == "" {
		return fmt.Errorf("audit: event needs organization and event id")
	}

	key := keys.Event(ev.OrganizationID, ev.EventID)
	item, err := attributevalue.MarshalMap(record{
		ItemID:      key.ItemID,
		SortKey:     key.SortKey,
		ObjectType:  ObjectTypeEvent,
		ObjectID:    keys.EventObjectID(ev.EventID),
		EventID:     ev.EventID,
		EventType:   ev.Type,
		Description: ev.Description,
		Actor:       ev.Actor,
		IPAddress:   ev.SourceIP,
		CreatedOn:   s.now().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("audit: marshal event: %w", err)
	}

	if ev.Snapshot != nil {
		body, err := attributevalue.Marshal(ev.Snapshot)
		if err != nil {
			return fmt.Errorf("audit: marshal snapshot: %w", err)
		}
		item["body"] = body
	}

	return s.table.Put(ctx, item)
}
