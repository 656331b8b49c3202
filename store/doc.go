// Package store provides the DynamoDB data access layer for the single-table
// projects model.
//
// Every row lives in one table keyed by (item_id, sort_key). The item_id is the
// owning organization's id, so every read and write is scoped to one tenant
// partition by construction. Entity types are told apart by the sort key prefix
// and the object_type attribute; see package internal/keys for the layout.
//
// # Operations
//
//   - [Store.Get] point read with an optional projection; [ErrNotFound] when absent
//   - [Store.Query] begins_with range query on sort_key, or on object_id when
//     an index is named; single page with a continuation token, or drain all
//   - [Store.Put] unconditional put (last writer wins)
//   - [Store.BatchWrite] chunked puts and deletes with bounded retries
//
// # Batches
//
// Batches are not transactions. Each row is an independent, idempotent write:
// puts overwrite, deletes of absent keys are no-ops. Rows still unprocessed
// after [Config.MaxAttempts] are reported through [*BatchError]; rows that
// succeeded stay applied.
//
// # Continuation tokens
//
// A paged query returns [Page.NextToken], an opaque string that must be passed
// back unchanged as [QueryInput.StartToken] to resume.
//
// # Polymorphic rows
//
// A [Registry] maps object_type values to a [Schema] describing the row's public
// projection, its immutable attributes and how to decode it.
//
// # Errors
//
//   - [ErrNotFound] - item doesn't exist
//   - [ErrInvalidToken] - continuation token could not be decoded
//   - [ErrUnknownObjectType] - no schema registered for the row's object_type
//   - [*BatchError] - some batch rows failed after retries
package store
