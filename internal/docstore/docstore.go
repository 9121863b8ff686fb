// Package docstore defines the narrow document-store port the catalog is
// built against: collections of schemaless documents queried through
// filter/order/cursor/limit primitives, with an optional server-side count
// aggregation.
package docstore

import (
	"context"

	"github.com/go-faster/errors"
)

// Direction controls sort order for a query sort key.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// Supported filter operators.
const (
	OpEqual        = "=="
	OpIn           = "in"
	OpGreaterEqual = ">="
	OpLessEqual    = "<="
	OpGreater      = ">"
	OpLess         = "<"
)

// Document is a single stored record: the store-assigned identity plus its
// field map.
type Document struct {
	ID     string
	Fields map[string]any
}

// ErrNotFound is returned by point lookups for absent documents.
var ErrNotFound = errors.New("document not found")

// ErrCountUnsupported is returned by Query.Count when the backend has no
// native count aggregation. Callers are expected to degrade to fetching
// and counting rows.
var ErrCountUnsupported = errors.New("count aggregation not supported")

// Code classifies store errors for retry decisions.
type Code int

const (
	CodeUnknown Code = iota
	CodeUnavailable
	CodeDeadlineExceeded
	CodeResourceExhausted
	CodeInternal
	CodeUnauthenticated
	CodePermissionDenied
	CodeInvalidArgument
	CodeNotFound
)

// Error is a classified store error.
type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether err represents a transient store failure
// (network, timeout, rate-limit, internal) as opposed to a permanent one
// (auth, permission, invalid argument, not found).
func Retryable(err error) bool {
	var se *Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code {
	case CodeUnavailable, CodeDeadlineExceeded, CodeResourceExhausted, CodeInternal:
		return true
	default:
		return false
	}
}

// Store is a handle to a document database.
type Store interface {
	Collection(name string) Collection
}

// Collection exposes point operations and query construction for one
// document collection.
type Collection interface {
	// Get returns the document with the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (Document, error)
	// Create stores fields under a new store-assigned id and returns it.
	Create(ctx context.Context, fields map[string]any) (string, error)
	// Set stores fields under the given id, replacing any existing document.
	Set(ctx context.Context, id string, fields map[string]any) error
	// Update merges fields into the existing document.
	Update(ctx context.Context, id string, fields map[string]any) error
	// Delete removes the document. Deleting an absent document is not an error.
	Delete(ctx context.Context, id string) error
	// Query starts an empty query over the collection.
	Query() Query
}

// Query accumulates filters, sort keys, a cursor, an offset and a limit.
// Implementations require filters and sorts to be applied before cursors
// and limits; callers compose in that order.
type Query interface {
	Where(field, op string, value any) Query
	OrderBy(field string, dir Direction) Query
	StartAfter(doc Document) Query
	Offset(n int) Query
	Limit(n int) Query
	// Documents executes the query and returns matching documents in order.
	Documents(ctx context.Context) ([]Document, error)
	// Count executes a server-side count aggregation over the filtered
	// query, or returns ErrCountUnsupported.
	Count(ctx context.Context) (int64, error)
}
