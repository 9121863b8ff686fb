package catalog

import (
	"context"

	"github.com/misterblack0101/letsride-sub000/internal/docstore"
)

type predicate struct {
	field string
	op    string
	value any
}

type orderKey struct {
	field string
	dir   docstore.Direction
}

// QueryBuilder accumulates filter predicates, sort keys, a cursor position
// and a row limit in any call order, then materializes them into a single
// store query. Filters and sorts must precede cursors and limits on the
// underlying store, so Build applies them in that order regardless of how
// the builder was called.
type QueryBuilder struct {
	col        docstore.Collection
	predicates []predicate
	orders     []orderKey
	cursor     *docstore.Document
	offset     int
	limit      int
}

// NewQuery starts an empty builder over the given collection.
func NewQuery(col docstore.Collection) *QueryBuilder {
	return &QueryBuilder{col: col}
}

// Where registers a predicate. Predicates with a nil value are silently
// dropped and treated as "no filter".
func (b *QueryBuilder) Where(field, op string, value any) *QueryBuilder {
	if value == nil {
		return b
	}
	b.predicates = append(b.predicates, predicate{field: field, op: op, value: value})
	return b
}

// WhereIn registers a multi-value equality predicate. An empty set is
// dropped, a single-element set becomes a plain equality predicate, and a
// multi-element set becomes an "is one of" predicate — some backends
// distinguish the two for indexing.
func (b *QueryBuilder) WhereIn(field string, values []string) *QueryBuilder {
	switch len(values) {
	case 0:
		return b
	case 1:
		return b.Where(field, docstore.OpEqual, values[0])
	default:
		return b.Where(field, docstore.OpIn, values)
	}
}

// OrderBy registers a sort key. Keys apply in registration order.
func (b *QueryBuilder) OrderBy(field string, dir docstore.Direction) *QueryBuilder {
	b.orders = append(b.orders, orderKey{field: field, dir: dir})
	return b
}

// StartAfter resumes the query after the given document.
func (b *QueryBuilder) StartAfter(doc docstore.Document) *QueryBuilder {
	b.cursor = &doc
	return b
}

// Offset skips n rows from the start of the ordered result.
// Non-positive values are ignored.
func (b *QueryBuilder) Offset(n int) *QueryBuilder {
	if n > 0 {
		b.offset = n
	}
	return b
}

// Limit caps the result set. Non-positive values are ignored.
func (b *QueryBuilder) Limit(n int) *QueryBuilder {
	if n > 0 {
		b.limit = n
	}
	return b
}

// Build composes the accumulated pieces into an executable query:
// predicates, then sort keys in registration order, then the cursor, then
// offset and limit.
func (b *QueryBuilder) Build() docstore.Query {
	q := b.col.Query()
	for _, p := range b.predicates {
		q = q.Where(p.field, p.op, p.value)
	}
	for _, o := range b.orders {
		q = q.OrderBy(o.field, o.dir)
	}
	if b.cursor != nil {
		q = q.StartAfter(*b.cursor)
	}
	if b.offset > 0 {
		q = q.Offset(b.offset)
	}
	if b.limit > 0 {
		q = q.Limit(b.limit)
	}
	return q
}

// Execute builds and runs the query, returning raw documents with the
// store-assigned identity merged in.
func (b *QueryBuilder) Execute(ctx context.Context) ([]docstore.Document, error) {
	return b.Build().Documents(ctx)
}
