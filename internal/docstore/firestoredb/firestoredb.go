// Package firestoredb adapts Cloud Firestore to the docstore port.
package firestoredb

import (
	"context"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/go-faster/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/misterblack0101/letsride-sub000/internal/docstore"
)

// Store wraps a Firestore client as a docstore.Store.
type Store struct {
	client *firestore.Client
}

var _ docstore.Store = (*Store)(nil)

// New returns a Store backed by the given Firestore client.
func New(client *firestore.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Collection(name string) docstore.Collection {
	return &collection{ref: s.client.Collection(name)}
}

type collection struct {
	ref *firestore.CollectionRef
}

func (c *collection) Get(ctx context.Context, id string) (docstore.Document, error) {
	snap, err := c.ref.Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return docstore.Document{}, docstore.ErrNotFound
		}
		return docstore.Document{}, mapError(err, "get document")
	}
	return docstore.Document{ID: snap.Ref.ID, Fields: snap.Data()}, nil
}

func (c *collection) Create(ctx context.Context, fields map[string]any) (string, error) {
	ref, _, err := c.ref.Add(ctx, fields)
	if err != nil {
		return "", mapError(err, "create document")
	}
	return ref.ID, nil
}

func (c *collection) Set(ctx context.Context, id string, fields map[string]any) error {
	if _, err := c.ref.Doc(id).Set(ctx, fields); err != nil {
		return mapError(err, "set document")
	}
	return nil
}

func (c *collection) Update(ctx context.Context, id string, fields map[string]any) error {
	if _, err := c.ref.Doc(id).Set(ctx, fields, firestore.MergeAll); err != nil {
		return mapError(err, "update document")
	}
	return nil
}

func (c *collection) Delete(ctx context.Context, id string) error {
	if _, err := c.ref.Doc(id).Delete(ctx); err != nil {
		return mapError(err, "delete document")
	}
	return nil
}

func (c *collection) Query() docstore.Query {
	return &query{col: c, q: c.ref.Query}
}

type query struct {
	col *collection
	q   firestore.Query

	// cursorID is resolved to a document snapshot at execution time,
	// after all filters and sort keys have been applied.
	cursorID  string
	hasCursor bool
}

func (q *query) Where(field, op string, value any) docstore.Query {
	q.q = q.q.Where(field, op, value)
	return q
}

func (q *query) OrderBy(field string, dir docstore.Direction) docstore.Query {
	d := firestore.Asc
	if dir == docstore.Desc {
		d = firestore.Desc
	}
	q.q = q.q.OrderBy(field, d)
	return q
}

func (q *query) StartAfter(doc docstore.Document) docstore.Query {
	q.cursorID = doc.ID
	q.hasCursor = true
	return q
}

func (q *query) Offset(n int) docstore.Query {
	q.q = q.q.Offset(n)
	return q
}

func (q *query) Limit(n int) docstore.Query {
	q.q = q.q.Limit(n)
	return q
}

func (q *query) Documents(ctx context.Context) ([]docstore.Document, error) {
	fq := q.q
	if q.hasCursor {
		snap, err := q.col.ref.Doc(q.cursorID).Get(ctx)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return nil, docstore.ErrNotFound
			}
			return nil, mapError(err, "resolve cursor")
		}
		fq = fq.StartAfter(snap)
	}

	iter := fq.Documents(ctx)
	defer iter.Stop()

	var docs []docstore.Document
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return docs, nil
		}
		if err != nil {
			return nil, mapError(err, "iterate documents")
		}
		docs = append(docs, docstore.Document{ID: snap.Ref.ID, Fields: snap.Data()})
	}
}

func (q *query) Count(ctx context.Context) (int64, error) {
	res, err := q.q.NewAggregationQuery().WithCount("all").Get(ctx)
	if err != nil {
		if status.Code(err) == codes.Unimplemented {
			return 0, docstore.ErrCountUnsupported
		}
		return 0, mapError(err, "count documents")
	}
	v, ok := res["all"].(*firestorepb.Value)
	if !ok {
		return 0, docstore.ErrCountUnsupported
	}
	return v.GetIntegerValue(), nil
}

// mapError wraps a Firestore error with the docstore code taxonomy so the
// retry policy can classify it.
func mapError(err error, msg string) error {
	code := docstore.CodeUnknown
	switch status.Code(err) {
	case codes.Unavailable:
		code = docstore.CodeUnavailable
	case codes.DeadlineExceeded:
		code = docstore.CodeDeadlineExceeded
	case codes.ResourceExhausted:
		code = docstore.CodeResourceExhausted
	case codes.Internal:
		code = docstore.CodeInternal
	case codes.Unauthenticated:
		code = docstore.CodeUnauthenticated
	case codes.PermissionDenied:
		code = docstore.CodePermissionDenied
	case codes.InvalidArgument:
		code = docstore.CodeInvalidArgument
	case codes.NotFound:
		code = docstore.CodeNotFound
	}
	return &docstore.Error{Code: code, Err: errors.Wrap(err, msg)}
}
