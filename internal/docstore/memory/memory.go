// Package memory is an in-memory docstore.Store used by tests, local mode
// and the seed CLI dry run. It implements the full query surface including
// cursors and offsets; count aggregation support is toggleable so the
// degraded count path stays testable.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/misterblack0101/letsride-sub000/internal/docstore"
)

// Store is an in-memory document store.
type Store struct {
	mu sync.RWMutex
	// collections maps collection name -> document id -> fields.
	collections map[string]map[string]map[string]any

	// CountSupported controls whether queries answer Count natively.
	CountSupported bool
}

var _ docstore.Store = (*Store)(nil)

// New returns an empty store with count aggregation enabled.
func New() *Store {
	return &Store{
		collections:    make(map[string]map[string]map[string]any),
		CountSupported: true,
	}
}

func (s *Store) Collection(name string) docstore.Collection {
	return &collection{store: s, name: name}
}

func (s *Store) docs(name string) map[string]map[string]any {
	c, ok := s.collections[name]
	if !ok {
		c = make(map[string]map[string]any)
		s.collections[name] = c
	}
	return c
}

type collection struct {
	store *Store
	name  string
}

func (c *collection) Get(_ context.Context, id string) (docstore.Document, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	fields, ok := c.store.docs(c.name)[id]
	if !ok {
		return docstore.Document{}, docstore.ErrNotFound
	}
	return docstore.Document{ID: id, Fields: cloneFields(fields)}, nil
}

func (c *collection) Create(_ context.Context, fields map[string]any) (string, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	id := uuid.New().String()
	c.store.docs(c.name)[id] = cloneFields(fields)
	return id, nil
}

func (c *collection) Set(_ context.Context, id string, fields map[string]any) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	c.store.docs(c.name)[id] = cloneFields(fields)
	return nil
}

func (c *collection) Update(_ context.Context, id string, fields map[string]any) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	doc, ok := c.store.docs(c.name)[id]
	if !ok {
		return docstore.ErrNotFound
	}
	for k, v := range fields {
		doc[k] = v
	}
	return nil
}

func (c *collection) Delete(_ context.Context, id string) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	delete(c.store.docs(c.name), id)
	return nil
}

func (c *collection) Query() docstore.Query {
	return &query{col: c}
}

type filter struct {
	field string
	op    string
	value any
}

type sortKey struct {
	field string
	dir   docstore.Direction
}

type query struct {
	col        *collection
	filters    []filter
	sorts      []sortKey
	startAfter string
	hasCursor  bool
	offset     int
	limit      int
}

func (q *query) Where(field, op string, value any) docstore.Query {
	q.filters = append(q.filters, filter{field: field, op: op, value: value})
	return q
}

func (q *query) OrderBy(field string, dir docstore.Direction) docstore.Query {
	q.sorts = append(q.sorts, sortKey{field: field, dir: dir})
	return q
}

func (q *query) StartAfter(doc docstore.Document) docstore.Query {
	q.startAfter = doc.ID
	q.hasCursor = true
	return q
}

func (q *query) Offset(n int) docstore.Query {
	q.offset = n
	return q
}

func (q *query) Limit(n int) docstore.Query {
	q.limit = n
	return q
}

func (q *query) Documents(_ context.Context) ([]docstore.Document, error) {
	docs := q.matching()

	if q.hasCursor {
		pos := -1
		for i, d := range docs {
			if d.ID == q.startAfter {
				pos = i
				break
			}
		}
		docs = docs[pos+1:]
	}
	if q.offset > 0 {
		if q.offset >= len(docs) {
			docs = nil
		} else {
			docs = docs[q.offset:]
		}
	}
	if q.limit > 0 && len(docs) > q.limit {
		docs = docs[:q.limit]
	}
	return docs, nil
}

func (q *query) Count(_ context.Context) (int64, error) {
	if !q.col.store.CountSupported {
		return 0, docstore.ErrCountUnsupported
	}
	return int64(len(q.matching())), nil
}

// matching returns filtered, sorted copies of the collection's documents.
func (q *query) matching() []docstore.Document {
	q.col.store.mu.RLock()
	var docs []docstore.Document
	for id, fields := range q.col.store.docs(q.col.name) {
		if q.matches(fields) {
			docs = append(docs, docstore.Document{ID: id, Fields: cloneFields(fields)})
		}
	}
	q.col.store.mu.RUnlock()

	sort.SliceStable(docs, func(i, j int) bool {
		for _, k := range q.sorts {
			c, ok := compare(docs[i].Fields[k.field], docs[j].Fields[k.field])
			if !ok || c == 0 {
				continue
			}
			if k.dir == docstore.Desc {
				return c > 0
			}
			return c < 0
		}
		// Stable tail ordering so cursors stay deterministic.
		return docs[i].ID < docs[j].ID
	})
	return docs
}

func (q *query) matches(fields map[string]any) bool {
	for _, f := range q.filters {
		got, ok := fields[f.field]
		if !ok {
			return false
		}
		c, ok := compare(got, f.value)
		switch f.op {
		case docstore.OpEqual:
			if !ok || c != 0 {
				return false
			}
		case docstore.OpIn:
			if !containsValue(f.value, got) {
				return false
			}
		case docstore.OpGreaterEqual:
			if !ok || c < 0 {
				return false
			}
		case docstore.OpLessEqual:
			if !ok || c > 0 {
				return false
			}
		case docstore.OpGreater:
			if !ok || c <= 0 {
				return false
			}
		case docstore.OpLess:
			if !ok || c >= 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func containsValue(set, got any) bool {
	switch vs := set.(type) {
	case []string:
		for _, v := range vs {
			if c, ok := compare(got, v); ok && c == 0 {
				return true
			}
		}
	case []any:
		for _, v := range vs {
			if c, ok := compare(got, v); ok && c == 0 {
				return true
			}
		}
	}
	return false
}

// compare orders two field values. Numbers order numerically across int
// widths, strings lexically, bools false<true. Mismatched or unknown types
// report !ok so they never satisfy any filter.
func compare(a, b any) (int, bool) {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}
	if as, ok := a.(string); ok {
		bs, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(as, bs), true
	}
	if ab, ok := a.(bool); ok {
		bb, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case ab == bb:
			return 0, true
		case bb:
			return -1, true
		default:
			return 1, true
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func cloneFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
