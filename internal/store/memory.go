package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/google/uuid"

	"serenyx/pkg/platform/sentinel"
)

// InMemory keeps all collections in process memory. It favors clarity over
// performance and exists for tests and database-less development; the
// concurrency semantics (atomic insert-if-absent, atomic increment,
// all-or-nothing transactions) match the Postgres adapter.
type InMemory struct {
	mu          sync.RWMutex
	collections map[string]map[string]Document
}

func NewInMemory() *InMemory {
	return &InMemory{collections: make(map[string]map[string]Document)}
}

func (s *InMemory) collection(name string) map[string]Document {
	col, ok := s.collections[name]
	if !ok {
		col = make(map[string]Document)
		s.collections[name] = col
	}
	return col
}

func (s *InMemory) Get(_ context.Context, collection, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneDoc(doc), nil
}

func (s *InMemory) Insert(_ context.Context, collection string, doc Document) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.collection(collection)[id] = cloneDoc(doc)
	return id, nil
}

func (s *InMemory) Put(_ context.Context, collection, id string, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collection(collection)[id] = cloneDoc(doc)
	return nil
}

func (s *InMemory) InsertIfAbsent(_ context.Context, collection, id string, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	col := s.collection(collection)
	if _, exists := col[id]; exists {
		return sentinel.ErrConflict
	}
	col[id] = cloneDoc(doc)
	return nil
}

func (s *InMemory) Update(_ context.Context, collection, id string, fields Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.collections[collection][id]
	if !ok {
		return sentinel.ErrNotFound
	}
	for k, v := range fields {
		doc[k] = cloneValue(v)
	}
	return nil
}

func (s *InMemory) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	col := s.collections[collection]
	if _, ok := col[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(col, id)
	return nil
}

func (s *InMemory) Increment(_ context.Context, collection, id, field string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.collections[collection][id]
	if !ok {
		return 0, sentinel.ErrNotFound
	}
	current := toInt64(doc[field])
	next := current + delta
	doc[field] = next
	return next, nil
}

func (s *InMemory) Query(_ context.Context, collection string, q Query) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []Record
	for id, doc := range s.collections[collection] {
		if matches(doc, q.Filters) {
			records = append(records, Record{ID: id, Doc: cloneDoc(doc)})
		}
	}

	if q.OrderBy != "" {
		sort.SliceStable(records, func(i, j int) bool {
			cmp := compareValues(records[i].Doc[q.OrderBy], records[j].Doc[q.OrderBy])
			if q.Desc {
				return cmp > 0
			}
			return cmp < 0
		})
	}
	if q.Limit > 0 && len(records) > q.Limit {
		records = records[:q.Limit]
	}
	return records, nil
}

// Transact clones the dataset, runs fn against the clone, and swaps it in on
// success. The store lock is held throughout, so the transaction is both
// isolated and atomic; an error discards every write fn made.
func (s *InMemory) Transact(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := make(map[string]map[string]Document, len(s.collections))
	for name, col := range s.collections {
		stagedCol := make(map[string]Document, len(col))
		for id, doc := range col {
			stagedCol[id] = cloneDoc(doc)
		}
		staged[name] = stagedCol
	}

	view := &memoryTx{collections: staged}
	if err := fn(ctx, view); err != nil {
		return err
	}
	s.collections = staged
	return nil
}

// memoryTx operates directly on the staged dataset. No locking: the parent
// store's lock is held for the whole transaction.
type memoryTx struct {
	collections map[string]map[string]Document
}

func (t *memoryTx) collection(name string) map[string]Document {
	col, ok := t.collections[name]
	if !ok {
		col = make(map[string]Document)
		t.collections[name] = col
	}
	return col
}

func (t *memoryTx) Get(_ context.Context, collection, id string) (Document, error) {
	doc, ok := t.collections[collection][id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneDoc(doc), nil
}

func (t *memoryTx) Put(_ context.Context, collection, id string, doc Document) error {
	t.collection(collection)[id] = cloneDoc(doc)
	return nil
}

func (t *memoryTx) InsertIfAbsent(_ context.Context, collection, id string, doc Document) error {
	col := t.collection(collection)
	if _, exists := col[id]; exists {
		return sentinel.ErrConflict
	}
	col[id] = cloneDoc(doc)
	return nil
}

func (t *memoryTx) Increment(_ context.Context, collection, id, field string, delta int64) (int64, error) {
	doc, ok := t.collections[collection][id]
	if !ok {
		return 0, sentinel.ErrNotFound
	}
	next := toInt64(doc[field]) + delta
	doc[field] = next
	return next, nil
}

func matches(doc Document, filters []Filter) bool {
	for _, f := range filters {
		cmp := compareValues(doc[f.Field], f.Value)
		switch f.Op {
		case OpEq:
			if cmp != 0 {
				return false
			}
		case OpGte:
			if cmp < 0 {
				return false
			}
		case OpLte:
			if cmp > 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// compareValues orders two document values: numbers numerically, strings
// lexicographically, bools false<true. Mismatched or unknown types compare by
// their string forms so ordering stays total.
func compareValues(a, b any) int {
	an, aIsNum := toFloat(a)
	bn, bIsNum := toFloat(b)
	if aIsNum && bIsNum {
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		default:
			return 0
		}
	}

	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		default:
			return 0
		}
	}

	ab, aIsBool := a.(bool)
	bb, bIsBool := b.(bool)
	if aIsBool && bIsBool {
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		default:
			return 1
		}
	}

	sa, sb := stringify(a), stringify(b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	default:
		return 0
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(raw)
}

func cloneDoc(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case Document:
		return cloneDoc(val)
	case map[string]any:
		return cloneDoc(val)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
