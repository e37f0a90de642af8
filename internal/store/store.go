// Package store defines the document-collection port every feature persists
// through: get/query/put/update/delete plus the atomic primitives the voting
// ledger depends on (insert-if-absent, atomic increment, transactions).
//
// Implementations return sentinel errors (pkg/platform/sentinel); services
// translate them into domain errors. Transient infrastructure failures
// surface as ErrUnavailable and are never retried here - retry policy belongs
// to the caller. Serialization aborts inside Transact are the one exception:
// they are the isolation level's re-run signal and the adapter absorbs them.
package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// Collection names. Document ids are store-assigned unless a deterministic id
// is supplied to enforce a uniqueness key.
const (
	CollectionPets            = "pets"
	CollectionSoundscapes     = "soundscapes"
	CollectionEntries         = "entries"
	CollectionVotes           = "votes"
	CollectionUsers           = "users"
	CollectionBestPetTallies  = "bestPetTallies"
	CollectionBestPetDayVotes = "bestPetDailyVotes"

	CollectionAchievements     = "achievements"
	CollectionChallenges       = "challenges"
	CollectionRewards          = "rewards"
	CollectionUserAchievements = "userAchievements"
	CollectionUserChallenges   = "userChallenges"
	CollectionUserRewards      = "userRewards"
	CollectionExperienceLog    = "experienceLog"
)

// Document is one stored JSON object.
type Document map[string]any

// Record pairs a document with its id for query results.
type Record struct {
	ID  string
	Doc Document
}

// FilterOp is the comparison applied by a query filter.
type FilterOp string

const (
	OpEq  FilterOp = "=="
	OpGte FilterOp = ">="
	OpLte FilterOp = "<="
)

// Filter restricts a query to documents whose field compares to Value.
// Field names come from service code, never from user input.
type Filter struct {
	Field string
	Op    FilterOp
	Value any
}

func Eq(field string, value any) Filter  { return Filter{Field: field, Op: OpEq, Value: value} }
func Gte(field string, value any) Filter { return Filter{Field: field, Op: OpGte, Value: value} }
func Lte(field string, value any) Filter { return Filter{Field: field, Op: OpLte, Value: value} }

// Query describes a filtered, optionally ordered and limited collection scan.
type Query struct {
	Filters []Filter
	OrderBy string
	Desc    bool
	Limit   int
}

// Tx is the operation set available inside a transaction. All writes made
// through a Tx become visible atomically when Transact returns nil.
type Tx interface {
	// Get returns the document at id or sentinel.ErrNotFound.
	Get(ctx context.Context, collection, id string) (Document, error)

	// Put creates or replaces the document at id.
	Put(ctx context.Context, collection, id string, doc Document) error

	// InsertIfAbsent creates the document only when no document exists at id;
	// returns sentinel.ErrConflict otherwise. This is the primitive uniqueness
	// keys are built on.
	InsertIfAbsent(ctx context.Context, collection, id string, doc Document) error

	// Increment atomically adds delta to a numeric field and returns the new
	// value. Never a read-modify-write of a cached value.
	Increment(ctx context.Context, collection, id, field string, delta int64) (int64, error)
}

// Store is the full document-collection interface.
type Store interface {
	Tx

	// Insert creates a document under a store-assigned id and returns it.
	Insert(ctx context.Context, collection string, doc Document) (string, error)

	// Query returns records matching q.
	Query(ctx context.Context, collection string, q Query) ([]Record, error)

	// Update merges fields into an existing document or returns
	// sentinel.ErrNotFound.
	Update(ctx context.Context, collection, id string, fields Document) error

	// Delete removes the document at id or returns sentinel.ErrNotFound.
	Delete(ctx context.Context, collection, id string) error

	// Transact runs fn with all-or-nothing visibility. fn may be invoked with
	// a transactional view only; writes outside fn are not part of the
	// transaction.
	Transact(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Marshal converts a typed model into a Document via its JSON form.
func Marshal(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("remarshal document: %w", err)
	}
	return doc, nil
}

// Unmarshal converts a Document back into a typed model.
func Unmarshal(doc Document, v any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("unmarshal document: %w", err)
	}
	return nil
}
