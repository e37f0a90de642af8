package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"serenyx/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) TestCrud() {
	s.Run("insert assigns an id and get returns the document", func() {
		id, err := s.store.Insert(s.ctx, CollectionPets, Document{"name": "Rex"})
		s.Require().NoError(err)
		s.NotEmpty(id)

		doc, err := s.store.Get(s.ctx, CollectionPets, id)
		s.Require().NoError(err)
		s.Equal("Rex", doc["name"])
	})

	s.Run("get of unknown id returns ErrNotFound", func() {
		_, err := s.store.Get(s.ctx, CollectionPets, "missing")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("update merges fields", func() {
		id, err := s.store.Insert(s.ctx, CollectionPets, Document{"name": "Rex", "age": 24})
		s.Require().NoError(err)

		s.Require().NoError(s.store.Update(s.ctx, CollectionPets, id, Document{"age": 25}))

		doc, err := s.store.Get(s.ctx, CollectionPets, id)
		s.Require().NoError(err)
		s.Equal("Rex", doc["name"])
		s.EqualValues(25, toInt64(doc["age"]))
	})

	s.Run("update of unknown id returns ErrNotFound", func() {
		err := s.store.Update(s.ctx, CollectionPets, "missing", Document{"age": 1})
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("delete removes the document", func() {
		id, err := s.store.Insert(s.ctx, CollectionPets, Document{"name": "Rex"})
		s.Require().NoError(err)

		s.Require().NoError(s.store.Delete(s.ctx, CollectionPets, id))
		_, err = s.store.Get(s.ctx, CollectionPets, id)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
		s.Require().ErrorIs(s.store.Delete(s.ctx, CollectionPets, id), sentinel.ErrNotFound)
	})

	s.Run("returned documents are copies", func() {
		id, err := s.store.Insert(s.ctx, CollectionPets, Document{"name": "Rex"})
		s.Require().NoError(err)

		doc, err := s.store.Get(s.ctx, CollectionPets, id)
		s.Require().NoError(err)
		doc["name"] = "mutated"

		doc2, err := s.store.Get(s.ctx, CollectionPets, id)
		s.Require().NoError(err)
		s.Equal("Rex", doc2["name"])
	})
}

func (s *MemoryStoreSuite) TestInsertIfAbsent() {
	s.Run("second insert at the same id conflicts", func() {
		err := s.store.InsertIfAbsent(s.ctx, CollectionVotes, "k1", Document{"voterId": "u1"})
		s.Require().NoError(err)

		err = s.store.InsertIfAbsent(s.ctx, CollectionVotes, "k1", Document{"voterId": "u1"})
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("exactly one concurrent inserter wins", func() {
		const attempts = 32
		var wg sync.WaitGroup
		results := make(chan error, attempts)

		for range attempts {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results <- s.store.InsertIfAbsent(s.ctx, CollectionVotes, "race", Document{"x": 1})
			}()
		}
		wg.Wait()
		close(results)

		wins, conflicts := 0, 0
		for err := range results {
			switch {
			case err == nil:
				wins++
			case s.ErrorIs(err, sentinel.ErrConflict):
				conflicts++
			}
		}
		s.Equal(1, wins)
		s.Equal(attempts-1, conflicts)
	})
}

func (s *MemoryStoreSuite) TestIncrement() {
	s.Run("missing field starts at zero", func() {
		s.Require().NoError(s.store.Put(s.ctx, CollectionEntries, "e1", Document{"petId": "p1"}))

		n, err := s.store.Increment(s.ctx, CollectionEntries, "e1", "votes", 1)
		s.Require().NoError(err)
		s.EqualValues(1, n)
	})

	s.Run("unknown document returns ErrNotFound", func() {
		_, err := s.store.Increment(s.ctx, CollectionEntries, "missing", "votes", 1)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("no increment is lost under concurrent writers", func() {
		s.Require().NoError(s.store.Put(s.ctx, CollectionEntries, "e2", Document{"votes": 0}))

		const writers = 50
		var wg sync.WaitGroup
		for range writers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.store.Increment(s.ctx, CollectionEntries, "e2", "votes", 1)
				s.NoError(err)
			}()
		}
		wg.Wait()

		doc, err := s.store.Get(s.ctx, CollectionEntries, "e2")
		s.Require().NoError(err)
		s.EqualValues(writers, toInt64(doc["votes"]))
	})
}

func (s *MemoryStoreSuite) TestQuery() {
	seed := []Document{
		{"ownerId": "u1", "name": "Rex", "votes": 5, "createdAt": "2025-06-01T00:00:00Z"},
		{"ownerId": "u1", "name": "Bella", "votes": 9, "createdAt": "2025-06-02T00:00:00Z"},
		{"ownerId": "u2", "name": "Milo", "votes": 2, "createdAt": "2025-06-03T00:00:00Z"},
	}
	for _, doc := range seed {
		_, err := s.store.Insert(s.ctx, CollectionPets, doc)
		s.Require().NoError(err)
	}

	s.Run("equality filter", func() {
		records, err := s.store.Query(s.ctx, CollectionPets, Query{
			Filters: []Filter{Eq("ownerId", "u1")},
		})
		s.Require().NoError(err)
		s.Len(records, 2)
	})

	s.Run("range filter on timestamps", func() {
		records, err := s.store.Query(s.ctx, CollectionPets, Query{
			Filters: []Filter{Gte("createdAt", "2025-06-02T00:00:00Z")},
		})
		s.Require().NoError(err)
		s.Len(records, 2)
	})

	s.Run("order by votes desc with limit", func() {
		records, err := s.store.Query(s.ctx, CollectionPets, Query{
			OrderBy: "votes",
			Desc:    true,
			Limit:   2,
		})
		s.Require().NoError(err)
		s.Require().Len(records, 2)
		s.Equal("Bella", records[0].Doc["name"])
		s.Equal("Rex", records[1].Doc["name"])
	})

	s.Run("no matches returns empty", func() {
		records, err := s.store.Query(s.ctx, CollectionPets, Query{
			Filters: []Filter{Eq("ownerId", "nobody")},
		})
		s.Require().NoError(err)
		s.Empty(records)
	})
}

func (s *MemoryStoreSuite) TestTransact() {
	s.Run("writes are atomic", func() {
		err := s.store.Transact(s.ctx, func(ctx context.Context, tx Tx) error {
			if err := tx.Put(ctx, CollectionBestPetTallies, "p1", Document{"votes": 1}); err != nil {
				return err
			}
			return tx.Put(ctx, CollectionBestPetDayVotes, "k1", Document{"petId": "p1"})
		})
		s.Require().NoError(err)

		_, err = s.store.Get(s.ctx, CollectionBestPetTallies, "p1")
		s.Require().NoError(err)
		_, err = s.store.Get(s.ctx, CollectionBestPetDayVotes, "k1")
		s.Require().NoError(err)
	})

	s.Run("an error discards every write", func() {
		err := s.store.Transact(s.ctx, func(ctx context.Context, tx Tx) error {
			if err := tx.Put(ctx, CollectionBestPetTallies, "p2", Document{"votes": 1}); err != nil {
				return err
			}
			return sentinel.ErrInvalidState
		})
		s.Require().ErrorIs(err, sentinel.ErrInvalidState)

		_, err = s.store.Get(s.ctx, CollectionBestPetTallies, "p2")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("read inside the transaction sees staged writes", func() {
		err := s.store.Transact(s.ctx, func(ctx context.Context, tx Tx) error {
			if err := tx.Put(ctx, CollectionBestPetTallies, "p3", Document{"votes": 0}); err != nil {
				return err
			}
			n, err := tx.Increment(ctx, CollectionBestPetTallies, "p3", "votes", 1)
			if err != nil {
				return err
			}
			s.EqualValues(1, n)
			return nil
		})
		s.Require().NoError(err)
	})
}

func (s *MemoryStoreSuite) TestMarshalRoundTrip() {
	type pet struct {
		Name  string `json:"name"`
		Age   int    `json:"age"`
		Owner string `json:"ownerId"`
	}

	doc, err := Marshal(pet{Name: "Rex", Age: 24, Owner: "u1"})
	s.Require().NoError(err)
	s.Equal("Rex", doc["name"])

	var out pet
	s.Require().NoError(Unmarshal(doc, &out))
	s.Equal(pet{Name: "Rex", Age: 24, Owner: "u1"}, out)
}
