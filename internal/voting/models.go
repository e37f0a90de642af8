// Package voting implements the contest ledger: pet submissions into voting
// categories and daily per-voter votes. Both uniqueness invariants are
// enforced with deterministic document ids and insert-if-absent, never with
// check-then-act reads.
package voting

import (
	"time"

	dErrors "serenyx/pkg/domain-errors"
)

// Contest categories.
const (
	CategoryMostPhotogenic = "Most Photogenic"
	CategoryMostAdorable   = "Most Adorable"
	CategoryMostAthletic   = "Most Athletic"
	CategoryMostSmart      = "Most Smart"
)

var validCategories = map[string]bool{
	CategoryMostPhotogenic: true,
	CategoryMostAdorable:   true,
	CategoryMostAthletic:   true,
	CategoryMostSmart:      true,
}

// Categories returns the contest categories in display order.
func Categories() []string {
	return []string{
		CategoryMostPhotogenic,
		CategoryMostAdorable,
		CategoryMostAthletic,
		CategoryMostSmart,
	}
}

// Entry is one pet submitted into one contest category. At most one Entry
// exists per (petId, category); the entry id is derived from that pair.
type Entry struct {
	ID           string    `json:"id"`
	PetID        string    `json:"petId"`
	OwnerID      string    `json:"ownerId"`
	Category     string    `json:"category"`
	Description  string    `json:"description"`
	Achievements []string  `json:"achievements,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	Votes        int64     `json:"votes"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Owner implements guard.Owned.
func (e Entry) Owner() string { return e.OwnerID }

// Vote is one recorded vote. At most one exists per
// (voterId, entryId, UTC day); the vote id is derived from that triple.
type Vote struct {
	ID        string    `json:"id"`
	VoterID   string    `json:"voterId"`
	EntryID   string    `json:"entryId"`
	PetID     string    `json:"petId"`
	Category  string    `json:"category"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// SubmitRequest is the POST /api/voting/submit payload.
type SubmitRequest struct {
	PetID        string   `json:"petId"`
	Category     string   `json:"category"`
	Description  string   `json:"description"`
	Achievements []string `json:"achievements,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

func (r SubmitRequest) Validate() error {
	verr := dErrors.New(dErrors.CodeValidation, "invalid submission payload")

	if r.PetID == "" {
		verr.Add("petId", "petId is required")
	}
	if !validCategories[r.Category] {
		verr.Add("category", "category must be one of the contest categories")
	}
	if l := len(r.Description); l < 10 || l > 500 {
		verr.Add("description", "description must be between 10 and 500 characters")
	}

	if len(dErrors.Load(verr)) == 0 {
		return nil
	}
	return verr
}

// VoteRequest is the POST /api/voting/vote payload.
type VoteRequest struct {
	PetID    string `json:"petId"`
	Category string `json:"category"`
	Reason   string `json:"reason,omitempty"`
}

func (r VoteRequest) Validate() error {
	verr := dErrors.New(dErrors.CodeValidation, "invalid vote payload")

	if r.PetID == "" {
		verr.Add("petId", "petId is required")
	}
	if !validCategories[r.Category] {
		verr.Add("category", "category must be one of the contest categories")
	}
	if len(r.Reason) > 200 {
		verr.Add("reason", "reason must be at most 200 characters")
	}

	if len(dErrors.Load(verr)) == 0 {
		return nil
	}
	return verr
}

// VoteResult reports a recorded vote and the counter value the voter
// observed. Under concurrent votes the authoritative count lives in the
// store; this is the locally observed value.
type VoteResult struct {
	EntryID      string `json:"entryId"`
	NewVoteCount int64  `json:"newVoteCount"`
}

// Stats summarizes the contest.
type Stats struct {
	TotalEntries  int            `json:"totalEntries"`
	TotalVotes    int            `json:"totalVotes"`
	CategoryStats map[string]int `json:"categoryStats"`
	Timestamp     time.Time      `json:"timestamp"`
}
