// Package audit defines the append-only audit trail: every mutating action is
// recorded with actor, action, resource, and outcome. Recording is best-effort
// and never blocks or fails the primary request.
package audit

import (
	"context"
	"time"
)

// Category classifies audit events by their primary purpose, enabling
// different retention policies and routing per category.
type Category string

const (
	// CategoryCompliance covers events with account-lifecycle significance
	// (profile creation, resource deletion).
	CategoryCompliance Category = "compliance"

	// CategorySecurity covers events relevant to security monitoring:
	// auth failures, denied access, rate-limit hits.
	CategorySecurity Category = "security"

	// CategoryOperations covers routine activity useful for debugging.
	// These can be sampled or aggregated with shorter retention.
	CategoryOperations Category = "operations"
)

// Action names what happened. Stable strings; stored and shipped as-is.
type Action string

const (
	ActionPetCreated Action = "pet_created"
	ActionPetUpdated Action = "pet_updated"
	ActionPetDeleted Action = "pet_deleted"

	ActionSoundscapeCreated   Action = "soundscape_created"
	ActionSoundscapeUpdated   Action = "soundscape_updated"
	ActionSoundscapeDeleted   Action = "soundscape_deleted"
	ActionSoundscapeGenerated Action = "soundscape_generated"

	ActionEntrySubmitted  Action = "entry_submitted"
	ActionVoteCast        Action = "vote_cast"
	ActionBestPetVoteCast Action = "best_pet_vote_cast"

	ActionProfileCreated Action = "profile_created"
	ActionProfileUpdated Action = "profile_updated"

	ActionAchievementUnlocked Action = "achievement_unlocked"
	ActionChallengeCompleted  Action = "challenge_completed"
	ActionRewardPurchased     Action = "reward_purchased"
	ActionExperienceGranted   Action = "experience_granted"

	ActionAuthFailed        Action = "auth_failed"
	ActionAccessDenied      Action = "access_denied"
	ActionRateLimitExceeded Action = "rate_limit_exceeded"
)

// actionCategories maps each action to its category. Unmapped actions fall
// back to operations.
var actionCategories = map[Action]Category{
	ActionPetDeleted:        CategoryCompliance,
	ActionSoundscapeDeleted: CategoryCompliance,
	ActionProfileCreated:    CategoryCompliance,

	ActionAuthFailed:        CategorySecurity,
	ActionAccessDenied:      CategorySecurity,
	ActionRateLimitExceeded: CategorySecurity,
}

// CategoryOf returns the retention category for an action.
func (a Action) Category() Category {
	if c, ok := actionCategories[a]; ok {
		return c
	}
	return CategoryOperations
}

// Outcome records how the attempted action ended.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeDenied   Outcome = "denied"
	OutcomeConflict Outcome = "conflict"
	OutcomeNotFound Outcome = "not_found"
	OutcomeError    Outcome = "error"
)

// Event is emitted from services to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	Category  Category
	// ActorID is the subject performing the action; empty for
	// unauthenticated requests (e.g. rejected credentials).
	ActorID  string
	Action   Action
	Resource string
	Outcome  Outcome
	// RequestID, ClientIP and Device come from request context enrichment.
	RequestID string
	ClientIP  string
	Device    string
	Details   map[string]any
}

// Store persists audit events. Implementations must treat the trail as
// append-only; nothing in this service mutates or deletes recorded events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Multi fans an event out to several stores; the first failure is returned
// but later stores still receive the event.
func Multi(stores ...Store) Store {
	return multiStore(stores)
}

type multiStore []Store

func (m multiStore) Append(ctx context.Context, event Event) error {
	var firstErr error
	for _, s := range m {
		if err := s.Append(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
