// Package gamification tracks achievements, challenges, rewards and
// experience on top of the user documents. Catalog items live in their own
// collections; per-user unlocks are separate documents whose deterministic
// ids make "already unlocked" a store-level conflict rather than a read-check.
package gamification

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"serenyx/internal/identity"
	"serenyx/internal/platform/metrics"
	"serenyx/internal/store"
	dErrors "serenyx/pkg/domain-errors"
	"serenyx/pkg/platform/audit"
	"serenyx/pkg/platform/sentinel"
	"serenyx/pkg/requestcontext"
)

// userItemID keys a per-user unlock, completion or purchase. The composite
// form enforces at most one per (user, item).
func userItemID(userID, itemID string) string {
	return userID + "_" + itemID
}

type Service struct {
	store    store.Store
	recorder *audit.Recorder
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewService(st store.Store, recorder *audit.Recorder, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{store: st, recorder: recorder, metrics: m, logger: logger}
}

// ListAchievements returns the full achievement catalog.
func (s *Service) ListAchievements(ctx context.Context) ([]Achievement, error) {
	records, err := s.store.Query(ctx, store.CollectionAchievements, store.Query{OrderBy: "experienceReward"})
	if err != nil {
		return nil, storeError(err, "list achievements")
	}
	out := make([]Achievement, 0, len(records))
	for _, rec := range records {
		var a Achievement
		if err := store.Unmarshal(rec.Doc, &a); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decode achievement document")
		}
		a.ID = rec.ID
		out = append(out, a)
	}
	return out, nil
}

// UserAchievements returns the subject's unlocked achievements.
func (s *Service) UserAchievements(ctx context.Context, sub identity.Subject) ([]UserAchievement, error) {
	records, err := s.store.Query(ctx, store.CollectionUserAchievements, store.Query{
		Filters: []store.Filter{store.Eq("userId", sub.ID)},
		OrderBy: "unlockedAt",
		Desc:    true,
	})
	if err != nil {
		return nil, storeError(err, "list user achievements")
	}
	out := make([]UserAchievement, 0, len(records))
	for _, rec := range records {
		var ua UserAchievement
		if err := store.Unmarshal(rec.Doc, &ua); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decode user achievement document")
		}
		out = append(out, ua)
	}
	return out, nil
}

// Unlock grants the subject an achievement and credits its experience reward.
// The unlock document and the user counters move in one transaction; a second
// unlock of the same achievement conflicts.
func (s *Service) Unlock(ctx context.Context, sub identity.Subject, req UnlockRequest) (UnlockResult, error) {
	doc, err := s.store.Get(ctx, store.CollectionAchievements, req.AchievementID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return UnlockResult{}, dErrors.Wrap(err, dErrors.CodeNotFound, "achievement not found")
		}
		return UnlockResult{}, storeError(err, "load achievement")
	}
	var achievement Achievement
	if err := store.Unmarshal(doc, &achievement); err != nil {
		return UnlockResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "decode achievement document")
	}
	achievement.ID = req.AchievementID

	now := requestcontext.Now(ctx).UTC()
	unlocked := UserAchievement{
		Achievement: achievement,
		UnlockedAt:  now,
		UnlockData:  req.UnlockData,
		UserID:      sub.ID,
	}
	unlockDoc, err := store.Marshal(unlocked)
	if err != nil {
		return UnlockResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "encode unlock document")
	}

	writeCtx := context.WithoutCancel(ctx)
	err = s.store.Transact(writeCtx, func(ctx context.Context, tx store.Tx) error {
		id := userItemID(sub.ID, achievement.ID)
		if err := tx.InsertIfAbsent(ctx, store.CollectionUserAchievements, id, unlockDoc); err != nil {
			return err
		}
		if err := ensureUser(ctx, tx, sub, now); err != nil {
			return err
		}
		if _, err := tx.Increment(ctx, store.CollectionUsers, sub.ID, "experience", achievement.ExperienceReward); err != nil {
			return err
		}
		_, err := tx.Increment(ctx, store.CollectionUsers, sub.ID, "totalAchievements", 1)
		return err
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			s.recorder.Record(ctx, audit.Event{
				ActorID:  sub.ID,
				Action:   audit.ActionAchievementUnlocked,
				Resource: "achievements/" + achievement.ID,
				Outcome:  audit.OutcomeConflict,
			})
			return UnlockResult{}, dErrors.Wrap(err, dErrors.CodeConflict, "achievement already unlocked")
		}
		return UnlockResult{}, storeError(err, "unlock achievement")
	}

	s.metrics.GamificationEvents.WithLabelValues("achievement_unlocked").Inc()
	s.recorder.Record(ctx, audit.Event{
		ActorID:  sub.ID,
		Action:   audit.ActionAchievementUnlocked,
		Resource: "achievements/" + achievement.ID,
		Outcome:  audit.OutcomeSuccess,
		Details:  map[string]any{"experienceGained": achievement.ExperienceReward},
	})
	return UnlockResult{Achievement: unlocked, ExperienceGained: achievement.ExperienceReward}, nil
}

// ListRewards returns the reward catalog.
func (s *Service) ListRewards(ctx context.Context) ([]Reward, error) {
	records, err := s.store.Query(ctx, store.CollectionRewards, store.Query{OrderBy: "pointCost"})
	if err != nil {
		return nil, storeError(err, "list rewards")
	}
	out := make([]Reward, 0, len(records))
	for _, rec := range records {
		var r Reward
		if err := store.Unmarshal(rec.Doc, &r); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decode reward document")
		}
		r.ID = rec.ID
		out = append(out, r)
	}
	return out, nil
}

// UserRewards returns the subject's purchased rewards.
func (s *Service) UserRewards(ctx context.Context, sub identity.Subject) ([]UserReward, error) {
	records, err := s.store.Query(ctx, store.CollectionUserRewards, store.Query{
		Filters: []store.Filter{store.Eq("userId", sub.ID)},
		OrderBy: "purchasedAt",
		Desc:    true,
	})
	if err != nil {
		return nil, storeError(err, "list user rewards")
	}
	out := make([]UserReward, 0, len(records))
	for _, rec := range records {
		var ur UserReward
		if err := store.Unmarshal(rec.Doc, &ur); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decode user reward document")
		}
		out = append(out, ur)
	}
	return out, nil
}

// Purchase spends the subject's points on a reward. The balance check and the
// deduction happen in the same transaction, so two concurrent purchases
// cannot both pass on the same points.
func (s *Service) Purchase(ctx context.Context, sub identity.Subject, req PurchaseRequest) (PurchaseResult, error) {
	doc, err := s.store.Get(ctx, store.CollectionRewards, req.RewardID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return PurchaseResult{}, dErrors.Wrap(err, dErrors.CodeNotFound, "reward not found")
		}
		return PurchaseResult{}, storeError(err, "load reward")
	}
	var reward Reward
	if err := store.Unmarshal(doc, &reward); err != nil {
		return PurchaseResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "decode reward document")
	}
	reward.ID = req.RewardID

	now := requestcontext.Now(ctx).UTC()
	purchased := UserReward{
		Reward:       reward,
		PurchasedAt:  now,
		PurchaseData: req.PurchaseData,
		UserID:       sub.ID,
	}
	purchaseDoc, err := store.Marshal(purchased)
	if err != nil {
		return PurchaseResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "encode purchase document")
	}

	var remaining int64
	insufficient := false
	writeCtx := context.WithoutCancel(ctx)
	err = s.store.Transact(writeCtx, func(ctx context.Context, tx store.Tx) error {
		userDoc, err := tx.Get(ctx, store.CollectionUsers, sub.ID)
		if errors.Is(err, sentinel.ErrNotFound) {
			userDoc = store.Document{}
		} else if err != nil {
			return err
		}
		points := numField(userDoc, "points")
		if points < reward.PointCost {
			insufficient = true
			return sentinel.ErrInvalidState
		}

		id := userItemID(sub.ID, reward.ID)
		if err := tx.InsertIfAbsent(ctx, store.CollectionUserRewards, id, purchaseDoc); err != nil {
			return err
		}
		if err := ensureUser(ctx, tx, sub, now); err != nil {
			return err
		}
		remaining, err = tx.Increment(ctx, store.CollectionUsers, sub.ID, "points", -reward.PointCost)
		if err != nil {
			return err
		}
		_, err = tx.Increment(ctx, store.CollectionUsers, sub.ID, "totalRewards", 1)
		return err
	})
	switch {
	case insufficient:
		s.recorder.Record(ctx, audit.Event{
			ActorID:  sub.ID,
			Action:   audit.ActionRewardPurchased,
			Resource: "rewards/" + reward.ID,
			Outcome:  audit.OutcomeDenied,
		})
		return PurchaseResult{}, dErrors.New(dErrors.CodeConflict, "insufficient points")
	case errors.Is(err, sentinel.ErrConflict):
		return PurchaseResult{}, dErrors.Wrap(err, dErrors.CodeConflict, "reward already purchased")
	case err != nil:
		return PurchaseResult{}, storeError(err, "purchase reward")
	}

	s.metrics.GamificationEvents.WithLabelValues("reward_purchased").Inc()
	s.recorder.Record(ctx, audit.Event{
		ActorID:  sub.ID,
		Action:   audit.ActionRewardPurchased,
		Resource: "rewards/" + reward.ID,
		Outcome:  audit.OutcomeSuccess,
		Details:  map[string]any{"pointsSpent": reward.PointCost},
	})
	return PurchaseResult{Reward: purchased, PointsSpent: reward.PointCost, RemainingPoints: remaining}, nil
}

// ListChallenges returns the challenge catalog, optionally narrowed by type
// and category. Expired challenges still list; only completion rejects them.
func (s *Service) ListChallenges(ctx context.Context, typ, category string) ([]Challenge, error) {
	q := store.Query{OrderBy: "experienceReward", Desc: true}
	if typ != "" {
		q.Filters = append(q.Filters, store.Eq("type", typ))
	}
	if category != "" {
		q.Filters = append(q.Filters, store.Eq("category", category))
	}
	records, err := s.store.Query(ctx, store.CollectionChallenges, q)
	if err != nil {
		return nil, storeError(err, "list challenges")
	}
	out := make([]Challenge, 0, len(records))
	for _, rec := range records {
		var c Challenge
		if err := store.Unmarshal(rec.Doc, &c); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decode challenge document")
		}
		c.ID = rec.ID
		out = append(out, c)
	}
	return out, nil
}

// Complete marks a challenge done for the subject and credits its rewards.
func (s *Service) Complete(ctx context.Context, sub identity.Subject, req CompleteRequest) (CompleteResult, error) {
	doc, err := s.store.Get(ctx, store.CollectionChallenges, req.ChallengeID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return CompleteResult{}, dErrors.Wrap(err, dErrors.CodeNotFound, "challenge not found")
		}
		return CompleteResult{}, storeError(err, "load challenge")
	}
	var challenge Challenge
	if err := store.Unmarshal(doc, &challenge); err != nil {
		return CompleteResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "decode challenge document")
	}
	challenge.ID = req.ChallengeID

	now := requestcontext.Now(ctx).UTC()
	if challenge.ExpiresAt != nil && challenge.ExpiresAt.Before(now) {
		return CompleteResult{}, dErrors.New(dErrors.CodeConflict, "challenge has expired")
	}

	completed := UserChallenge{
		Challenge:      challenge,
		CompletedAt:    now,
		CompletionData: req.CompletionData,
		UserID:         sub.ID,
	}
	completionDoc, err := store.Marshal(completed)
	if err != nil {
		return CompleteResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "encode completion document")
	}

	writeCtx := context.WithoutCancel(ctx)
	err = s.store.Transact(writeCtx, func(ctx context.Context, tx store.Tx) error {
		id := userItemID(sub.ID, challenge.ID)
		if err := tx.InsertIfAbsent(ctx, store.CollectionUserChallenges, id, completionDoc); err != nil {
			return err
		}
		if err := ensureUser(ctx, tx, sub, now); err != nil {
			return err
		}
		if _, err := tx.Increment(ctx, store.CollectionUsers, sub.ID, "experience", challenge.ExperienceReward); err != nil {
			return err
		}
		if _, err := tx.Increment(ctx, store.CollectionUsers, sub.ID, "points", challenge.PointReward); err != nil {
			return err
		}
		_, err := tx.Increment(ctx, store.CollectionUsers, sub.ID, "totalChallenges", 1)
		return err
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			s.recorder.Record(ctx, audit.Event{
				ActorID:  sub.ID,
				Action:   audit.ActionChallengeCompleted,
				Resource: "challenges/" + challenge.ID,
				Outcome:  audit.OutcomeConflict,
			})
			return CompleteResult{}, dErrors.Wrap(err, dErrors.CodeConflict, "challenge already completed")
		}
		return CompleteResult{}, storeError(err, "complete challenge")
	}

	s.metrics.GamificationEvents.WithLabelValues("challenge_completed").Inc()
	s.recorder.Record(ctx, audit.Event{
		ActorID:  sub.ID,
		Action:   audit.ActionChallengeCompleted,
		Resource: "challenges/" + challenge.ID,
		Outcome:  audit.OutcomeSuccess,
		Details: map[string]any{
			"experienceGained": challenge.ExperienceReward,
			"pointsGained":     challenge.PointReward,
		},
	})
	return CompleteResult{
		Challenge:        completed,
		ExperienceGained: challenge.ExperienceReward,
		PointsGained:     challenge.PointReward,
	}, nil
}

// Leaderboard ranks users by the requested category: "experience",
// "achievements", "streak", or overall (level, then experience).
func (s *Service) Leaderboard(ctx context.Context, category string, limit int) ([]LeaderboardRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	orderBy := "level"
	switch category {
	case "experience":
		orderBy = "experience"
	case "achievements":
		orderBy = "totalAchievements"
	case "streak":
		orderBy = "currentStreak"
	}

	records, err := s.store.Query(ctx, store.CollectionUsers, store.Query{
		OrderBy: orderBy,
		Desc:    true,
		Limit:   limit,
	})
	if err != nil {
		return nil, storeError(err, "load leaderboard")
	}

	rows := make([]LeaderboardRow, 0, len(records))
	for i, rec := range records {
		level := numField(rec.Doc, "level")
		if level == 0 {
			level = 1
		}
		first, _ := rec.Doc["firstName"].(string)
		last, _ := rec.Doc["lastName"].(string)
		username := first
		if last != "" {
			username = first + " " + last
		}
		rows = append(rows, LeaderboardRow{
			Rank:              i + 1,
			UserID:            rec.ID,
			Username:          username,
			Level:             level,
			Experience:        numField(rec.Doc, "experience"),
			TotalAchievements: numField(rec.Doc, "totalAchievements"),
			CurrentStreak:     numField(rec.Doc, "currentStreak"),
		})
	}
	return rows, nil
}

// Progress summarizes the subject's level standing. The next-level threshold
// grows linearly: 100 at level 1, plus 50 per level after that.
func (s *Service) Progress(ctx context.Context, sub identity.Subject) (Progress, error) {
	doc, err := s.store.Get(ctx, store.CollectionUsers, sub.ID)
	if errors.Is(err, sentinel.ErrNotFound) {
		doc = store.Document{}
	} else if err != nil {
		return Progress{}, storeError(err, "load user")
	}

	level := numField(doc, "level")
	if level == 0 {
		level = 1
	}
	experience := numField(doc, "experience")
	toNext := int64(100 + (level-1)*50)

	return Progress{
		Level:                 level,
		Experience:            experience,
		ExperienceToNextLevel: toNext,
		LevelProgress:         float64(experience) / float64(toNext),
		LevelTitle:            levelTitle(level),
		TotalPoints:           numField(doc, "points"),
		AchievementsUnlocked:  numField(doc, "totalAchievements"),
		CurrentStreak:         numField(doc, "currentStreak"),
		LongestStreak:         numField(doc, "longestStreak"),
	}, nil
}

// AddExperience credits experience to the subject and appends to the
// experience log. Negative or zero grants are rejected by validation.
func (s *Service) AddExperience(ctx context.Context, sub identity.Subject, req AddExperienceRequest) (ExperienceGrant, error) {
	now := requestcontext.Now(ctx).UTC()
	grant := ExperienceGrant{
		UserID:    sub.ID,
		Points:    req.Points,
		Reason:    req.Reason,
		Category:  req.Category,
		Timestamp: now,
	}
	if grant.Reason == "" {
		grant.Reason = "Activity"
	}
	if grant.Category == "" {
		grant.Category = "general"
	}

	writeCtx := context.WithoutCancel(ctx)
	err := s.store.Transact(writeCtx, func(ctx context.Context, tx store.Tx) error {
		if err := ensureUser(ctx, tx, sub, now); err != nil {
			return err
		}
		_, err := tx.Increment(ctx, store.CollectionUsers, sub.ID, "experience", req.Points)
		return err
	})
	if err != nil {
		return ExperienceGrant{}, storeError(err, "add experience")
	}

	if err := s.store.Update(writeCtx, store.CollectionUsers, sub.ID, store.Document{
		"lastActivity": now.Format(time.RFC3339),
	}); err != nil {
		return ExperienceGrant{}, storeError(err, "touch last activity")
	}

	grantDoc, err := store.Marshal(grant)
	if err != nil {
		return ExperienceGrant{}, dErrors.Wrap(err, dErrors.CodeInternal, "encode experience grant")
	}
	if _, err := s.store.Insert(writeCtx, store.CollectionExperienceLog, grantDoc); err != nil {
		return ExperienceGrant{}, storeError(err, "append experience log")
	}

	s.recorder.Record(ctx, audit.Event{
		ActorID:  sub.ID,
		Action:   audit.ActionExperienceGranted,
		Resource: "users/" + sub.ID,
		Outcome:  audit.OutcomeSuccess,
		Details:  map[string]any{"points": req.Points, "reason": grant.Reason},
	})
	return grant, nil
}

// ensureUser creates a baseline user document when the subject has never
// touched their profile, so the counter increments have a row to land on.
// Losing the insert race just means the profile already exists.
func ensureUser(ctx context.Context, tx store.Tx, sub identity.Subject, now time.Time) error {
	base := store.Document{
		"id":            sub.ID,
		"email":         sub.Email,
		"emailVerified": sub.EmailVerified,
		"createdAt":     now.Format(time.RFC3339),
		"updatedAt":     now.Format(time.RFC3339),
	}
	err := tx.InsertIfAbsent(ctx, store.CollectionUsers, sub.ID, base)
	if err != nil && !errors.Is(err, sentinel.ErrConflict) {
		return err
	}
	return nil
}

func numField(doc store.Document, field string) int64 {
	switch v := doc[field].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}

func levelTitle(level int64) string {
	switch {
	case level >= 50:
		return "Legendary Pet Guardian"
	case level >= 40:
		return "Master Pet Caretaker"
	case level >= 30:
		return "Expert Pet Parent"
	case level >= 20:
		return "Advanced Pet Owner"
	case level >= 10:
		return "Experienced Pet Lover"
	case level >= 5:
		return "Dedicated Pet Parent"
	case level >= 2:
		return "Pet Enthusiast"
	default:
		return "New Pet Parent"
	}
}

func storeError(err error, msg string) error {
	if errors.Is(err, sentinel.ErrUnavailable) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "store unavailable")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
