package gamification

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serenyx/internal/identity"
	"serenyx/internal/platform/metrics"
	"serenyx/internal/store"
	dErrors "serenyx/pkg/domain-errors"
	"serenyx/pkg/platform/audit"
)

var testMetrics = metrics.New()

func newTestService(t *testing.T) (*Service, *store.InMemory) {
	t.Helper()
	st := store.NewInMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(st, audit.NewRecorder(64), testMetrics, logger)
	require.NoError(t, svc.SeedDefaults(context.Background()))
	return svc, st
}

func TestSeedDefaults(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	achievements, err := svc.ListAchievements(ctx)
	require.NoError(t, err)
	assert.Len(t, achievements, len(defaultAchievements))

	t.Run("reseeding leaves existing documents untouched", func(t *testing.T) {
		require.NoError(t, svc.SeedDefaults(ctx))
		again, err := svc.ListAchievements(ctx)
		require.NoError(t, err)
		assert.Len(t, again, len(defaultAchievements))
	})
}

func TestUnlock(t *testing.T) {
	ctx := context.Background()
	sub := identity.Subject{ID: "u1", Email: "u1@example.com"}

	t.Run("unlock credits experience and the achievement counter", func(t *testing.T) {
		svc, _ := newTestService(t)

		result, err := svc.Unlock(ctx, sub, UnlockRequest{AchievementID: "first-pet"})
		require.NoError(t, err)
		assert.Equal(t, "first-pet", result.Achievement.ID)
		assert.Equal(t, int64(50), result.ExperienceGained)

		progress, err := svc.Progress(ctx, sub)
		require.NoError(t, err)
		assert.Equal(t, int64(50), progress.Experience)
		assert.Equal(t, int64(1), progress.AchievementsUnlocked)
	})

	t.Run("second unlock of the same achievement conflicts", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.Unlock(ctx, sub, UnlockRequest{AchievementID: "first-pet"})
		require.NoError(t, err)
		_, err = svc.Unlock(ctx, sub, UnlockRequest{AchievementID: "first-pet"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("unknown achievement is not found", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.Unlock(ctx, sub, UnlockRequest{AchievementID: "no-such"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("concurrent unlocks yield exactly one success", func(t *testing.T) {
		svc, _ := newTestService(t)

		const racers = 8
		var wg sync.WaitGroup
		var mu sync.Mutex
		wins := 0
		for range racers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := svc.Unlock(ctx, sub, UnlockRequest{AchievementID: "week-streak"}); err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, wins)

		progress, err := svc.Progress(ctx, sub)
		require.NoError(t, err)
		assert.Equal(t, int64(500), progress.Experience)
	})

	t.Run("unlocked achievements list for their owner only", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.Unlock(ctx, sub, UnlockRequest{AchievementID: "first-pet"})
		require.NoError(t, err)

		mine, err := svc.UserAchievements(ctx, sub)
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, "u1", mine[0].UserID)

		other, err := svc.UserAchievements(ctx, identity.Subject{ID: "u2"})
		require.NoError(t, err)
		assert.Empty(t, other)
	})
}

func TestPurchase(t *testing.T) {
	ctx := context.Background()
	sub := identity.Subject{ID: "u1", Email: "u1@example.com"}

	grantPoints := func(t *testing.T, svc *Service, points int64) {
		t.Helper()
		require.NoError(t, svc.store.InsertIfAbsent(ctx, store.CollectionUsers, sub.ID, store.Document{
			"id": sub.ID, "points": points,
		}))
	}

	t.Run("purchase deducts points", func(t *testing.T) {
		svc, _ := newTestService(t)
		grantPoints(t, svc, 300)

		result, err := svc.Purchase(ctx, sub, PurchaseRequest{RewardID: "badge-gold-paw"})
		require.NoError(t, err)
		assert.Equal(t, int64(100), result.PointsSpent)
		assert.Equal(t, int64(200), result.RemainingPoints)
	})

	t.Run("insufficient points is rejected without deduction", func(t *testing.T) {
		svc, _ := newTestService(t)
		grantPoints(t, svc, 50)

		_, err := svc.Purchase(ctx, sub, PurchaseRequest{RewardID: "badge-gold-paw"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

		progress, err := svc.Progress(ctx, sub)
		require.NoError(t, err)
		assert.Equal(t, int64(50), progress.TotalPoints)

		rewards, err := svc.UserRewards(ctx, sub)
		require.NoError(t, err)
		assert.Empty(t, rewards)
	})

	t.Run("a reward cannot be purchased twice", func(t *testing.T) {
		svc, _ := newTestService(t)
		grantPoints(t, svc, 500)

		_, err := svc.Purchase(ctx, sub, PurchaseRequest{RewardID: "badge-gold-paw"})
		require.NoError(t, err)
		_, err = svc.Purchase(ctx, sub, PurchaseRequest{RewardID: "badge-gold-paw"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("concurrent purchases cannot overspend", func(t *testing.T) {
		svc, _ := newTestService(t)
		// Enough for one theme, not two.
		grantPoints(t, svc, 300)

		var wg sync.WaitGroup
		var mu sync.Mutex
		wins := 0
		for _, rewardID := range []string{"theme-sunset", "theme-sunset", "voice-pack"} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := svc.Purchase(ctx, sub, PurchaseRequest{RewardID: rewardID}); err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, wins)

		progress, err := svc.Progress(ctx, sub)
		require.NoError(t, err)
		assert.Equal(t, int64(50), progress.TotalPoints)
	})
}

func TestComplete(t *testing.T) {
	ctx := context.Background()
	sub := identity.Subject{ID: "u1", Email: "u1@example.com"}

	t.Run("completion credits experience and points", func(t *testing.T) {
		svc, _ := newTestService(t)

		result, err := svc.Complete(ctx, sub, CompleteRequest{ChallengeID: "weekly-walks"})
		require.NoError(t, err)
		assert.Equal(t, int64(100), result.ExperienceGained)
		assert.Equal(t, int64(50), result.PointsGained)

		progress, err := svc.Progress(ctx, sub)
		require.NoError(t, err)
		assert.Equal(t, int64(100), progress.Experience)
		assert.Equal(t, int64(50), progress.TotalPoints)
	})

	t.Run("a challenge completes once per user", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.Complete(ctx, sub, CompleteRequest{ChallengeID: "daily-checkin"})
		require.NoError(t, err)
		_, err = svc.Complete(ctx, sub, CompleteRequest{ChallengeID: "daily-checkin"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("an expired challenge cannot be completed", func(t *testing.T) {
		svc, st := newTestService(t)
		expired := time.Now().UTC().Add(-time.Hour)
		doc, err := store.Marshal(Challenge{
			Title: "Yesterday Only", Type: "daily", Category: "engagement",
			ExperienceReward: 10, ExpiresAt: &expired,
		})
		require.NoError(t, err)
		require.NoError(t, st.InsertIfAbsent(ctx, store.CollectionChallenges, "stale", doc))

		_, err = svc.Complete(ctx, sub, CompleteRequest{ChallengeID: "stale"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("challenge filters narrow by type and category", func(t *testing.T) {
		svc, _ := newTestService(t)

		daily, err := svc.ListChallenges(ctx, "daily", "")
		require.NoError(t, err)
		require.NotEmpty(t, daily)
		for _, c := range daily {
			assert.Equal(t, "daily", c.Type)
		}

		wellness, err := svc.ListChallenges(ctx, "daily", "wellness")
		require.NoError(t, err)
		require.Len(t, wellness, 1)
		assert.Equal(t, "soundscape-session", wellness[0].ID)
	})
}

func TestProgressAndExperience(t *testing.T) {
	ctx := context.Background()
	sub := identity.Subject{ID: "u1", Email: "u1@example.com"}

	t.Run("a brand new user starts at level one", func(t *testing.T) {
		svc, _ := newTestService(t)

		progress, err := svc.Progress(ctx, sub)
		require.NoError(t, err)
		assert.Equal(t, int64(1), progress.Level)
		assert.Equal(t, int64(100), progress.ExperienceToNextLevel)
		assert.Equal(t, "New Pet Parent", progress.LevelTitle)
	})

	t.Run("the next-level threshold grows with level", func(t *testing.T) {
		svc, st := newTestService(t)
		require.NoError(t, st.InsertIfAbsent(ctx, store.CollectionUsers, sub.ID, store.Document{
			"id": sub.ID, "level": int64(10), "experience": int64(275),
		}))

		progress, err := svc.Progress(ctx, sub)
		require.NoError(t, err)
		assert.Equal(t, int64(550), progress.ExperienceToNextLevel)
		assert.Equal(t, "Experienced Pet Lover", progress.LevelTitle)
		assert.InDelta(t, 0.5, progress.LevelProgress, 0.001)
	})

	t.Run("experience grants accumulate and log", func(t *testing.T) {
		svc, st := newTestService(t)

		grant, err := svc.AddExperience(ctx, sub, AddExperienceRequest{Points: 25, Reason: "Morning walk", Category: "exercise"})
		require.NoError(t, err)
		assert.Equal(t, int64(25), grant.Points)

		_, err = svc.AddExperience(ctx, sub, AddExperienceRequest{Points: 10})
		require.NoError(t, err)

		progress, err := svc.Progress(ctx, sub)
		require.NoError(t, err)
		assert.Equal(t, int64(35), progress.Experience)

		log, err := st.Query(ctx, store.CollectionExperienceLog, store.Query{
			Filters: []store.Filter{store.Eq("userId", sub.ID)},
		})
		require.NoError(t, err)
		assert.Len(t, log, 2)
	})

	t.Run("a grant without a reason defaults it", func(t *testing.T) {
		svc, _ := newTestService(t)

		grant, err := svc.AddExperience(ctx, sub, AddExperienceRequest{Points: 5})
		require.NoError(t, err)
		assert.Equal(t, "Activity", grant.Reason)
		assert.Equal(t, "general", grant.Category)
	})
}

func TestLeaderboard(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)

	seed := func(id string, level, exp, achievements, streak int64, first string) {
		require.NoError(t, st.InsertIfAbsent(ctx, store.CollectionUsers, id, store.Document{
			"id": id, "level": level, "experience": exp,
			"totalAchievements": achievements, "currentStreak": streak,
			"firstName": first,
		}))
	}
	seed("u1", 5, 700, 3, 2, "Ada")
	seed("u2", 9, 400, 10, 9, "Grace")
	seed("u3", 2, 900, 1, 4, "Alan")

	t.Run("experience ranking", func(t *testing.T) {
		rows, err := svc.Leaderboard(ctx, "experience", 10)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, "u3", rows[0].UserID)
		assert.Equal(t, 1, rows[0].Rank)
		assert.Equal(t, "Ada", rows[1].Username)
	})

	t.Run("achievements ranking", func(t *testing.T) {
		rows, err := svc.Leaderboard(ctx, "achievements", 10)
		require.NoError(t, err)
		assert.Equal(t, "u2", rows[0].UserID)
	})

	t.Run("default ranking orders by level", func(t *testing.T) {
		rows, err := svc.Leaderboard(ctx, "", 10)
		require.NoError(t, err)
		assert.Equal(t, "u2", rows[0].UserID)
		assert.Equal(t, "u3", rows[2].UserID)
	})

	t.Run("limit caps the rows", func(t *testing.T) {
		rows, err := svc.Leaderboard(ctx, "experience", 2)
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})
}
