package gamification

import (
	"context"
	"errors"

	"serenyx/internal/store"
	"serenyx/pkg/platform/sentinel"
)

// Default catalog. Seeded once per deployment; existing documents win, so
// operators can re-tune rewards without redeploys overwriting them.
var defaultAchievements = []Achievement{
	{ID: "first-pet", Title: "First Friend", Description: "Register your first pet", Icon: "paw", Rarity: "common", ExperienceReward: 50},
	{ID: "first-soundscape", Title: "Sound Pioneer", Description: "Create your first soundscape", Icon: "music", Rarity: "common", ExperienceReward: 50},
	{ID: "contest-debut", Title: "Contest Debut", Description: "Enter a pet into a contest", Icon: "trophy", Rarity: "uncommon", ExperienceReward: 100},
	{ID: "ten-votes", Title: "Crowd Favorite", Description: "Receive ten contest votes", Icon: "star", Rarity: "rare", ExperienceReward: 250},
	{ID: "week-streak", Title: "Devoted Companion", Description: "Stay active seven days in a row", Icon: "flame", Rarity: "epic", ExperienceReward: 500},
	{ID: "wellness-master", Title: "Wellness Master", Description: "Complete every wellness challenge", Icon: "crown", Rarity: "legendary", ExperienceReward: 1000},
}

var defaultChallenges = []Challenge{
	{ID: "daily-checkin", Title: "Daily Check-in", Description: "Open the app and check on your pet", Type: "daily", Category: "engagement", ExperienceReward: 10, PointReward: 5},
	{ID: "soundscape-session", Title: "Calm Evening", Description: "Play a soundscape for your pet", Type: "daily", Category: "wellness", ExperienceReward: 20, PointReward: 10},
	{ID: "weekly-walks", Title: "Weekly Walker", Description: "Log five walks this week", Type: "weekly", Category: "exercise", ExperienceReward: 100, PointReward: 50},
	{ID: "vote-support", Title: "Community Supporter", Description: "Vote in a contest category", Type: "weekly", Category: "community", ExperienceReward: 30, PointReward: 15},
}

var defaultRewards = []Reward{
	{ID: "badge-gold-paw", Title: "Gold Paw Badge", Description: "A golden paw for your profile", PointCost: 100},
	{ID: "theme-sunset", Title: "Sunset Theme", Description: "A warm theme for the app", PointCost: 250},
	{ID: "voice-pack", Title: "Extra Voice Pack", Description: "More voices for soundscape narration", PointCost: 500},
}

// SeedDefaults installs the default catalogs. Idempotent: documents that
// already exist are left untouched.
func (s *Service) SeedDefaults(ctx context.Context) error {
	seed := func(collection, id string, v any) error {
		doc, err := store.Marshal(v)
		if err != nil {
			return err
		}
		err = s.store.InsertIfAbsent(ctx, collection, id, doc)
		if err != nil && !errors.Is(err, sentinel.ErrConflict) {
			return err
		}
		return nil
	}

	for _, a := range defaultAchievements {
		if err := seed(store.CollectionAchievements, a.ID, a); err != nil {
			return err
		}
	}
	for _, c := range defaultChallenges {
		if err := seed(store.CollectionChallenges, c.ID, c); err != nil {
			return err
		}
	}
	for _, r := range defaultRewards {
		if err := seed(store.CollectionRewards, r.ID, r); err != nil {
			return err
		}
	}
	return nil
}
