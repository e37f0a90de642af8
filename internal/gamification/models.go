package gamification

import (
	"time"

	dErrors "serenyx/pkg/domain-errors"
)

// Achievement is one catalog entry. Rarity feeds the celebration voice lines
// and the client badge styling; it carries no mechanical weight here.
type Achievement struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	Icon             string `json:"icon,omitempty"`
	Rarity           string `json:"rarity"`
	ExperienceReward int64  `json:"experienceReward"`
}

// UserAchievement is an unlocked achievement on one user's record.
type UserAchievement struct {
	Achievement
	UnlockedAt time.Time      `json:"unlockedAt"`
	UnlockData map[string]any `json:"unlockData,omitempty"`
	UserID     string         `json:"userId"`
}

// Challenge is one catalog entry. A challenge past ExpiresAt can still be
// listed but no longer completed.
type Challenge struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Type             string     `json:"type"`
	Category         string     `json:"category"`
	ExperienceReward int64      `json:"experienceReward"`
	PointReward      int64      `json:"pointReward"`
	ExpiresAt        *time.Time `json:"expiresAt,omitempty"`
}

// UserChallenge is a completed challenge on one user's record.
type UserChallenge struct {
	Challenge
	CompletedAt    time.Time      `json:"completedAt"`
	CompletionData map[string]any `json:"completionData,omitempty"`
	UserID         string         `json:"userId"`
}

// Reward is one catalog entry purchasable with points.
type Reward struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	PointCost   int64  `json:"pointCost"`
}

// UserReward is a purchased reward on one user's record.
type UserReward struct {
	Reward
	PurchasedAt  time.Time      `json:"purchasedAt"`
	PurchaseData map[string]any `json:"purchaseData,omitempty"`
	UserID       string         `json:"userId"`
}

// UnlockRequest is the POST /api/gamification/achievements/unlock payload.
// The unlocking user is always the authenticated subject.
type UnlockRequest struct {
	AchievementID string         `json:"achievementId"`
	UnlockData    map[string]any `json:"unlockData,omitempty"`
}

func (r UnlockRequest) Validate() error {
	if r.AchievementID == "" {
		verr := dErrors.New(dErrors.CodeValidation, "invalid unlock payload")
		verr.Add("achievementId", "achievementId is required")
		return verr
	}
	return nil
}

// UnlockResult reports a successful unlock.
type UnlockResult struct {
	Achievement      UserAchievement `json:"achievement"`
	ExperienceGained int64           `json:"experienceGained"`
}

// CompleteRequest is the POST /api/gamification/challenges/complete payload.
type CompleteRequest struct {
	ChallengeID    string         `json:"challengeId"`
	CompletionData map[string]any `json:"completionData,omitempty"`
}

func (r CompleteRequest) Validate() error {
	if r.ChallengeID == "" {
		verr := dErrors.New(dErrors.CodeValidation, "invalid completion payload")
		verr.Add("challengeId", "challengeId is required")
		return verr
	}
	return nil
}

// CompleteResult reports a successful challenge completion.
type CompleteResult struct {
	Challenge        UserChallenge `json:"challenge"`
	ExperienceGained int64         `json:"experienceGained"`
	PointsGained     int64         `json:"pointsGained"`
}

// PurchaseRequest is the POST /api/gamification/rewards/purchase payload.
type PurchaseRequest struct {
	RewardID     string         `json:"rewardId"`
	PurchaseData map[string]any `json:"purchaseData,omitempty"`
}

func (r PurchaseRequest) Validate() error {
	if r.RewardID == "" {
		verr := dErrors.New(dErrors.CodeValidation, "invalid purchase payload")
		verr.Add("rewardId", "rewardId is required")
		return verr
	}
	return nil
}

// PurchaseResult reports a successful purchase.
type PurchaseResult struct {
	Reward          UserReward `json:"reward"`
	PointsSpent     int64      `json:"pointsSpent"`
	RemainingPoints int64      `json:"remainingPoints"`
}

// AddExperienceRequest is the POST /api/gamification/experience payload.
type AddExperienceRequest struct {
	Points   int64  `json:"points"`
	Reason   string `json:"reason,omitempty"`
	Category string `json:"category,omitempty"`
}

func (r AddExperienceRequest) Validate() error {
	if r.Points <= 0 {
		verr := dErrors.New(dErrors.CodeValidation, "invalid experience payload")
		verr.Add("points", "points must be a positive integer")
		return verr
	}
	return nil
}

// ExperienceGrant is one appended experience-log entry.
type ExperienceGrant struct {
	UserID    string    `json:"userId"`
	Points    int64     `json:"points"`
	Reason    string    `json:"reason"`
	Category  string    `json:"category"`
	Timestamp time.Time `json:"timestamp"`
}

// LeaderboardRow is one ranked user.
type LeaderboardRow struct {
	Rank              int    `json:"rank"`
	UserID            string `json:"userId"`
	Username          string `json:"username,omitempty"`
	Level             int64  `json:"level"`
	Experience        int64  `json:"experience"`
	TotalAchievements int64  `json:"totalAchievements"`
	CurrentStreak     int64  `json:"currentStreak"`
}

// Progress summarizes one user's standing.
type Progress struct {
	Level                 int64   `json:"level"`
	Experience            int64   `json:"experience"`
	ExperienceToNextLevel int64   `json:"experienceToNextLevel"`
	LevelProgress         float64 `json:"levelProgress"`
	LevelTitle            string  `json:"levelTitle"`
	TotalPoints           int64   `json:"totalPoints"`
	AchievementsUnlocked  int64   `json:"achievementsUnlocked"`
	CurrentStreak         int64   `json:"currentStreak"`
	LongestStreak         int64   `json:"longestStreak"`
}
