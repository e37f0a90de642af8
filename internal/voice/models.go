package voice

import (
	dErrors "serenyx/pkg/domain-errors"
)

// CommandRequest is the POST /api/voice/command payload.
type CommandRequest struct {
	Command string `json:"command"`
	Context string `json:"context,omitempty"`
}

func (r CommandRequest) Validate() error {
	if l := len(r.Command); l < 1 || l > 100 {
		verr := dErrors.New(dErrors.CodeValidation, "invalid command payload")
		verr.Add("command", "command must be between 1 and 100 characters")
		return verr
	}
	return nil
}

// CommandResponse classifies a spoken command and suggests the next action.
type CommandResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Action  string `json:"action"`
}

// FeedbackRequest is the POST /api/voice/feedback payload.
type FeedbackRequest struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Duration int    `json:"duration,omitempty"`
}

func (r FeedbackRequest) Validate() error {
	verr := dErrors.New(dErrors.CodeValidation, "invalid feedback payload")
	switch r.Type {
	case "success", "error", "warning", "info", "celebration":
	default:
		verr.Add("type", "type must be one of success, error, warning, info, celebration")
	}
	if l := len(r.Message); l < 1 || l > 200 {
		verr.Add("message", "message must be between 1 and 200 characters")
	}
	if r.Duration != 0 && (r.Duration < 1000 || r.Duration > 10000) {
		verr.Add("duration", "duration must be between 1000 and 10000 milliseconds")
	}
	if len(dErrors.Load(verr)) > 0 {
		return verr
	}
	return nil
}

// FeedbackResult carries the spoken feedback line and its audio.
type FeedbackResult struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Audio    string `json:"audio"`
	Duration int    `json:"duration"`
	Format   string `json:"format"`
}

// OnboardingRequest is the POST /api/voice/onboarding payload.
type OnboardingRequest struct {
	Step    string `json:"step"`
	PetName string `json:"petName,omitempty"`
}

func (r OnboardingRequest) Validate() error {
	if r.Step == "" {
		verr := dErrors.New(dErrors.CodeValidation, "invalid onboarding payload")
		verr.Add("step", "step is required")
		return verr
	}
	return nil
}

// GuidanceResult is spoken guidance for one step, celebration or reminder.
type GuidanceResult struct {
	Message string `json:"message"`
	Audio   string `json:"audio"`
	Format  string `json:"format"`
}

// AchievementRequest is the POST /api/voice/achievement payload.
type AchievementRequest struct {
	AchievementTitle string `json:"achievementTitle"`
	PetName          string `json:"petName"`
	Rarity           string `json:"rarity,omitempty"`
}

func (r AchievementRequest) Validate() error {
	verr := dErrors.New(dErrors.CodeValidation, "invalid achievement payload")
	if r.AchievementTitle == "" {
		verr.Add("achievementTitle", "achievementTitle is required")
	}
	if r.PetName == "" {
		verr.Add("petName", "petName is required")
	}
	if len(dErrors.Load(verr)) > 0 {
		return verr
	}
	return nil
}

// HealthReminderRequest is the POST /api/voice/health-reminder payload.
type HealthReminderRequest struct {
	Task    string `json:"task"`
	PetName string `json:"petName"`
	Time    string `json:"time,omitempty"`
}

func (r HealthReminderRequest) Validate() error {
	verr := dErrors.New(dErrors.CodeValidation, "invalid reminder payload")
	if r.Task == "" {
		verr.Add("task", "task is required")
	}
	if r.PetName == "" {
		verr.Add("petName", "petName is required")
	}
	if len(dErrors.Load(verr)) > 0 {
		return verr
	}
	return nil
}
