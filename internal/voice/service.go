// Package voice turns app events into spoken guidance: command
// classification, feedback lines, onboarding steps, achievement celebrations
// and health reminders, each delivered as base64 MP3 audio from the
// synthesis upstream.
package voice

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"serenyx/internal/soundscapes/tts"
	dErrors "serenyx/pkg/domain-errors"
	"serenyx/pkg/requestcontext"
)

// GuidanceVoiceID is the warm narrator used for every guidance line.
const GuidanceVoiceID = "pNInz6obpgDQGcFmaJgB"

// Synthesizer is the narrow slice of the text-to-speech client this package
// needs.
type Synthesizer interface {
	Configured() bool
	Synthesize(ctx context.Context, text, voiceID, modelID string) ([]byte, error)
}

type Service struct {
	synth  Synthesizer
	logger *slog.Logger
}

func NewService(synth Synthesizer, logger *slog.Logger) *Service {
	return &Service{synth: synth, logger: logger}
}

// commandRules map keywords to a classified response, first match wins.
var commandRules = []struct {
	keywords []string
	response CommandResponse
}{
	{[]string{"hello", "hi"}, CommandResponse{
		Type:    "greeting",
		Message: "Hello! How can I help you and your pet today?",
		Action:  "greet",
	}},
	{[]string{"feed", "food"}, CommandResponse{
		Type:    "feeding",
		Message: "Time to feed your pet! Make sure they have fresh water too.",
		Action:  "feeding_reminder",
	}},
	{[]string{"walk", "exercise"}, CommandResponse{
		Type:    "exercise",
		Message: "Great idea! Exercise is important for your pet's health and happiness.",
		Action:  "exercise_reminder",
	}},
	{[]string{"health", "vet"}, CommandResponse{
		Type:    "health",
		Message: "Your pet's health is our priority. Would you like to schedule a check-up?",
		Action:  "health_check",
	}},
}

var generalResponse = CommandResponse{
	Type:    "general",
	Message: "I heard you say something about your pet. How can I help?",
	Action:  "general_help",
}

// Command classifies a spoken command. Pure keyword matching, no upstream
// call.
func (s *Service) Command(_ context.Context, req CommandRequest) CommandResponse {
	lower := strings.ToLower(req.Command)
	for _, rule := range commandRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.response
			}
		}
	}
	return generalResponse
}

var feedbackPrefixes = map[string]string{
	"success":     "Great! ",
	"error":       "Oops! ",
	"warning":     "Heads up! ",
	"info":        "Did you know? ",
	"celebration": "🎉 ",
}

// Feedback speaks a prefixed feedback line for the given scenario.
func (s *Service) Feedback(ctx context.Context, req FeedbackRequest) (FeedbackResult, error) {
	message := feedbackPrefixes[req.Type] + req.Message
	audio, err := s.speak(ctx, message)
	if err != nil {
		return FeedbackResult{}, err
	}

	duration := req.Duration
	if duration == 0 {
		duration = 3000
	}
	return FeedbackResult{
		Type:     req.Type,
		Message:  message,
		Audio:    audio,
		Duration: duration,
		Format:   "mp3",
	}, nil
}

// Onboarding speaks the guidance line for one onboarding step. Unknown steps
// fall back to the welcome line.
func (s *Service) Onboarding(ctx context.Context, req OnboardingRequest) (GuidanceResult, error) {
	petName := req.PetName
	if petName == "" {
		petName = "your pet"
	}

	var message string
	switch req.Step {
	case "petType":
		message = "What type of pet do you have? I'll customize everything just for them."
	case "petName":
		message = "What's your pet's name? I love getting to know each furry friend personally."
	case "personality":
		message = fmt.Sprintf("Let's discover what makes %s special. I'll ask a few questions to understand their unique personality.", petName)
	case "goals":
		message = fmt.Sprintf("What are your main goals for %s? Whether it's health, training, or just more quality time, I'm here to help.", petName)
	case "complete":
		message = fmt.Sprintf("Perfect! %s is now part of the Serenyx family. I'm excited to help you both on this wellness journey!", petName)
	default:
		message = "Welcome to Serenyx! I'm here to help you give your pet the best care possible. Let's start this amazing journey together."
	}

	audio, err := s.speak(ctx, message)
	if err != nil {
		return GuidanceResult{}, err
	}
	return GuidanceResult{Message: message, Audio: audio, Format: "mp3"}, nil
}

// Achievement speaks a celebration line scaled to the achievement's rarity.
func (s *Service) Achievement(ctx context.Context, req AchievementRequest) (GuidanceResult, error) {
	var message string
	switch req.Rarity {
	case "uncommon":
		message = fmt.Sprintf("Excellent work! The %s achievement is yours. %s is really thriving!", req.AchievementTitle, req.PetName)
	case "rare":
		message = fmt.Sprintf("Incredible! You've earned the rare %s achievement. %s is absolutely outstanding!", req.AchievementTitle, req.PetName)
	case "epic":
		message = fmt.Sprintf("Fantastic! The epic %s achievement is now yours. %s is truly exceptional!", req.AchievementTitle, req.PetName)
	case "legendary":
		message = fmt.Sprintf("Legendary! You've achieved the legendary %s. %s is absolutely legendary!", req.AchievementTitle, req.PetName)
	default:
		message = fmt.Sprintf("Great job! You've unlocked the %s achievement. %s is doing amazing!", req.AchievementTitle, req.PetName)
	}

	audio, err := s.speak(ctx, message)
	if err != nil {
		return GuidanceResult{}, err
	}
	return GuidanceResult{Message: message, Audio: audio, Format: "mp3"}, nil
}

// HealthReminder speaks the reminder for a pet care task. Unknown tasks get
// a generic line naming the task.
func (s *Service) HealthReminder(ctx context.Context, req HealthReminderRequest) (GuidanceResult, error) {
	var message string
	switch req.Task {
	case "feeding":
		message = fmt.Sprintf("Time to feed %s! They're probably getting hungry.", req.PetName)
	case "medication":
		message = fmt.Sprintf("Don't forget %s's medication. Their health comes first!", req.PetName)
	case "exercise":
		message = fmt.Sprintf("It's exercise time for %s! Let's get them moving and happy.", req.PetName)
	case "grooming":
		message = fmt.Sprintf("Time for %s's grooming session. They'll feel so much better!", req.PetName)
	case "vet":
		message = fmt.Sprintf("Don't forget %s's vet appointment. Keeping them healthy is our priority!", req.PetName)
	default:
		message = fmt.Sprintf("Time for %s's %s!", req.PetName, req.Task)
	}

	audio, err := s.speak(ctx, message)
	if err != nil {
		return GuidanceResult{}, err
	}
	return GuidanceResult{Message: message, Audio: audio, Format: "mp3"}, nil
}

func (s *Service) speak(ctx context.Context, message string) (string, error) {
	if !s.synth.Configured() {
		return "", dErrors.New(dErrors.CodeUnavailable, "voice synthesis is not configured")
	}
	raw, err := s.synth.Synthesize(ctx, message, GuidanceVoiceID, tts.DefaultModelID)
	if err != nil {
		s.logger.ErrorContext(ctx, "guidance synthesis failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
