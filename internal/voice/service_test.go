package voice

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serenyx/internal/soundscapes/tts"
	dErrors "serenyx/pkg/domain-errors"
)

type synthStub struct {
	audio      []byte
	err        error
	configured bool

	lastText  string
	lastVoice string
	lastModel string
}

func (s *synthStub) Configured() bool { return s.configured }

func (s *synthStub) Synthesize(_ context.Context, text, voiceID, modelID string) ([]byte, error) {
	s.lastText, s.lastVoice, s.lastModel = text, voiceID, modelID
	if s.err != nil {
		return nil, s.err
	}
	return s.audio, nil
}

func newTestService(synth Synthesizer) *Service {
	return NewService(synth, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCommand(t *testing.T) {
	svc := newTestService(&synthStub{configured: true})
	ctx := context.Background()

	cases := []struct {
		command  string
		wantType string
	}{
		{"Hi there", "greeting"},
		{"when should I FEED him", "feeding"},
		{"let's go for a walk", "exercise"},
		{"book a vet visit", "health"},
		{"play some music", "general"},
	}
	for _, tc := range cases {
		got := svc.Command(ctx, CommandRequest{Command: tc.command})
		assert.Equal(t, tc.wantType, got.Type, "command %q", tc.command)
		assert.NotEmpty(t, got.Message)
		assert.NotEmpty(t, got.Action)
	}
}

func TestFeedback(t *testing.T) {
	ctx := context.Background()

	t.Run("message gets the type prefix and audio", func(t *testing.T) {
		synth := &synthStub{configured: true, audio: []byte("mp3-bytes")}
		svc := newTestService(synth)

		result, err := svc.Feedback(ctx, FeedbackRequest{Type: "success", Message: "Profile saved."})
		require.NoError(t, err)
		assert.Equal(t, "Great! Profile saved.", result.Message)
		assert.Equal(t, "Great! Profile saved.", synth.lastText)
		assert.Equal(t, GuidanceVoiceID, synth.lastVoice)
		assert.Equal(t, tts.DefaultModelID, synth.lastModel)
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("mp3-bytes")), result.Audio)
		assert.Equal(t, "mp3", result.Format)
		assert.Equal(t, 3000, result.Duration)
	})

	t.Run("explicit duration is kept", func(t *testing.T) {
		svc := newTestService(&synthStub{configured: true, audio: []byte("x")})

		result, err := svc.Feedback(ctx, FeedbackRequest{Type: "warning", Message: "Low food.", Duration: 5000})
		require.NoError(t, err)
		assert.Equal(t, "Heads up! Low food.", result.Message)
		assert.Equal(t, 5000, result.Duration)
	})

	t.Run("unconfigured synthesis is unavailable", func(t *testing.T) {
		svc := newTestService(&synthStub{configured: false})

		_, err := svc.Feedback(ctx, FeedbackRequest{Type: "info", Message: "Hi."})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}

func TestOnboarding(t *testing.T) {
	ctx := context.Background()
	synth := &synthStub{configured: true, audio: []byte("x")}
	svc := newTestService(synth)

	t.Run("steps personalize with the pet name", func(t *testing.T) {
		result, err := svc.Onboarding(ctx, OnboardingRequest{Step: "complete", PetName: "Biscuit"})
		require.NoError(t, err)
		assert.Contains(t, result.Message, "Biscuit is now part of the Serenyx family")
	})

	t.Run("unknown step falls back to the welcome line", func(t *testing.T) {
		result, err := svc.Onboarding(ctx, OnboardingRequest{Step: "nonsense"})
		require.NoError(t, err)
		assert.Contains(t, result.Message, "Welcome to Serenyx")
	})

	t.Run("missing pet name gets a generic subject", func(t *testing.T) {
		result, err := svc.Onboarding(ctx, OnboardingRequest{Step: "goals"})
		require.NoError(t, err)
		assert.Contains(t, result.Message, "your main goals for your pet")
	})
}

func TestAchievement(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(&synthStub{configured: true, audio: []byte("x")})

	t.Run("rarity scales the celebration", func(t *testing.T) {
		result, err := svc.Achievement(ctx, AchievementRequest{
			AchievementTitle: "Wellness Master", PetName: "Biscuit", Rarity: "legendary",
		})
		require.NoError(t, err)
		assert.Contains(t, result.Message, "Legendary!")
		assert.Contains(t, result.Message, "Wellness Master")
	})

	t.Run("unknown rarity celebrates as common", func(t *testing.T) {
		result, err := svc.Achievement(ctx, AchievementRequest{
			AchievementTitle: "First Friend", PetName: "Biscuit", Rarity: "mythic",
		})
		require.NoError(t, err)
		assert.Contains(t, result.Message, "Great job!")
	})
}

func TestHealthReminder(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(&synthStub{configured: true, audio: []byte("x")})

	t.Run("known tasks have dedicated lines", func(t *testing.T) {
		result, err := svc.HealthReminder(ctx, HealthReminderRequest{Task: "medication", PetName: "Biscuit"})
		require.NoError(t, err)
		assert.Equal(t, "Don't forget Biscuit's medication. Their health comes first!", result.Message)
	})

	t.Run("unknown tasks get a generic line naming the task", func(t *testing.T) {
		result, err := svc.HealthReminder(ctx, HealthReminderRequest{Task: "nail trim", PetName: "Biscuit"})
		require.NoError(t, err)
		assert.Equal(t, "Time for Biscuit's nail trim!", result.Message)
	})
}

func TestValidation(t *testing.T) {
	t.Run("command length bounds", func(t *testing.T) {
		assert.Error(t, CommandRequest{}.Validate())
		assert.NoError(t, CommandRequest{Command: "hello"}.Validate())
	})

	t.Run("feedback type must be known", func(t *testing.T) {
		err := FeedbackRequest{Type: "loud", Message: "Hi."}.Validate()
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("feedback duration bounds", func(t *testing.T) {
		assert.Error(t, FeedbackRequest{Type: "info", Message: "Hi.", Duration: 500}.Validate())
		assert.NoError(t, FeedbackRequest{Type: "info", Message: "Hi.", Duration: 2000}.Validate())
	})

	t.Run("reminder needs a task and a pet name", func(t *testing.T) {
		err := HealthReminderRequest{}.Validate()
		require.Error(t, err)
		assert.Len(t, dErrors.Load(err), 2)
	})
}
