package soundscapes

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serenyx/internal/identity"
	"serenyx/internal/platform/metrics"
	"serenyx/internal/soundscapes/tts"
	"serenyx/internal/store"
	dErrors "serenyx/pkg/domain-errors"
	"serenyx/pkg/platform/audit"
)

var testMetrics = metrics.New()

type synthStub struct {
	audio  []byte
	voices []tts.Voice
	err    error
	calls  int
}

func (s *synthStub) Configured() bool { return true }

func (s *synthStub) Synthesize(_ context.Context, _, _, _ string) ([]byte, error) {
	s.calls++
	return s.audio, s.err
}

func (s *synthStub) Voices(context.Context) ([]tts.Voice, error) {
	return s.voices, s.err
}

type memBlobStore struct {
	blobs   map[string][]byte
	saveErr error
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{blobs: make(map[string][]byte)}
}

func (m *memBlobStore) Save(_ context.Context, name string, data []byte) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	m.blobs[name] = data
	return "/audio/" + name, nil
}

func (m *memBlobStore) Delete(_ context.Context, name string) error {
	delete(m.blobs, name)
	return nil
}

func newTestService(synth Synthesizer, blobs BlobStore) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store.NewInMemory(), blobs, synth, audit.NewRecorder(16), testMetrics, logger)
}

func TestCreateAndGet(t *testing.T) {
	svc := newTestService(&synthStub{}, newMemBlobStore())
	ctx := context.Background()
	owner := identity.Subject{ID: "u1"}

	created, err := svc.Create(ctx, owner, CreateSoundscapeRequest{
		Name: "Evening Calm", Category: CategoryRelaxation, Duration: 300,
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "u1", created.OwnerID)

	got, err := svc.Get(ctx, owner, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Evening Calm", got.Name)
	assert.Equal(t, CategoryRelaxation, got.Category)
}

func TestGetMasksForeignSoundscapes(t *testing.T) {
	svc := newTestService(&synthStub{}, newMemBlobStore())
	ctx := context.Background()

	created, err := svc.Create(ctx, identity.Subject{ID: "u1"}, CreateSoundscapeRequest{
		Name: "Evening Calm", Category: CategoryRelaxation, Duration: 300,
	})
	require.NoError(t, err)

	_, err = svc.Get(ctx, identity.Subject{ID: "u2"}, created.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound),
		"a foreign soundscape must read exactly like a missing one")
}

func TestPublicListing(t *testing.T) {
	svc := newTestService(&synthStub{}, newMemBlobStore())
	ctx := context.Background()

	_, err := svc.Create(ctx, identity.Subject{ID: "u1"}, CreateSoundscapeRequest{
		Name: "Shared Sleep", Category: CategorySleep, Duration: 600, IsPublic: true,
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, identity.Subject{ID: "u1"}, CreateSoundscapeRequest{
		Name: "Private Sleep", Category: CategorySleep, Duration: 600,
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, identity.Subject{ID: "u2"}, CreateSoundscapeRequest{
		Name: "Shared Play", Category: CategoryPlaytime, Duration: 120, IsPublic: true,
	})
	require.NoError(t, err)

	t.Run("only public documents, any owner", func(t *testing.T) {
		scapes, err := svc.Public(ctx, "", 0)
		require.NoError(t, err)
		require.Len(t, scapes, 2)
		for _, sc := range scapes {
			assert.True(t, sc.IsPublic)
		}
	})

	t.Run("category filter", func(t *testing.T) {
		scapes, err := svc.Public(ctx, CategorySleep, 0)
		require.NoError(t, err)
		require.Len(t, scapes, 1)
		assert.Equal(t, "Shared Sleep", scapes[0].Name)
	})

	t.Run("limit applies", func(t *testing.T) {
		scapes, err := svc.Public(ctx, "", 1)
		require.NoError(t, err)
		assert.Len(t, scapes, 1)
	})
}

func TestUpdateMergesFields(t *testing.T) {
	svc := newTestService(&synthStub{}, newMemBlobStore())
	ctx := context.Background()
	owner := identity.Subject{ID: "u1"}

	created, err := svc.Create(ctx, owner, CreateSoundscapeRequest{
		Name: "Evening Calm", Description: "wind and rain", Category: CategoryRelaxation, Duration: 300,
	})
	require.NoError(t, err)

	name := "Morning Calm"
	public := true
	updated, err := svc.Update(ctx, owner, created.ID, UpdateSoundscapeRequest{Name: &name, IsPublic: &public})
	require.NoError(t, err)
	assert.Equal(t, "Morning Calm", updated.Name)
	assert.True(t, updated.IsPublic)
	assert.Equal(t, "wind and rain", updated.Description, "unsupplied fields stay intact")

	t.Run("non-owner cannot update", func(t *testing.T) {
		_, err := svc.Update(ctx, identity.Subject{ID: "u2"}, created.ID, UpdateSoundscapeRequest{Name: &name})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestGenerate(t *testing.T) {
	synth := &synthStub{audio: []byte("mp3-bytes")}
	blobs := newMemBlobStore()
	svc := newTestService(synth, blobs)
	ctx := context.Background()
	owner := identity.Subject{ID: "u1"}

	sc, err := svc.Generate(ctx, owner, GenerateRequest{Text: "good night, little dog"})
	require.NoError(t, err)
	require.NotEmpty(t, sc.ID)
	assert.Equal(t, CategoryCustom, sc.Category)
	assert.Equal(t, tts.DefaultVoiceID, sc.VoiceID)
	assert.Equal(t, tts.DefaultModelID, sc.ModelID)
	assert.Contains(t, sc.Name, "Generated Soundscape")
	assert.NotEmpty(t, sc.AudioURL)
	assert.Equal(t, []byte("mp3-bytes"), blobs.blobs[sc.AudioName], "audio lands in the blob store")
	assert.False(t, sc.IsPublic)

	got, err := svc.Get(ctx, owner, sc.ID)
	require.NoError(t, err)
	assert.Equal(t, sc.AudioURL, got.AudioURL)
}

func TestGenerateMultibytePreview(t *testing.T) {
	svc := newTestService(&synthStub{audio: []byte("mp3")}, newMemBlobStore())
	ctx := context.Background()

	text := strings.Repeat("ニャー", 50) // 150 runes, 450 bytes
	sc, err := svc.Generate(ctx, identity.Subject{ID: "u1"}, GenerateRequest{Text: text})
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(sc.Description), "preview truncation must not split a rune")
	assert.Contains(t, sc.Description, strings.Repeat("ニャー", 33)+"ニ")
}

func TestGenerateSynthesisFailure(t *testing.T) {
	synth := &synthStub{err: dErrors.New(dErrors.CodeUnavailable, "voice service is unavailable")}
	svc := newTestService(synth, newMemBlobStore())
	ctx := context.Background()
	owner := identity.Subject{ID: "u1"}

	_, err := svc.Generate(ctx, owner, GenerateRequest{Text: "hello"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))

	scapes, err := svc.List(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, scapes, "no document survives a failed synthesis")
}

func TestGenerateBlobFailure(t *testing.T) {
	blobs := newMemBlobStore()
	blobs.saveErr = errors.New("disk full")
	svc := newTestService(&synthStub{audio: []byte("x")}, blobs)
	ctx := context.Background()
	owner := identity.Subject{ID: "u1"}

	_, err := svc.Generate(ctx, owner, GenerateRequest{Text: "hello"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))

	scapes, err := svc.List(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, scapes, "no document survives a failed blob write")
}

func TestDeleteCleansUpAudio(t *testing.T) {
	blobs := newMemBlobStore()
	svc := newTestService(&synthStub{audio: []byte("mp3-bytes")}, blobs)
	ctx := context.Background()
	owner := identity.Subject{ID: "u1"}

	sc, err := svc.Generate(ctx, owner, GenerateRequest{Text: "good night"})
	require.NoError(t, err)
	require.Contains(t, blobs.blobs, sc.AudioName)

	require.NoError(t, svc.Delete(ctx, owner, sc.ID))
	assert.NotContains(t, blobs.blobs, sc.AudioName)

	_, err = svc.Get(ctx, owner, sc.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestVoicesProxy(t *testing.T) {
	synth := &synthStub{voices: []tts.Voice{{VoiceID: "v1", Name: "Rachel"}}}
	svc := newTestService(synth, newMemBlobStore())

	voices, err := svc.Voices(context.Background())
	require.NoError(t, err)
	require.Len(t, voices, 1)
	assert.Equal(t, "Rachel", voices[0].Name)
}

func TestCreateSoundscapeRequestValidate(t *testing.T) {
	t.Run("valid payload passes", func(t *testing.T) {
		req := CreateSoundscapeRequest{Name: "Calm", Category: CategoryRelaxation, Duration: 60}
		assert.NoError(t, req.Validate())
	})

	t.Run("every violation is reported", func(t *testing.T) {
		req := CreateSoundscapeRequest{Name: "", Category: "loud", Duration: 5}
		err := req.Validate()
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.Len(t, dErrors.Load(err), 3)
	})

	t.Run("duration bounds", func(t *testing.T) {
		req := CreateSoundscapeRequest{Name: "Calm", Category: CategoryRelaxation, Duration: 3601}
		require.Error(t, req.Validate())
		req.Duration = 3600
		assert.NoError(t, req.Validate())
	})
}

func TestGenerateRequestValidate(t *testing.T) {
	assert.Error(t, GenerateRequest{}.Validate())
	assert.NoError(t, GenerateRequest{Text: "hello"}.Validate())
}
