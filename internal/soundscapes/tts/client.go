// Package tts is the ElevenLabs text-to-speech client. All calls go through
// a circuit breaker; while the circuit is open only one probe per cooldown
// interval reaches the upstream, everything else fails fast as unavailable.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"serenyx/internal/platform/config"
	dErrors "serenyx/pkg/domain-errors"
	"serenyx/pkg/platform/circuit"
)

const (
	// DefaultVoiceID is the ElevenLabs voice used when none is requested.
	DefaultVoiceID = "21m00Tcm4TlvDq8ikWAM"
	// DefaultModelID is the synthesis model used when none is requested.
	DefaultModelID = "eleven_monolingual_v1"

	probeCooldown = 30 * time.Second
	maxAudioBytes = 32 << 20
)

// Voice is one available synthesis voice.
type Voice struct {
	VoiceID  string `json:"voice_id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

// Client calls the ElevenLabs HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *circuit.Breaker

	mu        sync.Mutex
	lastProbe time.Time
}

func NewClient(cfg config.TTS) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		breaker:    circuit.New("elevenlabs"),
	}
}

// Configured reports whether an API key is present. Deployments without one
// simply have no generation endpoints.
func (c *Client) Configured() bool { return c.apiKey != "" }

// Synthesize converts text to audio bytes with the given voice and model.
func (c *Client) Synthesize(ctx context.Context, text, voiceID, modelID string) ([]byte, error) {
	if voiceID == "" {
		voiceID = DefaultVoiceID
	}
	if modelID == "" {
		modelID = DefaultModelID
	}

	payload, err := json.Marshal(map[string]any{
		"text":     text,
		"model_id": modelID,
		"voice_settings": map[string]any{
			"stability":        0.5,
			"similarity_boost": 0.5,
		},
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "encode synthesis request")
	}

	var audio []byte
	err = c.call(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			fmt.Sprintf("%s/text-to-speech/%s", c.baseURL, voiceID), bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "audio/mpeg")
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("xi-api-key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("text-to-speech returned status %d", resp.StatusCode)
		}
		audio, err = io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
		return err
	})
	if err != nil {
		return nil, err
	}
	return audio, nil
}

// Voices lists the available synthesis voices.
func (c *Client) Voices(ctx context.Context) ([]Voice, error) {
	var voices []Voice
	err := c.call(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/voices", nil)
		if err != nil {
			return err
		}
		req.Header.Set("xi-api-key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("voices returned status %d", resp.StatusCode)
		}
		var body struct {
			Voices []Voice `json:"voices"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return err
		}
		voices = body.Voices
		return nil
	})
	if err != nil {
		return nil, err
	}
	return voices, nil
}

// call runs fn under the circuit breaker.
func (c *Client) call(ctx context.Context, fn func(ctx context.Context) error) error {
	if !c.Configured() {
		return dErrors.New(dErrors.CodeUnavailable, "text-to-speech is not configured")
	}
	if c.breaker.IsOpen() && !c.allowProbe() {
		return dErrors.New(dErrors.CodeUnavailable, "text-to-speech is temporarily unavailable")
	}

	if err := fn(ctx); err != nil {
		c.breaker.RecordFailure()
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "text-to-speech call failed")
	}
	c.breaker.RecordSuccess()
	return nil
}

// allowProbe admits one upstream attempt per cooldown while the circuit is
// open.
func (c *Client) allowProbe() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if time.Since(c.lastProbe) < probeCooldown {
		return false
	}
	c.lastProbe = time.Now()
	return true
}
