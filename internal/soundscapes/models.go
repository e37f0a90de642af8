// Package soundscapes implements owner-scoped CRUD over soundscape
// documents, a public listing, and AI generation through the text-to-speech
// proxy.
package soundscapes

import (
	"time"

	dErrors "serenyx/pkg/domain-errors"
)

// Soundscape categories.
const (
	CategoryRelaxation = "relaxation"
	CategoryPlaytime   = "playtime"
	CategorySleep      = "sleep"
	CategoryTraining   = "training"
	CategoryCustom     = "custom"
)

var validCategories = map[string]bool{
	CategoryRelaxation: true,
	CategoryPlaytime:   true,
	CategorySleep:      true,
	CategoryTraining:   true,
	CategoryCustom:     true,
}

// Soundscape is one soundscape document. Duration is in seconds.
type Soundscape struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category"`
	Duration    int       `json:"duration"`
	Tags        []string  `json:"tags,omitempty"`
	IsPublic    bool      `json:"isPublic"`
	AudioURL    string    `json:"audioUrl,omitempty"`
	AudioName   string    `json:"audioName,omitempty"`
	Text        string    `json:"text,omitempty"`
	VoiceID     string    `json:"voiceId,omitempty"`
	ModelID     string    `json:"modelId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Owner implements guard.Owned.
func (s Soundscape) Owner() string { return s.OwnerID }

// CreateSoundscapeRequest is the POST /api/soundscape payload.
type CreateSoundscapeRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category"`
	Duration    int      `json:"duration"`
	Tags        []string `json:"tags,omitempty"`
	IsPublic    bool     `json:"isPublic"`
}

func (r CreateSoundscapeRequest) Validate() error {
	verr := dErrors.New(dErrors.CodeValidation, "invalid soundscape payload")

	if l := len(r.Name); l < 1 || l > 100 {
		verr.Add("name", "name must be between 1 and 100 characters")
	}
	if len(r.Description) > 500 {
		verr.Add("description", "description must be at most 500 characters")
	}
	if !validCategories[r.Category] {
		verr.Add("category", "category must be one of relaxation, playtime, sleep, training, custom")
	}
	if r.Duration < 30 || r.Duration > 3600 {
		verr.Add("duration", "duration must be between 30 and 3600 seconds")
	}

	if len(dErrors.Load(verr)) == 0 {
		return nil
	}
	return verr
}

// UpdateSoundscapeRequest is the PUT payload; all fields optional.
type UpdateSoundscapeRequest struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Category    *string  `json:"category,omitempty"`
	Duration    *int     `json:"duration,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	IsPublic    *bool    `json:"isPublic,omitempty"`
}

func (r UpdateSoundscapeRequest) Validate() error {
	verr := dErrors.New(dErrors.CodeValidation, "invalid soundscape payload")

	if r.Name != nil {
		if l := len(*r.Name); l < 1 || l > 100 {
			verr.Add("name", "name must be between 1 and 100 characters")
		}
	}
	if r.Description != nil && len(*r.Description) > 500 {
		verr.Add("description", "description must be at most 500 characters")
	}
	if r.Category != nil && !validCategories[*r.Category] {
		verr.Add("category", "category must be one of relaxation, playtime, sleep, training, custom")
	}
	if r.Duration != nil && (*r.Duration < 30 || *r.Duration > 3600) {
		verr.Add("duration", "duration must be between 30 and 3600 seconds")
	}

	if len(dErrors.Load(verr)) == 0 {
		return nil
	}
	return verr
}

func (r UpdateSoundscapeRequest) fields() map[string]any {
	out := make(map[string]any)
	if r.Name != nil {
		out["name"] = *r.Name
	}
	if r.Description != nil {
		out["description"] = *r.Description
	}
	if r.Category != nil {
		out["category"] = *r.Category
	}
	if r.Duration != nil {
		out["duration"] = *r.Duration
	}
	if r.Tags != nil {
		out["tags"] = r.Tags
	}
	if r.IsPublic != nil {
		out["isPublic"] = *r.IsPublic
	}
	return out
}

// GenerateRequest is the POST /api/soundscape/generate payload.
type GenerateRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voiceId,omitempty"`
	ModelID string `json:"modelId,omitempty"`
}

func (r GenerateRequest) Validate() error {
	if r.Text == "" {
		return dErrors.New(dErrors.CodeValidation, "invalid generation payload").
			Add("text", "text is required for soundscape generation")
	}
	if len(r.Text) > 5000 {
		return dErrors.New(dErrors.CodeValidation, "invalid generation payload").
			Add("text", "text must be at most 5000 characters")
	}
	return nil
}
