// Package pets implements owner-scoped CRUD over pet documents.
package pets

import (
	"time"

	"github.com/asaskevich/govalidator"

	dErrors "serenyx/pkg/domain-errors"
)

// Valid pet types.
const (
	TypeDog   = "Dog"
	TypeCat   = "Cat"
	TypeBird  = "Bird"
	TypeFish  = "Fish"
	TypeOther = "Other"
)

var validTypes = map[string]bool{
	TypeDog:   true,
	TypeCat:   true,
	TypeBird:  true,
	TypeFish:  true,
	TypeOther: true,
}

// Pet is one pet document. Age is in months.
type Pet struct {
	ID          string         `json:"id"`
	OwnerID     string         `json:"ownerId"`
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	Breed       string         `json:"breed"`
	Age         int            `json:"age"`
	Weight      float64        `json:"weight,omitempty"`
	BirthDate   string         `json:"birthDate,omitempty"`
	Photos      []string       `json:"photos,omitempty"`
	Preferences map[string]any `json:"preferences,omitempty"`
	HealthNotes []string       `json:"healthNotes,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// Owner implements guard.Owned.
func (p Pet) Owner() string { return p.OwnerID }

// CreatePetRequest is the POST /api/pets payload.
type CreatePetRequest struct {
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	Breed       string         `json:"breed"`
	Age         int            `json:"age"`
	Weight      float64        `json:"weight,omitempty"`
	BirthDate   string         `json:"birthDate,omitempty"`
	Photos      []string       `json:"photos,omitempty"`
	Preferences map[string]any `json:"preferences,omitempty"`
	HealthNotes []string       `json:"healthNotes,omitempty"`
}

// Validate reports every violated constraint, not just the first.
func (r CreatePetRequest) Validate() error {
	verr := dErrors.New(dErrors.CodeValidation, "invalid pet payload")

	if l := len(r.Name); l < 1 || l > 50 {
		verr.Add("name", "name must be between 1 and 50 characters")
	}
	if !validTypes[r.Type] {
		verr.Add("type", "type must be one of Dog, Cat, Bird, Fish, Other")
	}
	if l := len(r.Breed); l < 1 || l > 100 {
		verr.Add("breed", "breed must be between 1 and 100 characters")
	}
	if r.Age < 0 || r.Age > 300 {
		verr.Add("age", "age must be between 0 and 300 months")
	}
	if r.Weight < 0 {
		verr.Add("weight", "weight must be positive")
	}
	if r.BirthDate != "" && !govalidator.IsRFC3339(r.BirthDate) {
		verr.Add("birthDate", "birthDate must be an RFC 3339 timestamp")
	}
	for _, photo := range r.Photos {
		if !govalidator.IsURL(photo) {
			verr.Add("photos", "every photo must be a valid URL")
			break
		}
	}

	if len(dErrors.Load(verr)) == 0 {
		return nil
	}
	return verr
}

// UpdatePetRequest is the PUT /api/pets/{petID} payload. Every field is
// optional; only supplied fields are validated and written.
type UpdatePetRequest struct {
	Name        *string        `json:"name,omitempty"`
	Type        *string        `json:"type,omitempty"`
	Breed       *string        `json:"breed,omitempty"`
	Age         *int           `json:"age,omitempty"`
	Weight      *float64       `json:"weight,omitempty"`
	BirthDate   *string        `json:"birthDate,omitempty"`
	Photos      []string       `json:"photos,omitempty"`
	Preferences map[string]any `json:"preferences,omitempty"`
	HealthNotes []string       `json:"healthNotes,omitempty"`
}

func (r UpdatePetRequest) Validate() error {
	verr := dErrors.New(dErrors.CodeValidation, "invalid pet payload")

	if r.Name != nil {
		if l := len(*r.Name); l < 1 || l > 50 {
			verr.Add("name", "name must be between 1 and 50 characters")
		}
	}
	if r.Type != nil && !validTypes[*r.Type] {
		verr.Add("type", "type must be one of Dog, Cat, Bird, Fish, Other")
	}
	if r.Breed != nil {
		if l := len(*r.Breed); l < 1 || l > 100 {
			verr.Add("breed", "breed must be between 1 and 100 characters")
		}
	}
	if r.Age != nil && (*r.Age < 0 || *r.Age > 300) {
		verr.Add("age", "age must be between 0 and 300 months")
	}
	if r.Weight != nil && *r.Weight < 0 {
		verr.Add("weight", "weight must be positive")
	}
	if r.BirthDate != nil && *r.BirthDate != "" && !govalidator.IsRFC3339(*r.BirthDate) {
		verr.Add("birthDate", "birthDate must be an RFC 3339 timestamp")
	}
	for _, photo := range r.Photos {
		if !govalidator.IsURL(photo) {
			verr.Add("photos", "every photo must be a valid URL")
			break
		}
	}

	if len(dErrors.Load(verr)) == 0 {
		return nil
	}
	return verr
}

// fields returns only the supplied fields as a document merge.
func (r UpdatePetRequest) fields() map[string]any {
	out := make(map[string]any)
	if r.Name != nil {
		out["name"] = *r.Name
	}
	if r.Type != nil {
		out["type"] = *r.Type
	}
	if r.Breed != nil {
		out["breed"] = *r.Breed
	}
	if r.Age != nil {
		out["age"] = *r.Age
	}
	if r.Weight != nil {
		out["weight"] = *r.Weight
	}
	if r.BirthDate != nil {
		out["birthDate"] = *r.BirthDate
	}
	if r.Photos != nil {
		out["photos"] = r.Photos
	}
	if r.Preferences != nil {
		out["preferences"] = r.Preferences
	}
	if r.HealthNotes != nil {
		out["healthNotes"] = r.HealthNotes
	}
	return out
}
