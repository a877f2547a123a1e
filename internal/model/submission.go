// Package model defines domain entities for the application.
package model

import (
	"strings"
	"time"
)

// Payload field names accepted by the intake endpoint.
const (
	FieldName                    = "name"
	FieldEmail                   = "email"
	FieldPhoneNumber             = "phone_number"
	FieldInstagramHandle         = "instagram_handle"
	FieldQualifications          = "qualifications"
	FieldYearsOfExperience       = "years_of_experience"
	FieldMinimumPrice            = "minimum_price"
	FieldArtShowsParticipation   = "art_shows_participation"
	FieldAcceptsCommissionedWork = "accepts_commissioned_work"
	FieldHostsWorkshops          = "hosts_workshops"
	FieldMarketingConsent        = "marketing_consent"
	FieldDataProcessingConsent   = "data_processing_consent"
)

// BooleanFields lists the payload fields carrying true/false flags.
var BooleanFields = []string{
	FieldAcceptsCommissionedWork,
	FieldHostsWorkshops,
	FieldMarketingConsent,
	FieldDataProcessingConsent,
}

// Submission is one artist's waitlist application.
type Submission struct {
	ID                      string    `json:"id"`
	Name                    string    `json:"name"`
	Email                   string    `json:"email"`
	PhoneNumber             *string   `json:"phone_number,omitempty"`
	InstagramHandle         string    `json:"instagram_handle"`
	Qualifications          *string   `json:"qualifications,omitempty"`
	YearsOfExperience       int       `json:"years_of_experience"`
	MinimumPrice            string    `json:"minimum_price"`
	ArtShowsParticipation   *string   `json:"art_shows_participation,omitempty"`
	AcceptsCommissionedWork bool      `json:"accepts_commissioned_work"`
	HostsWorkshops          bool      `json:"hosts_workshops"`
	MarketingConsent        bool      `json:"marketing_consent"`
	DataProcessingConsent   bool      `json:"data_processing_consent"`
	CreatedAt               time.Time `json:"created_at"`
}

// NewSubmissionFromPayload builds a normalized Submission from a validated payload.
// Text is trimmed, the email is lowercased and blank optional fields become nil.
// Missing booleans default to false.
func NewSubmissionFromPayload(raw map[string]any) *Submission {
	name, _ := StringField(raw, FieldName)
	email, _ := StringField(raw, FieldEmail)
	handle, _ := StringField(raw, FieldInstagramHandle)
	price, _ := StringField(raw, FieldMinimumPrice)
	years, _ := NumberField(raw, FieldYearsOfExperience)

	return &Submission{
		Name:                    strings.TrimSpace(name),
		Email:                   NormalizeEmail(email),
		PhoneNumber:             optionalText(raw, FieldPhoneNumber),
		InstagramHandle:         strings.TrimSpace(handle),
		Qualifications:          optionalText(raw, FieldQualifications),
		YearsOfExperience:       int(years),
		MinimumPrice:            strings.TrimSpace(price),
		ArtShowsParticipation:   optionalText(raw, FieldArtShowsParticipation),
		AcceptsCommissionedWork: boolOrFalse(raw, FieldAcceptsCommissionedWork),
		HostsWorkshops:          boolOrFalse(raw, FieldHostsWorkshops),
		MarketingConsent:        boolOrFalse(raw, FieldMarketingConsent),
		DataProcessingConsent:   boolOrFalse(raw, FieldDataProcessingConsent),
	}
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func optionalText(raw map[string]any, field string) *string {
	s, ok := StringField(raw, field)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func boolOrFalse(raw map[string]any, field string) bool {
	b, _ := BoolField(raw, field)
	return b
}
