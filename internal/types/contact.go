// Package types provides type definitions for structured data used throughout the resume-optimizer system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "time"

// ContactRecord holds the personally identifying values captured from a document.
// An empty field means the detector found nothing for it.
type ContactRecord struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// IsEmpty reports whether no contact value was captured.
func (c ContactRecord) IsEmpty() bool {
	return c.Name == "" && c.Email == "" && c.Phone == "" && c.Address == ""
}

// Presence returns which fields were captured, keyed by field name.
// Used for logging; the values themselves must never be logged.
func (c ContactRecord) Presence() map[string]bool {
	return map[string]bool{
		"name":    c.Name != "",
		"email":   c.Email != "",
		"phone":   c.Phone != "",
		"address": c.Address != "",
	}
}

// AnonymizedDocument is a document with contact values replaced by placeholders,
// together with the captured originals needed to reverse the redaction.
type AnonymizedDocument struct {
	Text     string        `json:"text"`
	Contacts ContactRecord `json:"contacts"`
}

// TokenEntry is the state bridging the analysis step and the optimization step.
type TokenEntry struct {
	Token          string        `json:"token"`
	AnonymizedText string        `json:"anonymized_text"`
	Contacts       ContactRecord `json:"contacts"`
	CreatedAt      time.Time     `json:"created_at"`
}

// Expired reports whether the entry is older than ttl at the given instant.
func (e *TokenEntry) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.CreatedAt) > ttl
}
