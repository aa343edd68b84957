// Package domain contains the core business entities and value objects for queue-keeper.
// These models represent the ubiquitous language of the store queue domain.
package domain

import (
	"errors"
	"fmt"
)

// Store is a retail location owned by a company. Stores are never created
// through the API; they mirror the upstream store service via lifecycle events.
type Store struct {
	// ID is assigned by the upstream system and never changes.
	ID string `json:"id"`

	// DisplaySequence is the per-company business number of the store (s_id).
	DisplaySequence int64 `json:"sId"`

	// Name is the store's display name.
	Name string `json:"name"`

	// Alias is an optional short code.
	Alias *string `json:"alias"`

	// Deactivated marks a store that has been switched off upstream.
	Deactivated bool `json:"deactivated"`

	// CompanyID identifies the owning tenant.
	CompanyID string `json:"companyId"`
}

// Store errors.
var (
	ErrStoreNotFound      = errors.New("store not found")
	ErrStoreAlreadyExists = errors.New("store already exists")
)

// DisplayID returns the human-facing store code, e.g. "S7".
func (s *Store) DisplayID() string {
	return fmt.Sprintf("S%d", s.DisplaySequence)
}

// SameAs reports whether a store row holds exactly the values a fresh create
// would have written for other.
func (s *Store) SameAs(other *Store) bool {
	return s.ID == other.ID &&
		s.DisplaySequence == other.DisplaySequence &&
		s.Name == other.Name &&
		equalAlias(s.Alias, other.Alias) &&
		s.Deactivated == other.Deactivated &&
		s.CompanyID == other.CompanyID
}

func equalAlias(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// StringPtr returns a pointer to s. Handy for aliases and descriptions.
func StringPtr(s string) *string {
	return &s
}
