package domain

import "time"

// Book is a review record stored by the book service. OwnerID references a
// user held by the identity service; there is no local user table to join
// against, so the reference is unenforced by the store.
type Book struct {
	ID        string
	Title     string
	Caption   string
	Image     string
	Rating    int
	OwnerID   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EnrichedBook is a Book whose owner id has been exchanged for a resolved
// profile (or the placeholder when resolution failed). It exists only in
// responses and is never persisted.
type EnrichedBook struct {
	Book
	Owner *UserProfile
}
