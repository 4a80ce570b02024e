package models

import "time"

// DeckRecord is a persisted deck row. Payload holds the binary deck
// stream produced by the deckfile package.
type DeckRecord struct {
	ID        int64
	Name      string
	Payload   []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DeckFilter narrows deck listings.
type DeckFilter struct {
	Name     string
	OrderBy  string // "created_at" or "name"
	OrderDir string // "ASC" or "DESC"
	Limit    int
	Offset   int
}

// ProfileRecord is the single persisted student profile row.
type ProfileRecord struct {
	Payload   []byte
	UpdatedAt time.Time
}
