package srs

import "errors"

// ErrNoDeck is returned for deck ids that do not resolve to a deck.
var ErrNoDeck = errors.New("srs: no such deck")

// Registry creates, looks up and removes the decks of one student. Deck
// ids increase monotonically and are never reused within a process.
type Registry struct {
	profile *Profile
	decks   map[int64]*Deck
	order   []int64
	nextID  int64
}

// NewRegistry returns an empty registry whose decks share one student
// profile.
func NewRegistry(profile *Profile) *Registry {
	if profile == nil {
		profile = NewProfile()
	}
	return &Registry{
		profile: profile,
		decks:   make(map[int64]*Deck),
		nextID:  1,
	}
}

// Profile returns the shared student profile.
func (r *Registry) Profile() *Profile {
	return r.profile
}

// CreateDeck creates an empty deck under the next free id.
func (r *Registry) CreateDeck(name string) *Deck {
	d := NewDeck(r.nextID, name, r.profile)
	r.decks[d.id] = d
	r.order = append(r.order, d.id)
	r.nextID++
	return d
}

// AddDeck registers a deck loaded from persistence. Ids at or above the
// deck's id are never handed out again.
func (r *Registry) AddDeck(d *Deck) error {
	if _, ok := r.decks[d.id]; ok {
		return errors.New("srs: duplicate deck id")
	}
	r.decks[d.id] = d
	r.order = append(r.order, d.id)
	if d.id >= r.nextID {
		r.nextID = d.id + 1
	}
	return nil
}

// GetDeck looks a deck up by id.
func (r *Registry) GetDeck(id int64) (*Deck, error) {
	d, ok := r.decks[id]
	if !ok {
		return nil, ErrNoDeck
	}
	return d, nil
}

// RemoveDeck drops a deck from the registry. The id is not reused.
func (r *Registry) RemoveDeck(id int64) error {
	d, ok := r.decks[id]
	if !ok {
		return ErrNoDeck
	}
	d.cancelPrefetch()
	delete(r.decks, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Decks returns all decks in creation order.
func (r *Registry) Decks() []*Deck {
	out := make([]*Deck, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.decks[id])
	}
	return out
}

// FixStats runs every deck's full day-statistics rebuild. Used once
// after bulk load or migration, when the incremental aggregates cannot
// be trusted.
func (r *Registry) FixStats() {
	for _, id := range r.order {
		d := r.decks[id]
		d.RebuildDayStats(d.DayStatEvents())
	}
}
