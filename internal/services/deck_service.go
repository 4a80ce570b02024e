package services

import (
	"bytes"
	"context"
	"strings"

	"github.com/mnarita/kioku/internal/deckfile"
	"github.com/mnarita/kioku/internal/errors"
	"github.com/mnarita/kioku/internal/jobs"
	"github.com/mnarita/kioku/internal/logger"
	"github.com/mnarita/kioku/internal/srs"
)

// DeckSummary is the external view of a deck.
type DeckSummary struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	CardCount   int    `json:"card_count"`
	TestedToday int    `json:"tested_today"`
	TestDay     string `json:"test_day,omitempty"`
}

// DeckService handles deck lifecycle business logic
type DeckService interface {
	CreateDeck(ctx context.Context, name string) (*DeckSummary, error)
	GetDeck(ctx context.Context, id int64) (*DeckSummary, error)
	ListDecks(ctx context.Context) ([]DeckSummary, error)
	RenameDeck(ctx context.Context, id int64, name string) error
	DeleteDeck(ctx context.Context, id int64) error
	FixStats(ctx context.Context) (int, error)
}

type deckService struct {
	engine *Engine
	queue  jobs.JobQueue
}

// NewDeckService creates a new DeckService
func NewDeckService(engine *Engine, queue jobs.JobQueue) DeckService {
	return &deckService{engine: engine, queue: queue}
}

func summarize(d *srs.Deck) *DeckSummary {
	s := &DeckSummary{
		ID:          d.ID(),
		Name:        d.Name(),
		CardCount:   d.CardCount(),
		TestedToday: d.TestSize(),
	}
	if day := d.TestDay(); day >= 0 {
		s.TestDay = day.Time().Format("2006-01-02")
	}
	return s
}

func (s *deckService) CreateDeck(ctx context.Context, name string) (*DeckSummary, error) {
	log := logger.FromContext(ctx)
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.NewValidationError("name", "must not be empty")
	}
	log.Debug("creating deck: name=%s", name)

	e := s.engine
	e.mu.Lock()
	defer e.mu.Unlock()

	// Insert first so the database assigns the deck id.
	id, err := e.decks.Insert(ctx, name, []byte{})
	if err != nil {
		log.Error("failed to insert deck: %v", err)
		return nil, errors.NewInternalError(err)
	}

	d := srs.NewDeck(id, name, e.reg.Profile())
	if err := e.reg.AddDeck(d); err != nil {
		return nil, errors.NewInternalError(err)
	}

	var buf bytes.Buffer
	if err := deckfile.Encode(&buf, d); err != nil {
		return nil, errors.NewInternalError(err)
	}
	if err := e.decks.Update(ctx, id, name, buf.Bytes()); err != nil {
		return nil, errors.NewInternalError(err)
	}

	log.Info("deck created: id=%d, name=%s", id, name)
	return summarize(d), nil
}

func (s *deckService) GetDeck(ctx context.Context, id int64) (*DeckSummary, error) {
	e := s.engine
	e.mu.Lock()
	defer e.mu.Unlock()

	d, err := e.reg.GetDeck(id)
	if err != nil {
		return nil, errors.NewNotFoundError("deck", id)
	}
	return summarize(d), nil
}

func (s *deckService) ListDecks(ctx context.Context) ([]DeckSummary, error) {
	e := s.engine
	e.mu.Lock()
	defer e.mu.Unlock()

	decks := e.reg.Decks()
	out := make([]DeckSummary, 0, len(decks))
	for _, d := range decks {
		out = append(out, *summarize(d))
	}
	return out, nil
}

func (s *deckService) RenameDeck(ctx context.Context, id int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.NewValidationError("name", "must not be empty")
	}

	e := s.engine
	e.mu.Lock()
	defer e.mu.Unlock()

	d, err := e.reg.GetDeck(id)
	if err != nil {
		return errors.NewNotFoundError("deck", id)
	}
	d.SetName(name)
	return e.saveDeck(ctx, d)
}

func (s *deckService) DeleteDeck(ctx context.Context, id int64) error {
	log := logger.FromContext(ctx)
	log.Debug("deleting deck: id=%d", id)

	e := s.engine
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.reg.RemoveDeck(id); err != nil {
		return errors.NewNotFoundError("deck", id)
	}
	if err := e.decks.Delete(ctx, id); err != nil {
		log.Error("failed to delete deck row: %v", err)
		return errors.NewInternalError(err)
	}
	log.Info("deck deleted: id=%d", id)
	return nil
}

// FixStats enqueues a full day-statistics rebuild for every deck and
// returns the number of decks queued. Used after bulk import, when the
// incremental aggregates cannot be trusted.
func (s *deckService) FixStats(ctx context.Context) (int, error) {
	log := logger.FromContext(ctx)

	e := s.engine
	e.mu.Lock()
	ids := make([]int64, 0)
	for _, d := range e.reg.Decks() {
		ids = append(ids, d.ID())
	}
	e.mu.Unlock()

	queued := 0
	for _, id := range ids {
		if err := s.queue.EnqueueRebuild(id); err != nil {
			log.Warn("could not enqueue rebuild for deck %d: %v", id, err)
			continue
		}
		queued++
	}
	log.Info("queued day-stat rebuild for %d decks", queued)
	return queued, nil
}
