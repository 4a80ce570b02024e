package services

import (
	"bytes"
	"context"
	"sync"

	"github.com/mnarita/kioku/internal/deckfile"
	"github.com/mnarita/kioku/internal/errors"
	"github.com/mnarita/kioku/internal/logger"
	"github.com/mnarita/kioku/internal/models"
	"github.com/mnarita/kioku/internal/repository"
	"github.com/mnarita/kioku/internal/srs"
)

// Engine holds the in-memory scheduling state shared by the services.
// The srs package is single-writer, so every operation that touches a
// deck runs under the engine mutex.
type Engine struct {
	mu       sync.Mutex
	reg      *srs.Registry
	decks    repository.DeckRepository
	profiles repository.ProfileRepository
	autosave bool
	prefetch bool
}

// NewEngine creates an engine over the given repositories. Call Load
// before serving requests.
func NewEngine(decks repository.DeckRepository, profiles repository.ProfileRepository, autosave, prefetch bool) *Engine {
	return &Engine{
		reg:      srs.NewRegistry(nil),
		decks:    decks,
		profiles: profiles,
		autosave: autosave,
		prefetch: prefetch,
	}
}

// Load restores the student profile and every stored deck. A deck that
// fails to decode is skipped with an error log; it never takes the rest
// of the collection down with it.
func (e *Engine) Load(ctx context.Context) error {
	log := logger.FromContext(ctx).WithPrefix("engine")
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.profiles.Load(ctx)
	if err != nil {
		return err
	}
	if rec != nil {
		p, err := deckfile.DecodeProfile(bytes.NewReader(rec.Payload))
		if err != nil {
			log.Error("stored profile is corrupted, starting fresh: %v", err)
		} else {
			e.reg = srs.NewRegistry(p)
		}
	}

	records, err := e.decks.List(ctx, models.DeckFilter{})
	if err != nil {
		return err
	}
	loaded := 0
	for _, r := range records {
		d, warnings, err := deckfile.Decode(bytes.NewReader(r.Payload), e.reg.Profile())
		if err != nil {
			log.Error("skipping deck %d (%s): %v", r.ID, r.Name, err)
			continue
		}
		for _, w := range warnings {
			log.Warn("deck %d (%s): %s", r.ID, r.Name, w)
		}
		d.SetName(r.Name)
		if err := e.reg.AddDeck(d); err != nil {
			log.Error("skipping deck %d (%s): %v", r.ID, r.Name, err)
			continue
		}
		loaded++
	}
	log.Info("loaded %d of %d decks", loaded, len(records))
	return nil
}

// SaveAll persists every deck and the student profile. Used at shutdown
// and when autosave is off.
func (e *Engine) SaveAll(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, d := range e.reg.Decks() {
		if err := e.persistDeck(ctx, d); err != nil {
			return err
		}
	}
	return e.persistProfile(ctx)
}

// saveDeck persists one deck when autosave is on. Callers hold the
// engine mutex.
func (e *Engine) saveDeck(ctx context.Context, d *srs.Deck) error {
	if !e.autosave {
		return nil
	}
	if err := e.persistDeck(ctx, d); err != nil {
		return err
	}
	return e.persistProfile(ctx)
}

func (e *Engine) persistDeck(ctx context.Context, d *srs.Deck) error {
	var buf bytes.Buffer
	if err := deckfile.Encode(&buf, d); err != nil {
		return errors.NewInternalError(err)
	}
	if err := e.decks.Update(ctx, d.ID(), d.Name(), buf.Bytes()); err != nil {
		return errors.NewInternalError(err)
	}
	return nil
}

func (e *Engine) persistProfile(ctx context.Context) error {
	var buf bytes.Buffer
	if err := deckfile.EncodeProfile(&buf, e.reg.Profile()); err != nil {
		return errors.NewInternalError(err)
	}
	if err := e.profiles.Save(ctx, buf.Bytes()); err != nil {
		return errors.NewInternalError(err)
	}
	return nil
}

// mapEngineErr translates srs sentinel errors to API errors.
func mapEngineErr(err error) error {
	switch err {
	case nil:
		return nil
	case srs.ErrNoDeck:
		return errors.NewNotFoundError("deck", "")
	case srs.ErrNoCard:
		return errors.NewNotFoundError("card", "")
	case srs.ErrBadAnswer:
		return errors.NewValidationError("answer", "must be retry, correct, wrong or easy")
	case srs.ErrNoTestDay:
		return errors.NewConflictError("test day not started")
	case srs.ErrNoUndo:
		return errors.NewConflictError("nothing to undo")
	default:
		return errors.NewInternalError(err)
	}
}
