package services

import (
	"context"
	"time"

	"github.com/mnarita/kioku/internal/errors"
	"github.com/mnarita/kioku/internal/logger"
	"github.com/mnarita/kioku/internal/srs"
)

// CardInfo is the external view of one card's scheduling state.
type CardInfo struct {
	Handle         srs.Handle `json:"handle"`
	UserData       int64      `json:"user_data"`
	Level          int        `json:"level"`
	SpacingSeconds int64      `json:"spacing_seconds"`
	NextTestDate   time.Time  `json:"next_test_date"`
	Repeats        int        `json:"repeats"`
	Learned        bool       `json:"learned"`
	EtaTenths      int        `json:"eta_tenths"`
}

// AnswerResult reports the spacing an answer produced.
type AnswerResult struct {
	Handle         srs.Handle `json:"handle"`
	SpacingSeconds int64      `json:"spacing_seconds"`
	Simulated      bool       `json:"simulated"`
}

// DayStatRow is the external view of one day-statistics row.
type DayStatRow struct {
	Date         string `json:"date"`
	TimeSpent    int    `json:"time_spent_tenths"`
	Tested       int    `json:"tested"`
	Included     int    `json:"included"`
	Wrong        int    `json:"wrong"`
	Learned      int    `json:"learned"`
	ItemCount    int    `json:"item_count"`
	GroupCount   int    `json:"group_count"`
	LearnedCount int    `json:"learned_count"`
}

// StudyService handles the per-card study business logic
type StudyService interface {
	CreateCard(ctx context.Context, deckID int64, group srs.Handle, userData int64) (srs.Handle, error)
	DeleteCard(ctx context.Context, deckID int64, h srs.Handle) error
	DeleteCardGroup(ctx context.Context, deckID int64, h srs.Handle) error
	MergeGroups(ctx context.Context, deckID int64, a, b srs.Handle) error
	SplitGroup(ctx context.Context, deckID int64, h srs.Handle) error
	StartTestDay(ctx context.Context, deckID int64) (bool, error)
	Answer(ctx context.Context, deckID int64, h srs.Handle, kind srs.AnswerKind, spentTenths int, simulate bool) (*AnswerResult, error)
	Undo(ctx context.Context, deckID int64) error
	ChangeLastAnswer(ctx context.Context, deckID int64, kind srs.AnswerKind) (*AnswerResult, error)
	NextCard(ctx context.Context, deckID int64) (*CardInfo, error)
	CardInfo(ctx context.Context, deckID int64, h srs.Handle) (*CardInfo, error)
	CardByUserData(ctx context.Context, deckID int64, userData int64) (*CardInfo, error)
	IncreaseSpacingLevel(ctx context.Context, deckID int64, h srs.Handle) error
	DecreaseSpacingLevel(ctx context.Context, deckID int64, h srs.Handle) error
	ResetCardStudyData(ctx context.Context, deckID int64, h srs.Handle) error
	TestedToday(ctx context.Context, deckID int64) ([]srs.Handle, error)
	DayStats(ctx context.Context, deckID int64) ([]DayStatRow, error)
	NewCardEta(ctx context.Context, deckID int64) (int, error)
	RebuildDeckStats(ctx context.Context, deckID int64) error
}

type studyService struct {
	engine *Engine
}

// NewStudyService creates a new StudyService
func NewStudyService(engine *Engine) StudyService {
	return &studyService{engine: engine}
}

// deck looks a deck up under the engine mutex, which the caller holds.
func (s *studyService) deck(id int64) (*srs.Deck, error) {
	d, err := s.engine.reg.GetDeck(id)
	if err != nil {
		return nil, errors.NewNotFoundError("deck", id)
	}
	return d, nil
}

func (s *studyService) cardInfo(d *srs.Deck, h srs.Handle) (*CardInfo, error) {
	c, err := d.CardAt(h)
	if err != nil {
		return nil, mapEngineErr(err)
	}
	eta, err := d.CardEta(h)
	if err != nil {
		return nil, mapEngineErr(err)
	}
	return &CardInfo{
		Handle:         h,
		UserData:       c.UserData,
		Level:          c.Level,
		SpacingSeconds: c.Spacing,
		NextTestDate:   time.Unix(c.DueUnix(), 0).UTC(),
		Repeats:        c.Repeats,
		Learned:        c.Learned,
		EtaTenths:      eta,
	}, nil
}

func (s *studyService) CreateCard(ctx context.Context, deckID int64, group srs.Handle, userData int64) (srs.Handle, error) {
	log := logger.FromContext(ctx)
	e := s.engine
	e.mu.Lock()
	defer e.mu.Unlock()

	d, err := s.deck(deckID)
	if err != nil {
		return srs.NoHandle, err
	}
	h, err := d.CreateCard(group, userData)
	if err != nil {
		return srs.NoHandle, mapEngineErr(err)
	}
	log.Debug("card created: deck=%d, handle=%d", deckID, h)
	return h, e.saveDeck(ctx, d)
}

func (s *studyService) DeleteCard(ctx context.Context, deckID int64, h srs.Handle) error {
	e := s.engine
	e.mu.Lock()
	defer e.mu.Unlock()

	d, err := s.deck(deckID)
	if err != nil {
		return err
	}
	if _, err := d.DeleteCard(h); err != nil {
		return mapEngineErr(err)
	}
	return e.saveDeck(ctx, d)
}

func (s *studyService) DeleteCardGroup(ctx context.Context, deckID int64, h srs.Handle) error {
	e := s.engine
	e.mu.Lock()
	defer e.mu.Unlock()

	d, err := s.deck(deckID)
	if err != nil {
		return err
	}
	if err := d.DeleteCardGroup(h); err != nil {
		return mapEngineErr(err)
	}
	return e.saveDeck(ctx, d)
}

func (s *studyService) MergeGroups(ctx context.Context, deckID int64, a, b srs.Handle) error {
	e := s.engine
	e.mu.Lock()
	defer e.mu.Unlock()

	d, err := s.deck(deckID)
	if err != nil {
		return err
	}
	if err := d.MergeGroups(a, b); err != nil {
		return mapEngineErr(err)
	}
	return e.saveDeck(ctx, d)
}

func (s *studyService) SplitGroup(ctx context.Context, deckID int64, h srs.Handle) error {
	e := s.engine
	e.mu.Lock()
	defer e.mu.Unlock()

	d, err := s.deck(deckID)
	if err != nil {
		return err
	}
	if err := d.SplitGroup(h); err != nil {
		return mapEngineErr(err)
	}
	return e.saveDeck(ctx, d)
}

func (s *studyService) StartTestDay(ctx context.Context, deckID int64) (bool, error) {
	log := logger.FromContext(ctx)
	e := s.engine
	e.mu.Lock()
	defer e.mu.Unlock()

	d, err := s.deck(deckID)
	if err != nil {
		return false, err
	}
	started := d.StartTestDay()
	if !started {
		log.Debug("test day already open: deck=%d", deckID)
		return false, nil
	}
	log.Info("test day started: deck=%d", deckID)
	return true, e.saveDeck(ctx, d)
}

func (s *studyService) Answer(ctx context.Context, deckID int64, h srs.Handle, kind srs.AnswerKind, spentTenths int, simulate bool) (*AnswerResult, error) {
	log := logger.FromContext(ctx)
	e := s.engine
	e.mu.Lock()
	defer e.mu.Unlock()

	d, err := s.deck(deckID)
	if err != nil {
		return nil, err
	}

	if simulate {
		spacing, err := d.PredictSpacing(h, kind)
		if err != nil {
			return nil, mapEngineErr(err)
		}
		return &AnswerResult{Handle: h, SpacingSeconds: spacing, Simulated: true}, nil
	}

	spacing, err := d.Answer(h, kind, spentTenths)
	if err != nil {
		return nil, mapEngineErr(err)
	}
	log.Debug("answer committed: deck=%d, handle=%d, kind=%s, spacing=%d", deckID, h, kind, spacing)

	if e.prefetch {
		d.StartPrefetch()
	}
	if err := e.saveDeck(ctx, d); err != nil {
		return nil, err
	}
	return &AnswerResult{Handle: h, SpacingSeconds: spacing}, nil
}

func (s *studyService) Undo(ctx context.Context, deckID int64) error {
	e := s.engine
	e.mu.Lock()
	defer e.mu.Unlock()

	d, err := s.deck(deckID)
	if err != nil {
		return err
	}
	if err := d.RevertUndo(); err != nil {
		return mapEngineErr(err)
	}
	return e.saveDeck(ctx, d)
}

func (s *studyService) ChangeLastAnswer(ctx context.Context, deckID int64, kind srs.AnswerKind) (*AnswerResult, error) {
	e := s.engine
	e.mu.Lock()
	defer e.mu.Unlock()

	d, err := s.deck(deckID)
	if err != nil {
		return nil, err
	}
	spacing, err := d.ChangeLastAnswer(kind)
	if err != nil {
		return nil, mapEngineErr(err)
	}
	if err := e.saveDeck(ctx, d); err != nil {
		return nil, err
	}
	return &AnswerResult{SpacingSeconds: spacing}, nil
}

func (s *studyService) NextCard(ctx context.Context, deckID int64) (*CardInfo, error) {
	e := s.engine
	e.mu.Lock()
	defer e.mu.Unlock()

	d, err := s.deck(deckID)
	if err != nil {
		return nil, err
	}
	h, ok := d.NextCard()
	if !ok {
		return nil, nil
	}
	return s.cardInfo(d, h)
}

func (s *studyService) CardInfo(ctx context.Context, deckID int64, h srs.Handle) (*CardInfo, error) {
	e := s.engine
	e.mu.Lock()
	defer e.mu.Unlock()

	d, err := s.deck(deckID)
	if err != nil {
		return nil, err
	}
	return s.cardInfo(d, h)
}

func (s *studyService) CardByUserData(ctx context.Context, deckID int64, userData int64) (*CardInfo, error) {
	e := s.engine
	e.mu.Lock()
	defer e.mu.Unlock()

	d, err := s.deck(deckID)
	if err != nil {
		return nil, err
	}
	h := d.CardByUserData(userData)
	if h == srs.NoHandle {
		return nil, errors.NewNotFoundError("card", userData)
	}
	return s.cardInfo(d, h)
}

func (s *studyService) IncreaseSpacingLevel(ctx context.Context, deckID int64, h srs.Handle) error {
	e := s.engine
	e.mu.Lock()
	defer e.mu.Unlock()

	d, err := s.deck(deckID)
	if err != nil {
		return err
	}
	if err := d.IncreaseSpacingLevel(h); err != nil {
		return mapEngineErr(err)
	}
	return e.saveDeck(ctx, d)
}

func (s *studyService) DecreaseSpacingLevel(ctx context.Context, deckID int64, h srs.Handle) error {
	e := s.engine
	e.mu.Lock()
	defer e.mu.Unlock()

	d, err := s.deck(deckID)
	if err != nil {
		return err
	}
	if err := d.DecreaseSpacingLevel(h); err != nil {
		return mapEngineErr(err)
	}
	return e.saveDeck(ctx, d)
}

func (s *studyService) ResetCardStudyData(ctx context.Context, deckID int64, h srs.Handle) error {
	e := s.engine
	e.mu.Lock()
	defer e.mu.Unlock()

	d, err := s.deck(deckID)
	if err != nil {
		return err
	}
	if err := d.ResetCardStudyData(h); err != nil {
		return mapEngineErr(err)
	}
	return e.saveDeck(ctx, d)
}

func (s *studyService) TestedToday(ctx context.Context, deckID int64) ([]srs.Handle, error) {
	e := s.engine
	e.mu.Lock()
	defer e.mu.Unlock()

	d, err := s.deck(deckID)
	if err != nil {
		return nil, err
	}
	return d.TestedToday(), nil
}

func (s *studyService) DayStats(ctx context.Context, deckID int64) ([]DayStatRow, error) {
	e := s.engine
	e.mu.Lock()
	defer e.mu.Unlock()

	d, err := s.deck(deckID)
	if err != nil {
		return nil, err
	}
	rows := d.Days().Rows()
	out := make([]DayStatRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, DayStatRow{
			Date:         r.Day.Time().Format("2006-01-02"),
			TimeSpent:    r.TimeSpent,
			Tested:       r.Tested,
			Included:     r.Included,
			Wrong:        r.Wrong,
			Learned:      r.Learned,
			ItemCount:    r.ItemCount,
			GroupCount:   r.GroupCount,
			LearnedCount: r.LearnedCount,
		})
	}
	return out, nil
}

func (s *studyService) NewCardEta(ctx context.Context, deckID int64) (int, error) {
	e := s.engine
	e.mu.Lock()
	defer e.mu.Unlock()

	d, err := s.deck(deckID)
	if err != nil {
		return 0, err
	}
	return d.NewCardEta(), nil
}

// RebuildDeckStats replays the deck's recorded test history through the
// day-statistics aggregator. Runs on the worker pool.
func (s *studyService) RebuildDeckStats(ctx context.Context, deckID int64) error {
	log := logger.FromContext(ctx)
	e := s.engine
	e.mu.Lock()
	defer e.mu.Unlock()

	d, err := s.deck(deckID)
	if err != nil {
		return err
	}
	d.RebuildDayStats(d.DayStatEvents())
	log.Info("day statistics rebuilt: deck=%d, rows=%d", deckID, d.Days().Len())
	return e.saveDeck(ctx, d)
}
