package services_test

import (
	"context"
	"testing"

	apperrors "github.com/mnarita/kioku/internal/errors"
	"github.com/mnarita/kioku/internal/services"
	"github.com/mnarita/kioku/internal/srs"
	"github.com/mnarita/kioku/internal/testutil/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// studyEnv wires a study service over mocked repositories with autosave
// off, plus one deck ready for cards.
func studyEnv(t *testing.T) (services.StudyService, int64) {
	t.Helper()
	deckRepo := new(mocks.MockDeckRepository)
	profileRepo := new(mocks.MockProfileRepository)
	deckRepo.On("Insert", mock.Anything, mock.Anything, mock.Anything).Return(int64(1), nil)
	deckRepo.On("Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	engine := services.NewEngine(deckRepo, profileRepo, false, false)
	deckSvc := services.NewDeckService(engine, new(mocks.MockJobQueue))
	_, err := deckSvc.CreateDeck(context.Background(), "vocab")
	require.NoError(t, err)
	return services.NewStudyService(engine), 1
}

func TestCreateCardAndLookup(t *testing.T) {
	svc, deckID := studyEnv(t)
	ctx := context.Background()

	eta, err := svc.NewCardEta(ctx, deckID)
	require.NoError(t, err)
	assert.Equal(t, 1800, eta)

	h, err := svc.CreateCard(ctx, deckID, srs.NoHandle, 42)
	require.NoError(t, err)
	assert.Equal(t, srs.Handle(0), h)

	info, err := svc.CardInfo(ctx, deckID, h)
	require.NoError(t, err)
	assert.Equal(t, int64(42), info.UserData)
	assert.Equal(t, 0, info.Level)
	assert.Equal(t, 1800, info.EtaTenths)

	info, err = svc.CardByUserData(ctx, deckID, 42)
	require.NoError(t, err)
	assert.Equal(t, h, info.Handle)

	_, err = svc.CardByUserData(ctx, deckID, 99)
	assertCode(t, err, apperrors.ErrCodeNotFound)

	_, err = svc.CreateCard(ctx, 77, srs.NoHandle, 1)
	assertCode(t, err, apperrors.ErrCodeNotFound)
}

func TestAnswerFlow(t *testing.T) {
	svc, deckID := studyEnv(t)
	ctx := context.Background()

	h, err := svc.CreateCard(ctx, deckID, srs.NoHandle, 1)
	require.NoError(t, err)

	// Answering before the day opens is rejected.
	_, err = svc.Answer(ctx, deckID, h, srs.AnswerCorrect, 50, false)
	assertCode(t, err, apperrors.ErrCodeConflict)

	started, err := svc.StartTestDay(ctx, deckID)
	require.NoError(t, err)
	assert.True(t, started)
	started, err = svc.StartTestDay(ctx, deckID)
	require.NoError(t, err)
	assert.False(t, started, "same day is a no-op")

	// A simulated answer previews the spacing without committing.
	res, err := svc.Answer(ctx, deckID, h, srs.AnswerCorrect, 50, true)
	require.NoError(t, err)
	assert.True(t, res.Simulated)
	assert.Equal(t, int64(srs.DaySeconds), res.SpacingSeconds)
	info, err := svc.CardInfo(ctx, deckID, h)
	require.NoError(t, err)
	assert.Equal(t, 0, info.Repeats)

	res, err = svc.Answer(ctx, deckID, h, srs.AnswerCorrect, 50, false)
	require.NoError(t, err)
	assert.False(t, res.Simulated)
	assert.Equal(t, int64(srs.DaySeconds), res.SpacingSeconds)

	info, err = svc.CardInfo(ctx, deckID, h)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Level)
	assert.Equal(t, 1, info.Repeats)

	tested, err := svc.TestedToday(ctx, deckID)
	require.NoError(t, err)
	assert.Equal(t, []srs.Handle{h}, tested)

	require.NoError(t, svc.Undo(ctx, deckID))
	info, err = svc.CardInfo(ctx, deckID, h)
	require.NoError(t, err)
	assert.Equal(t, 0, info.Level)

	assertCode(t, svc.Undo(ctx, deckID), apperrors.ErrCodeConflict)
}

func TestAnswer_InvalidKind(t *testing.T) {
	svc, deckID := studyEnv(t)
	ctx := context.Background()

	h, err := svc.CreateCard(ctx, deckID, srs.NoHandle, 1)
	require.NoError(t, err)
	_, err = svc.StartTestDay(ctx, deckID)
	require.NoError(t, err)

	_, err = svc.Answer(ctx, deckID, h, srs.AnswerKind(9), 50, false)
	assertCode(t, err, apperrors.ErrCodeValidation)

	_, err = svc.Answer(ctx, 99, h, srs.AnswerCorrect, 50, false)
	assertCode(t, err, apperrors.ErrCodeNotFound)
}

func TestChangeLastAnswer(t *testing.T) {
	svc, deckID := studyEnv(t)
	ctx := context.Background()

	h, err := svc.CreateCard(ctx, deckID, srs.NoHandle, 1)
	require.NoError(t, err)
	_, err = svc.StartTestDay(ctx, deckID)
	require.NoError(t, err)

	_, err = svc.ChangeLastAnswer(ctx, deckID, srs.AnswerEasy)
	assertCode(t, err, apperrors.ErrCodeConflict)

	_, err = svc.Answer(ctx, deckID, h, srs.AnswerCorrect, 50, false)
	require.NoError(t, err)

	res, err := svc.ChangeLastAnswer(ctx, deckID, srs.AnswerEasy)
	require.NoError(t, err)
	assert.Equal(t, int64(3*srs.DaySeconds), res.SpacingSeconds)
}

func TestNextCard(t *testing.T) {
	svc, deckID := studyEnv(t)
	ctx := context.Background()

	// No test day open: nothing to present, not an error.
	info, err := svc.NextCard(ctx, deckID)
	require.NoError(t, err)
	assert.Nil(t, info)

	h, err := svc.CreateCard(ctx, deckID, srs.NoHandle, 7)
	require.NoError(t, err)
	_, err = svc.StartTestDay(ctx, deckID)
	require.NoError(t, err)

	info, err = svc.NextCard(ctx, deckID)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, h, info.Handle)
	assert.Equal(t, int64(7), info.UserData)
}

func TestGroupOperations(t *testing.T) {
	svc, deckID := studyEnv(t)
	ctx := context.Background()

	a, err := svc.CreateCard(ctx, deckID, srs.NoHandle, 1)
	require.NoError(t, err)
	b, err := svc.CreateCard(ctx, deckID, a, 2)
	require.NoError(t, err)

	require.NoError(t, svc.SplitGroup(ctx, deckID, b))
	require.NoError(t, svc.MergeGroups(ctx, deckID, a, b))

	require.NoError(t, svc.DeleteCardGroup(ctx, deckID, a))
	_, err = svc.CardInfo(ctx, deckID, 0)
	assertCode(t, err, apperrors.ErrCodeNotFound)
}

func TestLevelAdjustmentsAndReset(t *testing.T) {
	svc, deckID := studyEnv(t)
	ctx := context.Background()

	h, err := svc.CreateCard(ctx, deckID, srs.NoHandle, 1)
	require.NoError(t, err)

	// Untested cards cannot be adjusted.
	assertCode(t, svc.IncreaseSpacingLevel(ctx, deckID, h), apperrors.ErrCodeNotFound)

	_, err = svc.StartTestDay(ctx, deckID)
	require.NoError(t, err)
	_, err = svc.Answer(ctx, deckID, h, srs.AnswerCorrect, 50, false)
	require.NoError(t, err)

	require.NoError(t, svc.IncreaseSpacingLevel(ctx, deckID, h))
	info, err := svc.CardInfo(ctx, deckID, h)
	require.NoError(t, err)
	assert.Equal(t, 2, info.Level)

	require.NoError(t, svc.DecreaseSpacingLevel(ctx, deckID, h))
	info, err = svc.CardInfo(ctx, deckID, h)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Level)

	require.NoError(t, svc.ResetCardStudyData(ctx, deckID, h))
	info, err = svc.CardInfo(ctx, deckID, h)
	require.NoError(t, err)
	assert.Equal(t, 0, info.Level)
}

func TestDayStatsAndRebuild(t *testing.T) {
	svc, deckID := studyEnv(t)
	ctx := context.Background()

	h, err := svc.CreateCard(ctx, deckID, srs.NoHandle, 1)
	require.NoError(t, err)
	_, err = svc.StartTestDay(ctx, deckID)
	require.NoError(t, err)
	_, err = svc.Answer(ctx, deckID, h, srs.AnswerCorrect, 50, false)
	require.NoError(t, err)

	rows, err := svc.DayStats(ctx, deckID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].Tested)
	assert.Equal(t, 1, rows[0].Included)
	assert.Equal(t, 50, rows[0].TimeSpent)

	require.NoError(t, svc.RebuildDeckStats(ctx, deckID))
	rebuilt, err := svc.DayStats(ctx, deckID)
	require.NoError(t, err)
	assert.Equal(t, rows, rebuilt)

	assertCode(t, svc.RebuildDeckStats(ctx, 99), apperrors.ErrCodeNotFound)
}

func TestDeleteCard(t *testing.T) {
	svc, deckID := studyEnv(t)
	ctx := context.Background()

	h, err := svc.CreateCard(ctx, deckID, srs.NoHandle, 1)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteCard(ctx, deckID, h))
	assertCode(t, svc.DeleteCard(ctx, deckID, h), apperrors.ErrCodeNotFound)
}
