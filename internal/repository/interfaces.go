package repository

import (
	"context"

	"github.com/mnarita/kioku/internal/models"
)

// DeckRepository handles persisted deck payloads
type DeckRepository interface {
	Get(ctx context.Context, id int64) (*models.DeckRecord, error)
	List(ctx context.Context, filter models.DeckFilter) ([]models.DeckRecord, error)
	Count(ctx context.Context) (int, error)
	Insert(ctx context.Context, name string, payload []byte) (int64, error)
	Update(ctx context.Context, id int64, name string, payload []byte) error
	Delete(ctx context.Context, id int64) error
}

// ProfileRepository handles the single student profile payload
type ProfileRepository interface {
	Load(ctx context.Context) (*models.ProfileRecord, error)
	Save(ctx context.Context, payload []byte) error
}
