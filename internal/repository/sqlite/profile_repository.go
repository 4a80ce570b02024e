package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mnarita/kioku/internal/logger"
	"github.com/mnarita/kioku/internal/models"
	"github.com/mnarita/kioku/internal/repository"
)

type profileRepository struct {
	db *sql.DB
}

// NewProfileRepository creates a new ProfileRepository implementation
func NewProfileRepository(db *sql.DB) repository.ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Load(ctx context.Context) (*models.ProfileRecord, error) {
	log := logger.FromContext(ctx).WithPrefix("profile_repo")
	log.Debug("loading student profile")

	var p models.ProfileRecord
	err := r.db.QueryRowContext(ctx, `
SELECT payload, updated_at
FROM student_profile
WHERE id = 1
`).Scan(&p.Payload, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("no stored profile yet")
		return nil, nil
	}
	if err != nil {
		log.Error("failed to load profile: %v", err)
		return nil, err
	}
	return &p, nil
}

func (r *profileRepository) Save(ctx context.Context, payload []byte) error {
	log := logger.FromContext(ctx).WithPrefix("profile_repo")
	log.Debug("saving student profile: %d bytes", len(payload))

	_, err := r.db.ExecContext(ctx, `
INSERT INTO student_profile (id, payload)
VALUES (1, ?)
ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, updated_at = CURRENT_TIMESTAMP
`, payload)
	if err != nil {
		log.Error("failed to save profile: %v", err)
	}
	return err
}
