package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/mnarita/kioku/internal/logger"
	"github.com/mnarita/kioku/internal/models"
	"github.com/mnarita/kioku/internal/repository"
)

type deckRepository struct {
	db *sql.DB
}

// NewDeckRepository creates a new DeckRepository implementation
func NewDeckRepository(db *sql.DB) repository.DeckRepository {
	return &deckRepository{db: db}
}

func (r *deckRepository) Get(ctx context.Context, id int64) (*models.DeckRecord, error) {
	log := logger.FromContext(ctx).WithPrefix("deck_repo")
	log.Debug("getting deck: id=%d", id)

	var d models.DeckRecord
	err := r.db.QueryRowContext(ctx, `
SELECT id, name, payload, created_at, updated_at
FROM decks
WHERE id = ?
`, id).Scan(&d.ID, &d.Name, &d.Payload, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("deck not found: id=%d", id)
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get deck: %v", err)
		return nil, err
	}
	return &d, nil
}

func (r *deckRepository) List(ctx context.Context, filter models.DeckFilter) ([]models.DeckRecord, error) {
	log := logger.FromContext(ctx).WithPrefix("deck_repo")
	log.Debug("listing decks: name=%s", filter.Name)

	query := sqlBuilder.Select("id", "name", "payload", "created_at", "updated_at").From("decks")

	if filter.Name != "" {
		query = query.Where(squirrel.Eq{"name": filter.Name})
	}

	// Safe ORDER BY with validation
	orderBy := "created_at"
	if filter.OrderBy == "name" {
		orderBy = "name"
	}
	orderDir := "ASC"
	if filter.OrderDir == "DESC" {
		orderDir = "DESC"
	}
	query = query.OrderBy(orderBy + " " + orderDir)

	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		query = query.Offset(uint64(filter.Offset))
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		log.Error("failed to list decks: %v", err)
		return nil, err
	}
	defer rows.Close()

	var decks []models.DeckRecord
	for rows.Next() {
		var d models.DeckRecord
		if err := rows.Scan(&d.ID, &d.Name, &d.Payload, &d.CreatedAt, &d.UpdatedAt); err != nil {
			log.Error("failed to scan deck row: %v", err)
			return nil, err
		}
		decks = append(decks, d)
	}

	log.Debug("found %d decks", len(decks))
	return decks, rows.Err()
}

func (r *deckRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM decks`).Scan(&n)
	return n, err
}

func (r *deckRepository) Insert(ctx context.Context, name string, payload []byte) (int64, error) {
	log := logger.FromContext(ctx).WithPrefix("deck_repo")
	log.Debug("inserting deck: name=%s, payload=%d bytes", name, len(payload))

	res, err := r.db.ExecContext(ctx, `
INSERT INTO decks (name, payload)
VALUES (?, ?)
`, name, payload)
	if err != nil {
		log.Error("failed to insert deck: %v", err)
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	log.Debug("deck inserted: id=%d", id)
	return id, nil
}

func (r *deckRepository) Update(ctx context.Context, id int64, name string, payload []byte) error {
	log := logger.FromContext(ctx).WithPrefix("deck_repo")
	log.Debug("updating deck: id=%d, payload=%d bytes", id, len(payload))

	res, err := r.db.ExecContext(ctx, `
UPDATE decks
SET name = ?, payload = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`, name, payload, id)
	if err != nil {
		log.Error("failed to update deck: %v", err)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *deckRepository) Delete(ctx context.Context, id int64) error {
	log := logger.FromContext(ctx).WithPrefix("deck_repo")
	log.Debug("deleting deck: id=%d", id)

	return tx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM decks WHERE id = ?`, id); err != nil {
			log.Error("failed to delete deck %d: %v", id, err)
			return err
		}
		return nil
	})
}
