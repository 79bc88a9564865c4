package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"moonbag/internal/game"
)

// Store persists one JSONB state blob per profile. The simulation treats it
// as plain get/put and never reaches into the blob server-side.
type Store struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS saved_games (
			profile_id TEXT PRIMARY KEY,
			state      JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Load returns (nil, nil) when no save exists for the profile.
func (s *Store) Load(ctx context.Context, profileID string) (*game.SavedGame, error) {
	var (
		state     []byte
		updatedAt time.Time
	)
	err := s.db.QueryRow(ctx,
		`SELECT state, updated_at FROM saved_games WHERE profile_id = $1`,
		profileID,
	).Scan(&state, &updatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load game %s: %w", profileID, err)
	}
	return &game.SavedGame{
		ProfileID: profileID,
		State:     state,
		UpdatedAt: updatedAt,
	}, nil
}

func (s *Store) Save(ctx context.Context, profileID string, state []byte) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO saved_games (profile_id, state, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (profile_id)
		DO UPDATE SET state = EXCLUDED.state, updated_at = now()`,
		profileID, state,
	)
	if err != nil {
		return fmt.Errorf("save game %s: %w", profileID, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, profileID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM saved_games WHERE profile_id = $1`, profileID)
	if err != nil {
		return fmt.Errorf("delete game %s: %w", profileID, err)
	}
	return nil
}
