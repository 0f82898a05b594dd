package settings

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sbs-helper/certification-backend/internal/models"
)

// Store is the database-backed Loader, plus the write side used by admin
// tooling.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) LoadSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM certification_settings`)
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		out[key] = value
	}
	return out, rows.Err()
}

func (s *Store) LoadLadder(ctx context.Context) ([]models.RankFraction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, icon, min_fraction
		 FROM certification_ranks
		 ORDER BY position`,
	)
	if err != nil {
		return nil, fmt.Errorf("query ranks: %w", err)
	}
	defer rows.Close()

	var ladder []models.RankFraction
	for rows.Next() {
		var r models.RankFraction
		if err := rows.Scan(&r.Name, &r.Icon, &r.MinFraction); err != nil {
			return nil, fmt.Errorf("scan rank: %w", err)
		}
		ladder = append(ladder, r)
	}
	return ladder, rows.Err()
}

func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO certification_settings (key, value, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key, value, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}
