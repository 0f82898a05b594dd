package mastery

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sbs-helper/certification-backend/internal/models"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetResults(ctx context.Context, userID int64) ([]models.CategoryResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.userid, r.category_id, r.best_score_percent, r.last_passed_at, r.updated_at
		 FROM certification_category_results r
		 JOIN certification_categories c ON c.id = r.category_id
		 WHERE r.userid = $1 AND c.active`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("get category results: %w", err)
	}
	defer rows.Close()

	var results []models.CategoryResult
	for rows.Next() {
		var r models.CategoryResult
		if err := rows.Scan(&r.UserID, &r.CategoryID, &r.BestScorePercent, &r.LastPassedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan category result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// RecordPass upserts a passing score in a single atomic statement, so two
// attempts finishing concurrently cannot race each other into a stale best.
// Within the current validity window the stored best is monotonically
// non-decreasing (GREATEST); a pass after the window lapsed starts a fresh
// window with the new score instead of blending with the stale best. A
// concurrent equal-or-better write makes this a no-op success.
//
// Returns whether the submitted score is now the stored window best.
func (s *Store) RecordPass(ctx context.Context, userID, categoryID int64, scorePercent float64, now time.Time, validity time.Duration) (bool, error) {
	var storedBest float64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO certification_category_results
		     (userid, category_id, best_score_percent, last_passed_at, updated_at)
		 VALUES ($1, $2, $3, $4, $4)
		 ON CONFLICT (userid, category_id) DO UPDATE SET
		     best_score_percent = CASE
		         WHEN certification_category_results.last_passed_at < $4 - make_interval(secs => $5)
		             THEN EXCLUDED.best_score_percent
		         ELSE GREATEST(certification_category_results.best_score_percent, EXCLUDED.best_score_percent)
		     END,
		     last_passed_at = GREATEST(certification_category_results.last_passed_at, EXCLUDED.last_passed_at),
		     updated_at = EXCLUDED.updated_at
		 RETURNING best_score_percent`,
		userID, categoryID, scorePercent, now, validity.Seconds(),
	).Scan(&storedBest)
	if err != nil {
		return false, fmt.Errorf("record pass: %w", err)
	}
	return storedBest <= scorePercent+0.001, nil
}

func (s *Store) CountActiveCategories(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM certification_categories WHERE active`,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	return n, nil
}

func (s *Store) ActiveCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, COALESCE(description, ''), display_order, active, created_at
		 FROM certification_categories
		 WHERE active
		 ORDER BY display_order, name`,
	)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.DisplayOrder, &c.Active, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
