package mastery

import (
	"context"
	"sort"
	"time"

	"github.com/sbs-helper/certification-backend/internal/models"
	"github.com/sbs-helper/certification-backend/internal/settings"
)

// Storage is the category-result persistence behind the tracker.
// Implemented by *Store; tests substitute a fake.
type Storage interface {
	GetResults(ctx context.Context, userID int64) ([]models.CategoryResult, error)
	RecordPass(ctx context.Context, userID, categoryID int64, scorePercent float64, now time.Time, validity time.Duration) (bool, error)
	CountActiveCategories(ctx context.Context) (int, error)
	ActiveCategories(ctx context.Context) ([]models.Category, error)
}

type Service struct {
	store    Storage
	settings *settings.Provider
}

func NewService(store Storage, provider *settings.Provider) *Service {
	return &Service{store: store, settings: provider}
}

// RecordPass stores a passing category score under the configured validity
// window. Called by the assessment service when a category-scoped attempt
// completes with a passing score.
func (s *Service) RecordPass(ctx context.Context, userID, categoryID int64, scorePercent float64, now time.Time) (bool, error) {
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return false, err
	}
	return s.store.RecordPass(ctx, userID, categoryID, scorePercent, now, cfg.ValidityWindow)
}

// ProfileSummary runs the full read path: tracker standings, point
// aggregation, progress bar and rank resolution against the ladder
// materialized for the current category set.
func (s *Service) ProfileSummary(ctx context.Context, userID int64, now time.Time) (*models.ProfileSummaryResponse, error) {
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	fractions, err := s.settings.Ladder(ctx)
	if err != nil {
		return nil, err
	}

	results, err := s.store.GetResults(ctx, userID)
	if err != nil {
		return nil, err
	}
	standings := EvaluateResults(results, now, cfg.ValidityWindow, cfg.WarningWindow)

	activeCategories, err := s.store.CountActiveCategories(ctx)
	if err != nil {
		return nil, err
	}
	maxPoints := activeCategories * 100

	points := AggregatePoints(standings)
	percent := OverallPercent(points, maxPoints)

	resp := &models.ProfileSummaryResponse{
		CertificationPoints: points,
		MaxAchievablePoints: maxPoints,
		ProgressPercent:     percent,
		ProgressBar:         ProgressBar(percent),
	}

	for id, standing := range standings {
		switch {
		case standing.ValidPass && standing.ExpiringSoon:
			resp.PassedCategories++
			resp.ExpiringSoon = append(resp.ExpiringSoon, id)
		case standing.ValidPass:
			resp.PassedCategories++
		default:
			resp.Expired = append(resp.Expired, id)
		}
	}
	sort.Slice(resp.ExpiringSoon, func(i, j int) bool { return resp.ExpiringSoon[i] < resp.ExpiringSoon[j] })
	sort.Slice(resp.Expired, func(i, j int) bool { return resp.Expired[i] < resp.Expired[j] })

	if maxPoints > 0 {
		ladder := MaterializeLadder(fractions, maxPoints)
		current, next, toNext, err := ResolveRank(points, ladder)
		if err != nil {
			return nil, err
		}
		resp.RankName = current.Name
		resp.RankIcon = current.Icon
		if next != nil {
			resp.NextRankName = next.Name
			resp.NextRankIcon = next.Icon
			resp.PointsToNextRank = toNext
		}
	} else if len(fractions) > 0 {
		// No active categories: everyone sits on the ladder's base rank.
		resp.RankName = fractions[0].Name
		resp.RankIcon = fractions[0].Icon
	}

	return resp, nil
}

// CategoryStandings lists every active category with the user's standing in
// it, for the per-category view behind the profile.
func (s *Service) CategoryStandings(ctx context.Context, userID int64, now time.Time) (*models.CategoryStandingsResponse, error) {
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	categories, err := s.store.ActiveCategories(ctx)
	if err != nil {
		return nil, err
	}
	results, err := s.store.GetResults(ctx, userID)
	if err != nil {
		return nil, err
	}
	standings := EvaluateResults(results, now, cfg.ValidityWindow, cfg.WarningWindow)

	resp := &models.CategoryStandingsResponse{}
	for _, c := range categories {
		entry := models.CategoryStandingEntry{
			CategoryID:   c.ID,
			CategoryName: c.Name,
		}
		if standing, ok := standings[c.ID]; ok {
			entry.ValidPass = standing.ValidPass
			entry.ExpiringSoon = standing.ExpiringSoon
			entry.BestScore = standing.BestScore
			lastPassed := standing.LastPassedAt
			entry.LastPassedAt = &lastPassed
			if standing.ValidPass {
				validUntil := standing.LastPassedAt.Add(cfg.ValidityWindow)
				entry.ValidUntil = &validUntil
			}
		}
		resp.Categories = append(resp.Categories, entry)
	}
	return resp, nil
}
