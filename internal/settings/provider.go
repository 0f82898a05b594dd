package settings

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/sbs-helper/certification-backend/internal/models"
)

// Settings are the runtime-tunable knobs of the certification module.
type Settings struct {
	QuestionsCount      int
	TimeLimit           time.Duration
	PassingScorePercent int
	ValidityWindow      time.Duration
	WarningWindow       time.Duration
	ShowCorrectAnswer   bool
}

// Defaults mirror the seeded database values and cover missing keys.
var Defaults = Settings{
	QuestionsCount:      20,
	TimeLimit:           15 * time.Minute,
	PassingScorePercent: 80,
	ValidityWindow:      30 * 24 * time.Hour,
	WarningWindow:       7 * 24 * time.Hour,
	ShowCorrectAnswer:   true,
}

// DefaultLadder is the compiled-in rank ladder, used when the ranks table is
// empty. Thresholds are fractions of the maximum achievable points.
var DefaultLadder = []models.RankFraction{
	{Name: "Новичок", Icon: "🔰", MinFraction: 0},
	{Name: "Практик", Icon: "📘", MinFraction: 0.16},
	{Name: "Специалист", Icon: "⭐", MinFraction: 0.36},
	{Name: "Мастер аттестации", Icon: "🏅", MinFraction: 0.9},
	{Name: "Абсолют", Icon: "👑", MinFraction: 1},
}

// Loader reads the raw configuration state. The production loader queries
// the settings and ranks tables; tests substitute a fake.
type Loader interface {
	LoadSettings(ctx context.Context) (map[string]string, error)
	LoadLadder(ctx context.Context) ([]models.RankFraction, error)
}

// Provider serves settings and the rank ladder through a bounded-TTL
// read-through cache. It is injected into every component that needs
// configuration; there is no package-level state.
type Provider struct {
	loader Loader
	ttl    time.Duration
	now    func() time.Time

	mu        sync.Mutex
	settings  Settings
	ladder    []models.RankFraction
	expiresAt time.Time
}

func NewProvider(loader Loader, ttl time.Duration) *Provider {
	return &Provider{
		loader: loader,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (p *Provider) Get(ctx context.Context) (Settings, error) {
	if err := p.refresh(ctx); err != nil {
		return Settings{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settings, nil
}

func (p *Provider) Ladder(ctx context.Context) ([]models.RankFraction, error) {
	if err := p.refresh(ctx); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.RankFraction, len(p.ladder))
	copy(out, p.ladder)
	return out, nil
}

// Invalidate drops the cache so the next read hits the loader. Admin
// surfaces call this after writing settings.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.expiresAt = time.Time{}
	p.mu.Unlock()
}

func (p *Provider) refresh(ctx context.Context) error {
	p.mu.Lock()
	fresh := !p.expiresAt.IsZero() && p.now().Before(p.expiresAt)
	p.mu.Unlock()
	if fresh {
		return nil
	}

	raw, err := p.loader.LoadSettings(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	ladder, err := p.loader.LoadLadder(ctx)
	if err != nil {
		return fmt.Errorf("load ladder: %w", err)
	}
	if len(ladder) == 0 {
		ladder = DefaultLadder
	}

	parsed := parseSettings(raw)

	p.mu.Lock()
	p.settings = parsed
	p.ladder = ladder
	p.expiresAt = p.now().Add(p.ttl)
	p.mu.Unlock()
	return nil
}

func parseSettings(raw map[string]string) Settings {
	s := Defaults
	s.QuestionsCount = intSetting(raw, "questions_count", s.QuestionsCount)
	s.PassingScorePercent = intSetting(raw, "passing_score_percent", s.PassingScorePercent)
	s.TimeLimit = time.Duration(intSetting(raw, "time_limit_minutes", int(s.TimeLimit/time.Minute))) * time.Minute
	s.ValidityWindow = time.Duration(intSetting(raw, "validity_days", int(s.ValidityWindow/(24*time.Hour)))) * 24 * time.Hour
	s.WarningWindow = time.Duration(intSetting(raw, "warning_days", int(s.WarningWindow/(24*time.Hour)))) * 24 * time.Hour
	if v, ok := raw["show_correct_answer"]; ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Printf("settings: invalid show_correct_answer %q, keeping default", v)
		} else {
			s.ShowCorrectAnswer = b
		}
	}
	return s
}

func intSetting(raw map[string]string, key string, fallback int) int {
	v, ok := raw[key]
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("settings: invalid %s %q, keeping default %d", key, v, fallback)
		return fallback
	}
	return n
}
