package engagement

import (
	"context"
	"time"

	"github.com/knightly-chess/knightly/internal/app/progress"
	"github.com/knightly-chess/knightly/internal/app/scoring"
	"github.com/knightly-chess/knightly/internal/domain"
)

// BadgeStatus pairs a badge definition with its earned state.
type BadgeStatus struct {
	domain.BadgeDef
	Earned   bool       `json:"earned"`
	EarnedAt *time.Time `json:"earnedAt,omitempty"`
}

// AchievementService reports the streak badge collection.
type AchievementService struct {
	store *progress.Store
}

// NewAchievementService creates an achievement service.
func NewAchievementService(store *progress.Store) *AchievementService {
	return &AchievementService{store: store}
}

// Collection lists every badge with its earned state, in milestone order.
func (a *AchievementService) Collection(ctx context.Context) ([]BadgeStatus, error) {
	p, err := a.store.Profile(ctx)
	if err != nil {
		return nil, err
	}
	earned := make(map[string]domain.EarnedBadge, len(p.Badges))
	for _, b := range p.Badges {
		earned[b.ID] = b
	}

	defs := scoring.Badges()
	out := make([]BadgeStatus, 0, len(defs))
	for _, d := range defs {
		st := BadgeStatus{BadgeDef: d}
		if e, ok := earned[d.ID]; ok {
			at := e.EarnedAt
			st.Earned = true
			st.EarnedAt = &at
		}
		out = append(out, st)
	}
	return out, nil
}

// NextMilestone returns the next badge to earn and the days still missing.
// ok is false once every badge is earned.
func (a *AchievementService) NextMilestone(ctx context.Context) (def domain.BadgeDef, remaining int, ok bool, err error) {
	p, err := a.store.Profile(ctx)
	if err != nil {
		return domain.BadgeDef{}, 0, false, err
	}
	for _, d := range scoring.Badges() {
		if !p.HasBadge(d.ID) && d.Milestone > p.StreakCount {
			return d, d.Milestone - p.StreakCount, true, nil
		}
	}
	return domain.BadgeDef{}, 0, false, nil
}
