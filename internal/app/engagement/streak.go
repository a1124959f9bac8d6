// Package engagement records play sessions against the daily streak and
// awards the milestone badges that come with it.
// Streaks decay to the last badge tier after a long break, never to zero
// once a milestone was reached.
package engagement

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/knightly-chess/knightly/internal/app/progress"
	"github.com/knightly-chess/knightly/internal/app/scoring"
	"github.com/knightly-chess/knightly/internal/domain"
)

// SessionReport describes what one recorded session changed.
type SessionReport struct {
	Streak  scoring.StreakResult `json:"streak"`
	Badge   *domain.Badge        `json:"badge,omitempty"`
	Profile domain.UserProfile   `json:"profile"`
}

// StreakService applies play sessions to the profile streak.
type StreakService struct {
	store *progress.Store
	log   *zap.Logger
}

// NewStreakService creates a streak service.
func NewStreakService(store *progress.Store, log *zap.Logger) *StreakService {
	if log == nil {
		log = zap.NewNop()
	}
	return &StreakService{store: store, log: log}
}

// RecordSession applies a session of the given length ending at now.
//
// A decayed streak is restarted by the same session when it qualifies, so a
// returning player does not need two sessions to count the day. Play time is
// always added.
func (s *StreakService) RecordSession(ctx context.Context, minutes float64, now time.Time) (SessionReport, error) {
	p, err := s.store.Profile(ctx)
	if err != nil {
		return SessionReport{}, err
	}

	var last time.Time
	if p.LastPlayedDate != nil {
		last = *p.LastPlayedDate
	}
	res := scoring.CalculateStreak(p.StreakCount, last, minutes, now)
	streak, earned := res.NewStreak, res.Earned
	if res.IsReset {
		again := scoring.CalculateStreak(res.NewStreak, time.Time{}, minutes, now)
		streak, earned = again.NewStreak, again.Earned
	}

	total := p.TotalPlayTimeMin + minutes
	update := domain.ProfileUpdate{
		StreakCount:      &streak,
		TotalPlayTimeMin: &total,
	}
	if earned {
		update.LastPlayedDate = &now
	}
	p, err = s.store.UpdateProfile(ctx, update)
	if err != nil {
		return SessionReport{}, fmt.Errorf("record session: %w", err)
	}

	report := SessionReport{Streak: res, Profile: p}
	if res.IsReset {
		s.log.Info("streak decayed",
			zap.Int("milestone", res.NewStreak),
			zap.Int("streak", streak))
	}
	if earned {
		badge, err := s.store.AwardBadge(ctx, streak)
		if err != nil {
			return report, err
		}
		if badge != nil {
			s.log.Info("badge earned", zap.String("badge", badge.ID), zap.Int("streak", streak))
			report.Badge = badge
			report.Profile.Badges = append(report.Profile.Badges, domain.EarnedBadge{ID: badge.ID, EarnedAt: badge.EarnedAt})
		}
	}
	return report, nil
}

// CurrentStreak returns the stored daily streak.
func (s *StreakService) CurrentStreak(ctx context.Context) (int, error) {
	p, err := s.store.Profile(ctx)
	if err != nil {
		return 0, err
	}
	return p.StreakCount, nil
}
