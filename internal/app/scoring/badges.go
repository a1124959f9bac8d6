package scoring

import (
	"fmt"

	"github.com/knightly-chess/knightly/internal/domain"
)

// badgeTable maps streak milestones to badge metadata, ascending.
var badgeTable = []domain.BadgeDef{
	{Milestone: 10, Name: "Pawn Storm", Description: "Trained 10 days in a row", Icon: "♙"},
	{Milestone: 20, Name: "Knight Rider", Description: "Trained 20 days in a row", Icon: "♘"},
	{Milestone: 30, Name: "Bishop's Path", Description: "Trained 30 days in a row", Icon: "♗"},
	{Milestone: 50, Name: "Rook Solid", Description: "Trained 50 days in a row", Icon: "♖"},
	{Milestone: 75, Name: "Royal Guard", Description: "Trained 75 days in a row", Icon: "♔"},
	{Milestone: 100, Name: "Queen's Gambit", Description: "Trained 100 days in a row", Icon: "♕"},
	{Milestone: 150, Name: "Grandmaster Focus", Description: "Trained 150 days in a row", Icon: "♚"},
	{Milestone: 200, Name: "Immortal Game", Description: "Trained 200 days in a row", Icon: "♛"},
}

func init() {
	for i := range badgeTable {
		badgeTable[i].ID = BadgeID(badgeTable[i].Milestone)
	}
}

// BadgeID is the stable identifier of a milestone badge.
func BadgeID(milestone int) string {
	return fmt.Sprintf("streak-%d", milestone)
}

// BadgeForStreak returns the badge awarded on reaching exactly n days.
func BadgeForStreak(n int) (domain.BadgeDef, bool) {
	for _, b := range badgeTable {
		if b.Milestone == n {
			return b, true
		}
	}
	return domain.BadgeDef{}, false
}

// BadgeByID looks a badge definition up by id.
func BadgeByID(id string) (domain.BadgeDef, bool) {
	for _, b := range badgeTable {
		if b.ID == id {
			return b, true
		}
	}
	return domain.BadgeDef{}, false
}

// Badges returns a copy of the milestone table.
func Badges() []domain.BadgeDef {
	out := make([]domain.BadgeDef, len(badgeTable))
	copy(out, badgeTable)
	return out
}
