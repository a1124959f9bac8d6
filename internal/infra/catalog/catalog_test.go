package catalog_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/knightly-chess/knightly/internal/app/solver"
	"github.com/knightly-chess/knightly/internal/domain"
	"github.com/knightly-chess/knightly/internal/infra/catalog"
	"github.com/knightly-chess/knightly/internal/infra/chessrules"
	"github.com/knightly-chess/knightly/internal/infra/sqlite"
)

func TestCatalog_AllValidated(t *testing.T) {
	seen := make(map[string]bool)
	for _, p := range catalog.Catalog {
		if seen[p.ID] {
			t.Errorf("duplicate id %s", p.ID)
		}
		seen[p.ID] = true
		if !p.Validated() {
			t.Errorf("%s: %d moves is outside 2..7", p.ID, len(p.Solution))
		}
		if !p.Difficulty.Valid() {
			t.Errorf("%s: bad difficulty %q", p.ID, p.Difficulty)
		}
	}
}

// Every built-in solution must replay to Solved without a wrong move.
func TestCatalog_SolutionsReplay(t *testing.T) {
	rules := chessrules.New()
	for _, p := range catalog.Catalog {
		t.Run(p.ID, func(t *testing.T) {
			s, err := solver.New(p, rules)
			if err != nil {
				t.Fatalf("New() error: %v", err)
			}
			for i, san := range p.Solution {
				m, err := rules.ParseMove(s.CurrentFEN(), san)
				if err != nil {
					t.Fatalf("step %d %q: %v", i, san, err)
				}
				res := s.SubmitMove(m)
				if !res.Accepted {
					t.Fatalf("step %d %q rejected: %s", i, san, res.Reason)
				}
			}
			st := s.State()
			if st.Status != domain.StatusSolved || st.WrongMoveCount != 0 {
				t.Errorf("final state = %+v", st)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	if p := catalog.Lookup("back-rank"); p == nil || p.Difficulty != domain.DifficultyMedium {
		t.Errorf("Lookup(back-rank) = %+v", p)
	}
	if catalog.Lookup("nope") != nil {
		t.Error("Lookup(nope) should be nil")
	}
}

func TestLoad(t *testing.T) {
	body := `[
		{"id": "x1", "fen": "8/8/8/8/8/8/8/K6k w - - 0 1", "moves": ["Kb1", "Kg1"], "difficulty": "Hard", "rating": 1333},
		{"id": "x2", "fen": "8/8/8/8/8/8/8/K6k w - - 0 1", "moves": ["Kb1"], "difficulty": "simple"}
	]`
	puzzles, err := catalog.Load(strings.NewReader(body))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(puzzles) != 2 {
		t.Fatalf("got %d puzzles", len(puzzles))
	}
	if puzzles[0].Difficulty != domain.DifficultyHard || *puzzles[0].Rating != 1333 {
		t.Errorf("puzzle 0 = %+v", puzzles[0])
	}
	if puzzles[1].Validated() {
		t.Error("one-move puzzle should be flagged, not validated")
	}
}

func TestLoad_Rejects(t *testing.T) {
	tests := map[string]string{
		"missing id":  `[{"fen": "x", "moves": ["a"], "difficulty": "simple"}]`,
		"missing fen": `[{"id": "a", "moves": ["a"], "difficulty": "simple"}]`,
		"bad level":   `[{"id": "a", "fen": "x", "moves": ["a"], "difficulty": "brutal"}]`,
		"not array":   `{"id": "a"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := catalog.Load(strings.NewReader(body)); err == nil {
				t.Error("expected error")
			}
		})
	}
	_, err := catalog.Load(strings.NewReader(tests["missing id"]))
	if !errors.Is(err, domain.ErrMissingField) {
		t.Errorf("missing id error = %v", err)
	}
}

func TestSeed_OnlyOnce(t *testing.T) {
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	n, err := catalog.Seed(ctx, db)
	if err != nil || n != len(catalog.Catalog) {
		t.Fatalf("first Seed() = %d, %v", n, err)
	}
	n, err = catalog.Seed(ctx, db)
	if err != nil || n != 0 {
		t.Fatalf("second Seed() = %d, %v", n, err)
	}
	count, _ := db.CountPuzzles(ctx)
	if count != len(catalog.Catalog) {
		t.Errorf("count = %d", count)
	}
}
