// Package chessrules adapts github.com/notnil/chess to domain.ChessRules.
// Every call starts from a FEN string and returns a new FEN, so no board
// object is ever shared between steps.
package chessrules

import (
	"fmt"
	"strings"

	"github.com/notnil/chess"

	"github.com/knightly-chess/knightly/internal/domain"
)

// Rules is a stateless ChessRules implementation.
type Rules struct{}

// New returns the notnil/chess backed rules engine.
func New() *Rules { return &Rules{} }

var _ domain.ChessRules = (*Rules)(nil)

// LoadPosition parses fen and checks that it has a side to move.
func (r *Rules) LoadPosition(fen string) error {
	_, err := position(fen)
	return err
}

// LegalMoves lists legal moves from square, or all legal moves when square
// is empty.
func (r *Rules) LegalMoves(fen, square string) ([]domain.Move, error) {
	pos, err := position(fen)
	if err != nil {
		return nil, err
	}
	square = strings.ToLower(square)

	var out []domain.Move
	for _, m := range pos.ValidMoves() {
		if square != "" && m.S1().String() != square {
			continue
		}
		out = append(out, toDomain(m))
	}
	return out, nil
}

// ApplyMove plays mv on fen. A pawn reaching the last rank without an
// explicit promotion piece promotes to a queen.
func (r *Rules) ApplyMove(fen string, mv domain.Move) (domain.AppliedMove, error) {
	pos, err := position(fen)
	if err != nil {
		return domain.AppliedMove{}, err
	}

	m := findMove(pos, mv)
	if m == nil {
		return domain.AppliedMove{}, fmt.Errorf("%s: %w", mv.UCI(), domain.ErrIllegalMove)
	}
	return domain.AppliedMove{
		SAN:     chess.AlgebraicNotation{}.Encode(pos, m),
		UCI:     chess.UCINotation{}.Encode(pos, m),
		NextFEN: pos.Update(m).String(),
	}, nil
}

// SideToMove returns "w" or "b" for fen.
func (r *Rules) SideToMove(fen string) (string, error) {
	pos, err := position(fen)
	if err != nil {
		return "", err
	}
	if pos.Turn() == chess.Black {
		return "b", nil
	}
	return "w", nil
}

// Diagram draws the board of fen as text, white at the bottom.
func (r *Rules) Diagram(fen string) (string, error) {
	pos, err := position(fen)
	if err != nil {
		return "", err
	}
	return pos.Board().Draw(), nil
}

// ParseMove decodes user input in SAN ("Nf3", "exd8=Q") or UCI ("g1f3")
// against fen.
func (r *Rules) ParseMove(fen, text string) (domain.Move, error) {
	pos, err := position(fen)
	if err != nil {
		return domain.Move{}, err
	}
	text = strings.TrimSpace(text)
	if m, err := (chess.AlgebraicNotation{}).Decode(pos, text); err == nil {
		return toDomain(m), nil
	}
	if m, err := (chess.UCINotation{}).Decode(pos, strings.ToLower(text)); err == nil {
		if legal := findMove(pos, toDomain(m)); legal != nil {
			return toDomain(legal), nil
		}
	}
	return domain.Move{}, fmt.Errorf("%q: %w", text, domain.ErrIllegalMove)
}

func position(fen string) (*chess.Position, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPosition, err)
	}
	return chess.NewGame(opt).Position(), nil
}

func findMove(pos *chess.Position, mv domain.Move) *chess.Move {
	from := strings.ToLower(mv.From)
	to := strings.ToLower(mv.To)
	promo := strings.ToLower(mv.Promotion)

	var queening *chess.Move
	for _, m := range pos.ValidMoves() {
		if m.S1().String() != from || m.S2().String() != to {
			continue
		}
		if m.Promo() == chess.NoPieceType {
			return m
		}
		if promo != "" && m.Promo().String() == promo {
			return m
		}
		if promo == "" && m.Promo() == chess.Queen {
			queening = m
		}
	}
	return queening
}

func toDomain(m *chess.Move) domain.Move {
	out := domain.Move{From: m.S1().String(), To: m.S2().String()}
	if m.Promo() != chess.NoPieceType {
		out.Promotion = m.Promo().String()
	}
	return out
}
