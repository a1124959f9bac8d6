package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/knightly-chess/knightly/internal/app/modes"
	"github.com/knightly-chess/knightly/internal/domain"
)

// CreateSessionRequest starts a play session.
type CreateSessionRequest struct {
	Mode       domain.Mode       `json:"mode"`
	Difficulty domain.Difficulty `json:"difficulty,omitempty"`
}

// MoveResponse is returned after a submitted move.
type MoveResponse struct {
	Result domain.MoveResult `json:"result"`
	View   modes.View        `json:"view"`
}

// ─── Session Lifecycle ──────────────────────────────────────────────────────

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if !req.Mode.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown mode %q", req.Mode))
		return
	}
	var opts []modes.Option
	if req.Difficulty != "" {
		if !req.Difficulty.Valid() {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown difficulty %q", req.Difficulty))
			return
		}
		opts = append(opts, modes.WithDifficulty(req.Difficulty))
	}

	ctrl, err := s.svc.Sessions.Create(req.Mode, opts...)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	if _, err := ctrl.LoadNext(r.Context()); err != nil && !errors.Is(err, domain.ErrDailyCompleted) {
		s.svc.Sessions.Remove(r.Context(), ctrl.ID())
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ctrl.View())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ctrl.View())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sum, err := s.svc.Sessions.Remove(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// ─── Play ───────────────────────────────────────────────────────────────────

func (s *Server) handleSubmitMove(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.session(w, r)
	if !ok {
		return
	}
	var m domain.Move
	if err := decodeBody(r, &m); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if m.From == "" || m.To == "" {
		writeError(w, http.StatusBadRequest, "move needs from and to squares")
		return
	}
	res, err := ctrl.SubmitMove(r.Context(), m)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MoveResponse{Result: res, View: ctrl.View()})
}

func (s *Server) handleHint(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.session(w, r)
	if !ok {
		return
	}
	hint, ok := ctrl.Hint()
	if !ok {
		writeError(w, http.StatusConflict, "no hint available")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"hint": hint})
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.session(w, r)
	if !ok {
		return
	}
	if _, err := ctrl.LoadNext(r.Context()); err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ctrl.View())
}

func (s *Server) handleReveal(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.session(w, r)
	if !ok {
		return
	}
	sol, err := ctrl.Reveal(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"solution": sol, "view": ctrl.View()})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.session(w, r)
	if !ok {
		return
	}
	ctrl.Pause()
	writeJSON(w, http.StatusOK, ctrl.View())
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.session(w, r)
	if !ok {
		return
	}
	ctrl.Resume()
	writeJSON(w, http.StatusOK, ctrl.View())
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.session(w, r)
	if !ok {
		return
	}
	a := ctrl.Analysis(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"available": a != nil, "analysis": a})
}

// session resolves the {id} URL parameter, writing a 404 when unknown.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (modes.Controller, bool) {
	ctrl, err := s.svc.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, err)
		return nil, false
	}
	return ctrl, true
}
