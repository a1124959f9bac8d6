package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/knightly-chess/knightly/internal/app/modes"
	"github.com/knightly-chess/knightly/internal/app/progress"
	"github.com/knightly-chess/knightly/internal/domain"
)

// maxImportBytes bounds the size of an uploaded export file.
const maxImportBytes = 8 << 20

// ─── Profile / Stats / Settings ─────────────────────────────────────────────

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Store.Profile(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePatchProfile(w http.ResponseWriter, r *http.Request) {
	var u domain.ProfileUpdate
	if err := decodeBody(r, &u); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	p, err := s.svc.Store.UpdateProfile(r.Context(), u)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Store.Stats(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	gs, err := s.svc.Store.Settings(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gs)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	gs := domain.DefaultSettings()
	if err := decodeBody(r, &gs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := s.svc.Store.SetSettings(r.Context(), gs); err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gs)
}

// ─── Progress ───────────────────────────────────────────────────────────────

func (s *Server) handleListProgress(w http.ResponseWriter, r *http.Request) {
	all, err := s.svc.Store.AllProgress(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	if all == nil {
		all = []domain.PuzzleProgress{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"progress": all})
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := s.svc.Store.Progress(r.Context(), id)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no progress for puzzle %q", id))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	badges, err := s.svc.Achievements.Collection(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	resp := map[string]any{"badges": badges}
	if def, remaining, ok, err := s.svc.Achievements.NextMilestone(r.Context()); err == nil && ok {
		resp["next"] = map[string]any{"badge": def, "daysRemaining": remaining}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ─── Export / Import / Clear ────────────────────────────────────────────────

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.Store.ExportAll(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	name := fmt.Sprintf("knightly-export-%s.json", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if err := progress.EncodeBundle(w, b); err != nil {
		s.log.Warn("export write failed", zap.Error(err))
	}
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	b, err := progress.DecodeBundle(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.svc.Store.ImportAll(r.Context(), b); err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"imported": len(b.Progress)})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Store.ClearAll(r.Context()); err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// ─── Puzzles ────────────────────────────────────────────────────────────────

func (s *Server) handleListPuzzles(w http.ResponseWriter, r *http.Request) {
	var f domain.PuzzleFilter
	if d := r.URL.Query().Get("difficulty"); d != "" {
		f.Difficulty = domain.Difficulty(d)
		if !f.Difficulty.Valid() {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown difficulty %q", d))
			return
		}
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", l))
			return
		}
		f.Limit = n
	}
	ps, err := s.svc.Puzzles.ListPuzzles(r.Context(), f)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	views := make([]*modes.PuzzleView, 0, len(ps))
	for _, p := range ps {
		views = append(views, modes.NewPuzzleView(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"puzzles": views})
}

func (s *Server) handleGetPuzzle(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Puzzles.GetPuzzle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, modes.NewPuzzleView(*p))
}
