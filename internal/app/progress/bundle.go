package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/knightly-chess/knightly/internal/domain"
	"github.com/knightly-chess/knightly/internal/infra/sqlite"
)

// ─── Export / Import ────────────────────────────────────────────────────────

// ExportAll snapshots progress, stats and settings.
func (s *Store) ExportAll(ctx context.Context) (domain.ExportBundle, error) {
	prog, err := s.AllProgress(ctx)
	if err != nil {
		return domain.ExportBundle{}, fmt.Errorf("export: %w", err)
	}
	st, err := s.Stats(ctx)
	if err != nil {
		return domain.ExportBundle{}, fmt.Errorf("export: %w", err)
	}
	gs, err := s.Settings(ctx)
	if err != nil {
		return domain.ExportBundle{}, fmt.Errorf("export: %w", err)
	}
	return domain.ExportBundle{
		Version:    domain.ExportVersion,
		ExportDate: s.now().UTC(),
		Progress:   prog,
		Stats:      st,
		Settings:   gs,
	}, nil
}

// ImportAll overwrites stats and settings and upserts each progress record.
// Stats and settings are written atomically; a failing progress record does
// not undo the others.
func (s *Store) ImportAll(ctx context.Context, b domain.ExportBundle) error {
	s.mu.Lock()
	err := s.db.PutDocuments(ctx, map[string]any{
		sqlite.DocStats:    b.Stats,
		sqlite.DocSettings: b.Settings,
	})
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	var errs []error
	for _, p := range b.Progress {
		if err := s.SaveProgress(ctx, p); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("import: %w", errors.Join(errs...))
	}
	return nil
}

// requiredBundleFields must be present at the top level of an import file.
var requiredBundleFields = []string{"progress", "stats", "settings"}

// DecodeBundle reads an export file. A missing top-level field yields
// ErrMissingField naming the field; nested shapes are trusted.
func DecodeBundle(r io.Reader) (domain.ExportBundle, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return domain.ExportBundle{}, fmt.Errorf("decode export file: %w", err)
	}
	for _, f := range requiredBundleFields {
		v, ok := raw[f]
		if !ok || string(v) == "null" {
			return domain.ExportBundle{}, fmt.Errorf("%w: %q", domain.ErrMissingField, f)
		}
	}

	b := domain.ExportBundle{
		Version:  domain.ExportVersion,
		Stats:    domain.NewUserStats(),
		Settings: domain.DefaultSettings(),
	}
	if v, ok := raw["version"]; ok {
		if err := json.Unmarshal(v, &b.Version); err != nil {
			return domain.ExportBundle{}, fmt.Errorf("field %q: %w", "version", err)
		}
	}
	if v, ok := raw["exportDate"]; ok {
		var ts string
		if err := json.Unmarshal(v, &ts); err == nil {
			b.ExportDate, _ = time.Parse(time.RFC3339Nano, ts)
		}
	}
	fields := map[string]any{
		"progress": &b.Progress,
		"stats":    &b.Stats,
		"settings": &b.Settings,
	}
	for _, f := range requiredBundleFields {
		if err := json.Unmarshal(raw[f], fields[f]); err != nil {
			return domain.ExportBundle{}, fmt.Errorf("field %q: %w", f, err)
		}
	}
	return b, nil
}

// EncodeBundle writes b as indented JSON.
func EncodeBundle(w io.Writer, b domain.ExportBundle) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(b)
}
