package studio

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"thumbnail_studio/core"
)

// BackupVersion is written into every backup document.
const BackupVersion = 1

// Backup is a portable snapshot of the user's library.
type Backup struct {
	Version    int                        `json:"version"`
	Templates  []core.Template            `json:"templates"`
	Presets    []core.StylePreset         `json:"presets"`
	History    []core.HistoryRecord       `json:"history"`
	Settings   map[string]json.RawMessage `json:"settings"`
	ExportedAt int64                      `json:"exportedAt"`
}

// ImportSummary counts what ImportBackup wrote.
type ImportSummary struct {
	Templates  int `json:"templates"`
	Presets    int `json:"presets"`
	History    int `json:"history"`
	ExportLogs int `json:"exportLogs"`
	Settings   int `json:"settings"`
}

// ExportBackup collects templates, presets, history and settings.
func (a *App) ExportBackup(ctx context.Context) (*Backup, error) {
	templates, err := a.Templates.List(ctx)
	if err != nil {
		return nil, err
	}
	presets, err := a.Presets.List(ctx)
	if err != nil {
		return nil, err
	}
	history, err := a.History.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	settings, err := a.Settings.All(ctx)
	if err != nil {
		return nil, err
	}
	return &Backup{
		Version:    BackupVersion,
		Templates:  templates,
		Presets:    presets,
		History:    history,
		Settings:   settings,
		ExportedAt: time.Now().UnixMilli(),
	}, nil
}

// ImportBackup upserts everything in b. History goes through PutMany, so
// the history limit applies to the merged set.
//
// The whole document is validated before the first write, so a malformed
// backup changes nothing. A storage failure part way through can still
// leave earlier sections imported; re-importing the same backup is safe.
func (a *App) ImportBackup(ctx context.Context, b *Backup) (ImportSummary, error) {
	var sum ImportSummary
	if err := validateBackup(b); err != nil {
		return sum, err
	}

	for _, t := range b.Templates {
		if _, err := a.SaveTemplate(ctx, t); err != nil {
			return sum, fmt.Errorf("studio: import template %q: %w", t.Name, err)
		}
		sum.Templates++
	}
	for _, p := range b.Presets {
		if _, err := a.SavePreset(ctx, p); err != nil {
			return sum, fmt.Errorf("studio: import preset %q: %w", p.Name, err)
		}
		sum.Presets++
	}

	if len(b.History) > 0 {
		if err := a.History.PutMany(ctx, b.History); err != nil {
			return sum, fmt.Errorf("studio: import history: %w", err)
		}
		sum.History = len(b.History)

		known, err := a.History.ExportLogs(ctx, "")
		if err != nil {
			return sum, err
		}
		seen := make(map[string]struct{}, len(known))
		for _, e := range known {
			seen[e.ID] = struct{}{}
		}
		for _, rec := range b.History {
			for _, e := range rec.ExportLogs {
				if _, ok := seen[e.ID]; ok || e.ID == "" {
					continue
				}
				if err := a.History.LogExport(ctx, e); err != nil {
					a.logger.Warn("skipping export log", zap.String("export_id", e.ID), zap.Error(err))
					continue
				}
				seen[e.ID] = struct{}{}
				sum.ExportLogs++
			}
		}
	}

	if len(b.Settings) > 0 {
		if err := a.Settings.PutAll(ctx, b.Settings); err != nil {
			return sum, err
		}
		sum.Settings = len(b.Settings)
	}
	return sum, nil
}

func validateBackup(b *Backup) error {
	if b == nil {
		return &ValidationError{Field: "backup", Reason: "is required"}
	}
	if b.Version > BackupVersion {
		return &ValidationError{Field: "version", Reason: fmt.Sprintf("unsupported backup version %d", b.Version)}
	}
	for i, t := range b.Templates {
		if err := ValidateStruct(t); err != nil {
			return fmt.Errorf("studio: template %d: %w", i, err)
		}
	}
	for i, p := range b.Presets {
		if err := ValidateStruct(p); err != nil {
			return fmt.Errorf("studio: preset %d: %w", i, err)
		}
	}
	seen := make(map[string]struct{}, len(b.History))
	for i, rec := range b.History {
		field := fmt.Sprintf("history[%d]", i)
		switch {
		case rec.ID == "":
			return &ValidationError{Field: field + ".id", Reason: "is required"}
		case rec.URL == "":
			return &ValidationError{Field: field + ".url", Reason: "is required"}
		case !rec.Model.Valid():
			return &ValidationError{Field: field + ".model", Reason: fmt.Sprintf("unknown model %q", rec.Model)}
		}
		if _, dup := seen[rec.ID]; dup {
			return &ValidationError{Field: field + ".id", Reason: fmt.Sprintf("duplicate id %q", rec.ID)}
		}
		seen[rec.ID] = struct{}{}
	}
	return nil
}
