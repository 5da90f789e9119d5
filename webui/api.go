package webui

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"thumbnail_studio/core"
	"thumbnail_studio/db"
	"thumbnail_studio/imagegen"
	"thumbnail_studio/metrics"
	"thumbnail_studio/prompt"
	"thumbnail_studio/studio"
)

type healthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Uptime   string `json:"uptime"`
	Database string `json:"database"`
	Busy     bool   `json:"busy"`
	Clients  int    `json:"clients"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:   "ok",
		Version:  core.Version,
		Uptime:   time.Since(s.started).Round(time.Second).String(),
		Database: "ok",
		Busy:     s.app.Orchestrator.Status().Busy,
		Clients:  s.broadcaster.ClientCount(),
	}
	status := http.StatusOK
	if err := s.app.DB.Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.Database = err.Error()
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, resp)
}

type modelInfo struct {
	ID                core.ImageModel `json:"id"`
	Name              string          `json:"name"`
	SupportsReference bool            `json:"supportsReference"`
	Available         bool            `json:"available"`
}

type catalogResponse struct {
	Catalog      *prompt.Catalog      `json:"catalog"`
	Models       []modelInfo          `json:"models"`
	Vehicles     []core.VehicleType   `json:"vehicles"`
	AspectRatios []string             `json:"aspectRatios"`
	Defaults     core.SessionSnapshot `json:"defaults"`
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	snap, err := s.app.LoadSession(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := catalogResponse{
		Catalog:      s.app.Catalog,
		Vehicles:     core.AllVehicles(),
		AspectRatios: core.AspectRatios,
		Defaults:     snap,
	}
	for _, name := range core.ModelNames() {
		m := core.ImageModel(name)
		resp.Models = append(resp.Models, modelInfo{
			ID:                m,
			Name:              m.DisplayName(),
			SupportsReference: m.SupportsReference(),
			Available:         len(s.config.Models) == 0 || slices.Contains(s.config.Models, m),
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type composeResponse struct {
	Prompt   string `json:"prompt"`
	Positive string `json:"positive"`
	Negative string `json:"negative,omitempty"`
	CacheKey string `json:"cacheKey,omitempty"`
}

func (s *Server) handleCompose(w http.ResponseWriter, r *http.Request) {
	var sel studio.Selection
	if err := decodeJSON(w, r, &sel); err != nil {
		s.writeError(w, r, err)
		return
	}
	in := studio.ComposeInput(s.app.Catalog, sel)
	positive, negative := prompt.ComposeParts(in)
	resp := composeResponse{
		Prompt:   prompt.Compose(in),
		Positive: positive,
		Negative: negative,
	}
	// The key is only meaningful for a complete selection.
	req := studio.BuildRequest(s.app.Catalog, sel)
	if req.Validate() == nil {
		if key, err := studio.ComputeKey(req); err == nil {
			resp.CacheKey = key
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type enhanceRequest struct {
	Prompt  string           `json:"prompt"`
	Vehicle core.VehicleType `json:"vehicle,omitempty"`
}

func (s *Server) handleEnhance(w http.ResponseWriter, r *http.Request) {
	var body enhanceRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"prompt": s.app.Catalog.Enhance(body.Prompt, body.Vehicle),
	})
}

// generateRequest is a Selection plus an optional literal prompt that
// replaces the composed one, and an optional reference image as a data URL.
type generateRequest struct {
	studio.Selection
	Prompt         string `json:"prompt,omitempty"`
	ReferenceImage string `json:"referenceImage,omitempty"`
}

type generateResponse struct {
	*studio.GenerationResult
	Warning string `json:"warning,omitempty"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var body generateRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	req := studio.BuildRequest(s.app.Catalog, body.Selection)
	if body.Prompt != "" {
		req.Prompt = body.Prompt
	}
	if body.ReferenceImage != "" {
		if !req.Model.SupportsReference() {
			s.writeError(w, r, &studio.ValidationError{Field: "referenceImage", Reason: "model does not accept a reference image"})
			return
		}
		_, data, err := imagegen.ParseDataURL(body.ReferenceImage)
		if err != nil {
			s.writeError(w, r, &studio.ValidationError{Field: "referenceImage", Reason: err.Error()})
			return
		}
		ref, err := imagegen.PrepareReference(data)
		if err != nil {
			s.writeError(w, r, &studio.ValidationError{Field: "referenceImage", Reason: err.Error()})
			return
		}
		req.Reference = ref
	}

	var result *studio.GenerationResult
	err := s.ops.WrapOperation(r.Context(), "generate", func(ctx context.Context) error {
		var gerr error
		result, gerr = s.app.Orchestrator.Generate(ctx, req)
		return gerr
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := generateResponse{GenerationResult: result}
	if result.Warning != nil {
		resp.Warning = result.Warning.Error()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGenerateStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.app.Orchestrator.Status())
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.app.Runs.List())
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	var (
		recs []core.HistoryRecord
		err  error
	)
	if key := r.URL.Query().Get("cacheKey"); key != "" {
		recs, err = s.app.History.GetByCacheKey(r.Context(), key)
	} else {
		recs, err = s.app.History.GetAll(r.Context())
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if recs == nil {
		recs = []core.HistoryRecord{}
	}
	s.writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	rec, err := s.app.History.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleUpdateHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var patch core.HistoryPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	if patch.IsEmpty() {
		s.writeError(w, r, &studio.ValidationError{Field: "body", Reason: "no fields to update"})
		return
	}
	ok, err := s.app.History.Update(r.Context(), id, patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok {
		s.writeError(w, r, db.ErrNotFound)
		return
	}
	rec, err := s.app.History.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.app.History.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.app.History.Clear(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLogExport(w http.ResponseWriter, r *http.Request) {
	var entry core.ExportLogEntry
	if err := decodeJSON(w, r, &entry); err != nil {
		s.writeError(w, r, err)
		return
	}
	entry.ImageID = chi.URLParam(r, "id")
	saved, err := s.app.LogExport(r.Context(), entry)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleListExports(w http.ResponseWriter, r *http.Request) {
	logs, err := s.app.History.ExportLogs(r.Context(), r.URL.Query().Get("imageId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if logs == nil {
		logs = []core.ExportLogEntry{}
	}
	s.writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.app.Templates.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if templates == nil {
		templates = []core.Template{}
	}
	s.writeJSON(w, http.StatusOK, templates)
}

func (s *Server) handleSaveTemplate(w http.ResponseWriter, r *http.Request) {
	var t core.Template
	if err := decodeJSON(w, r, &t); err != nil {
		s.writeError(w, r, err)
		return
	}
	saved, err := s.app.SaveTemplate(r.Context(), t)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Templates.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	t, err := s.app.Templates.ToggleFavorite(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	presets, err := s.app.Presets.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if presets == nil {
		presets = []core.StylePreset{}
	}
	s.writeJSON(w, http.StatusOK, presets)
}

func (s *Server) handleSavePreset(w http.ResponseWriter, r *http.Request) {
	var p core.StylePreset
	if err := decodeJSON(w, r, &p); err != nil {
		s.writeError(w, r, err)
		return
	}
	saved, err := s.app.SavePreset(r.Context(), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleDeletePreset(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Presets.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.app.LoadSession(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handlePutSession(w http.ResponseWriter, r *http.Request) {
	var snap core.SessionSnapshot
	if err := decodeJSON(w, r, &snap); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.app.SaveSession(r.Context(), snap); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleExportBackup(w http.ResponseWriter, r *http.Request) {
	b, err := s.app.ExportBackup(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	name := "studio-backup-" + time.UnixMilli(b.ExportedAt).UTC().Format("20060102-150405") + ".json"
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	s.writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleImportBackup(w http.ResponseWriter, r *http.Request) {
	var b studio.Backup
	if err := decodeJSON(w, r, &b); err != nil {
		s.writeError(w, r, err)
		return
	}
	summary, err := s.app.ImportBackup(r.Context(), &b)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

type batchRequest struct {
	Jobs []studio.BatchJob `json:"jobs"`
}

type reorderRequest struct {
	Jobs     []studio.BatchJob `json:"jobs"`
	SourceID string            `json:"sourceId"`
	TargetID string            `json:"targetId"`
}

func (s *Server) handleRunBatch(w http.ResponseWriter, r *http.Request) {
	var body batchRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(body.Jobs) == 0 {
		s.writeError(w, r, &studio.ValidationError{Field: "jobs", Reason: "must not be empty"})
		return
	}
	now := time.Now().UnixMilli()
	for i := range body.Jobs {
		job := &body.Jobs[i]
		if job.ID == "" {
			job.ID = uuid.NewString()
		}
		if job.Status == "" {
			job.Status = studio.BatchPending
		}
		if job.CreatedAt == 0 {
			job.CreatedAt = now
		}
	}

	var jobs []studio.BatchJob
	err := s.ops.WrapOperation(r.Context(), "batch", func(ctx context.Context) error {
		jobs = s.app.Batch.Run(ctx, body.Jobs)
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, batchRequest{Jobs: jobs})
}

func (s *Server) handleReorderBatch(w http.ResponseWriter, r *http.Request) {
	var body reorderRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, batchRequest{Jobs: studio.ReorderJobs(body.Jobs, body.SourceID, body.TargetID)})
}

type metricsResponse struct {
	Stats     metrics.GenerationStats    `json:"stats"`
	Recent    []metrics.GenerationRecord `json:"recent"`
	System    metrics.SystemStatus       `json:"system"`
	Persisted int64                      `json:"persisted"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeError(w, r, &studio.ValidationError{Field: "limit", Reason: "must be a positive integer"})
			return
		}
		limit = n
	}
	persisted, err := s.app.MetricsRepo.Count(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, metricsResponse{
		Stats:     s.app.Metrics.Stats(),
		Recent:    s.app.Metrics.Recent(limit),
		System:    s.app.Metrics.SystemStatus(time.Now()),
		Persisted: persisted,
	})
}
