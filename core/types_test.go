package core

import (
	"encoding/json"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestImageModel_Valid(t *testing.T) {
	tests := []struct {
		model ImageModel
		want  bool
	}{
		{ModelImagen, true},
		{ModelGeminiFlashImage, true},
		{ModelGPTImage, true},
		{ImageModel("dall-e-2"), false},
		{ImageModel(""), false},
	}
	for _, tt := range tests {
		t.Run(string(tt.model), func(t *testing.T) {
			if got := tt.model.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestImageModel_SupportsReference(t *testing.T) {
	if !ModelGeminiFlashImage.SupportsReference() {
		t.Error("gemini flash should accept a reference image")
	}
	if ModelImagen.SupportsReference() {
		t.Error("imagen should not accept a reference image")
	}
}

func TestHistoryRecord_Clone(t *testing.T) {
	orig := HistoryRecord{
		ID:         "a",
		CopyIdeas:  []string{"RYKER UNLEASHED"},
		ExportLogs: []ExportLogEntry{{ID: "e1", Format: "png"}},
	}

	clone := orig.Clone()
	clone.CopyIdeas[0] = "changed"
	clone.ExportLogs[0].Format = "jpeg"

	if orig.CopyIdeas[0] != "RYKER UNLEASHED" {
		t.Errorf("Clone shares CopyIdeas backing array")
	}
	if orig.ExportLogs[0].Format != "png" {
		t.Errorf("Clone shares ExportLogs backing array")
	}
}

func TestHistoryRecord_JSONFieldNames(t *testing.T) {
	rec := HistoryRecord{
		ID:        "id-1",
		CacheKey:  "abc",
		SessionID: "s-1",
		Settings:  GenerationSettings{AspectRatio: "16:9", NumberOfImages: 2, Model: ModelImagen},
	}
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for _, key := range []string{"cacheKey", "sessionId", "favorite", "shipped", "exportLogs"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("expected JSON key %q in %s", key, data)
		}
	}
	settings := raw["settings"].(map[string]any)
	if settings["aspectRatio"] != "16:9" {
		t.Errorf("settings.aspectRatio = %v", settings["aspectRatio"])
	}
}

func TestHistoryRecord_MarshalLogObject(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	rec := HistoryRecord{ID: "id-1", URL: "data:image/png;base64,AAAA", CacheKey: "k"}
	logger.Info("stored", zap.Object("record", rec))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()["record"].(map[string]interface{})
	if fields["id"] != "id-1" {
		t.Errorf("id = %v", fields["id"])
	}
	if _, ok := fields["url"]; ok {
		t.Error("image payload should not be logged")
	}
	if fields["url_bytes"] != int64(len(rec.URL)) {
		t.Errorf("url_bytes = %v, want %d", fields["url_bytes"], len(rec.URL))
	}
}

func TestHistoryPatch_Apply(t *testing.T) {
	note := "hero shot"
	fav := true
	ideas := []string{"THREE WHEELS", "ZERO LIMITS"}

	tests := []struct {
		name  string
		patch HistoryPatch
		check func(t *testing.T, r HistoryRecord)
	}{
		{
			name:  "empty patch changes nothing",
			patch: HistoryPatch{},
			check: func(t *testing.T, r HistoryRecord) {
				if r.Note != "old" || r.Favorite || r.Shipped {
					t.Errorf("record changed: %+v", r)
				}
			},
		},
		{
			name:  "sets note and favorite",
			patch: HistoryPatch{Note: &note, Favorite: &fav},
			check: func(t *testing.T, r HistoryRecord) {
				if r.Note != note || !r.Favorite || r.Shipped {
					t.Errorf("unexpected record: %+v", r)
				}
			},
		},
		{
			name:  "copies copy ideas",
			patch: HistoryPatch{CopyIdeas: &ideas},
			check: func(t *testing.T, r HistoryRecord) {
				if len(r.CopyIdeas) != 2 {
					t.Fatalf("CopyIdeas = %v", r.CopyIdeas)
				}
				ideas[0] = "mutated"
				if r.CopyIdeas[0] != "THREE WHEELS" {
					t.Error("Apply kept a reference to the patch slice")
				}
				ideas[0] = "THREE WHEELS"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := HistoryRecord{ID: "x", Note: "old"}
			tt.patch.Apply(&rec)
			tt.check(t, rec)
		})
	}

	if !(HistoryPatch{}).IsEmpty() {
		t.Error("zero patch should be empty")
	}
	if (HistoryPatch{Note: &note}).IsEmpty() {
		t.Error("patch with note should not be empty")
	}
}
