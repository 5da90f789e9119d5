package core

import (
	"go.uber.org/zap/zapcore"
)

// ImageModel identifies an image-generation backend model.
type ImageModel string

const (
	// ModelImagen is the Imagen text-to-image model. Returns up to four images per call.
	ModelImagen ImageModel = "imagen-4.0-generate-001"
	// ModelGeminiFlashImage is the Gemini Flash image model. Accepts a reference image.
	ModelGeminiFlashImage ImageModel = "gemini-2.5-flash-image"
	// ModelGPTImage is served by the OpenAI images endpoint.
	ModelGPTImage ImageModel = "gpt-image-1"
)

var allModels = []ImageModel{ModelImagen, ModelGeminiFlashImage, ModelGPTImage}

// Valid reports whether m is a known model.
func (m ImageModel) Valid() bool {
	for _, known := range allModels {
		if m == known {
			return true
		}
	}
	return false
}

// SupportsReference reports whether the model accepts a reference image.
func (m ImageModel) SupportsReference() bool {
	return m == ModelGeminiFlashImage
}

// DisplayName returns a human-readable label for the model.
func (m ImageModel) DisplayName() string {
	switch m {
	case ModelImagen:
		return "Imagen 4"
	case ModelGeminiFlashImage:
		return "Gemini Flash Image"
	case ModelGPTImage:
		return "GPT Image"
	default:
		return string(m)
	}
}

// ModelNames returns the wire names of all known models.
func ModelNames() []string {
	names := make([]string, len(allModels))
	for i, m := range allModels {
		names[i] = string(m)
	}
	return names
}

// VehicleType is one of the supported vehicle lines.
type VehicleType string

const (
	VehicleRyker     VehicleType = "Can-Am Ryker"
	VehicleSpyderF3  VehicleType = "Can-Am Spyder F3"
	VehicleSpyderRT  VehicleType = "Can-Am Spyder RT"
	VehicleSlingshot VehicleType = "Polaris Slingshot"
)

// AllVehicles returns every supported vehicle in display order.
func AllVehicles() []VehicleType {
	return []VehicleType{VehicleRyker, VehicleSpyderF3, VehicleSpyderRT, VehicleSlingshot}
}

// AspectRatios lists the aspect ratios accepted by every backend.
var AspectRatios = []string{"1:1", "16:9", "9:16", "4:3", "3:4"}

// GenerationSettings are the per-request generation parameters.
type GenerationSettings struct {
	AspectRatio    string     `json:"aspectRatio"`
	NumberOfImages int        `json:"numberOfImages"`
	Model          ImageModel `json:"model"`
}

// ExportLogEntry records one export of a generated image.
type ExportLogEntry struct {
	ID          string `json:"id"`
	ImageID     string `json:"imageId"`
	Format      string `json:"format"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Destination string `json:"destination,omitempty"`
	ExportedAt  int64  `json:"exportedAt"`
}

// HistoryRecord is one generated image and its metadata.
// Timestamp is unix milliseconds. URL is a data URL.
type HistoryRecord struct {
	ID         string             `json:"id"`
	URL        string             `json:"url"`
	Model      ImageModel         `json:"model"`
	Prompt     string             `json:"prompt"`
	Vehicle    VehicleType        `json:"vehicle,omitempty"`
	Timestamp  int64              `json:"timestamp"`
	Settings   GenerationSettings `json:"settings"`
	CacheKey   string             `json:"cacheKey"`
	Note       string             `json:"note,omitempty"`
	Favorite   bool               `json:"favorite"`
	Shipped    bool               `json:"shipped"`
	SessionID  string             `json:"sessionId,omitempty"`
	CopyIdeas  []string           `json:"copyIdeas,omitempty"`
	ExportLogs []ExportLogEntry   `json:"exportLogs"`
}

// Clone returns a deep copy of r.
func (r HistoryRecord) Clone() HistoryRecord {
	out := r
	if r.CopyIdeas != nil {
		out.CopyIdeas = append([]string(nil), r.CopyIdeas...)
	}
	if r.ExportLogs != nil {
		out.ExportLogs = append([]ExportLogEntry(nil), r.ExportLogs...)
	}
	return out
}

// MarshalLogObject implements zapcore.ObjectMarshaler. The image payload is
// summarised by its length.
func (r HistoryRecord) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("id", r.ID)
	enc.AddString("model", string(r.Model))
	enc.AddString("cache_key", r.CacheKey)
	enc.AddString("session_id", r.SessionID)
	enc.AddInt64("timestamp", r.Timestamp)
	enc.AddInt("url_bytes", len(r.URL))
	return nil
}

// HistoryPatch is a partial update of the mutable HistoryRecord fields.
// Nil fields are left unchanged.
type HistoryPatch struct {
	Note      *string   `json:"note,omitempty"`
	Favorite  *bool     `json:"favorite,omitempty"`
	Shipped   *bool     `json:"shipped,omitempty"`
	CopyIdeas *[]string `json:"copyIdeas,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p HistoryPatch) IsEmpty() bool {
	return p.Note == nil && p.Favorite == nil && p.Shipped == nil && p.CopyIdeas == nil
}

// Apply merges the patch into r.
func (p HistoryPatch) Apply(r *HistoryRecord) {
	if p.Note != nil {
		r.Note = *p.Note
	}
	if p.Favorite != nil {
		r.Favorite = *p.Favorite
	}
	if p.Shipped != nil {
		r.Shipped = *p.Shipped
	}
	if p.CopyIdeas != nil {
		r.CopyIdeas = append([]string(nil), (*p.CopyIdeas)...)
	}
}

// Template is a saved prompt with its settings.
type Template struct {
	ID         string             `json:"id"`
	Name       string             `json:"name" validate:"required,max=120"`
	Prompt     string             `json:"prompt" validate:"required"`
	Vehicle    VehicleType        `json:"vehicle,omitempty"`
	Model      ImageModel         `json:"model"`
	Settings   GenerationSettings `json:"settings"`
	IsFavorite bool               `json:"isFavorite"`
	CreatedAt  int64              `json:"createdAt"`
}

// StylePreset is a named selection of style modules and an optional scene.
type StylePreset struct {
	ID        string   `json:"id"`
	Name      string   `json:"name" validate:"required,max=120"`
	Modules   []string `json:"modules"`
	SceneID   string   `json:"sceneId,omitempty"`
	CreatedAt int64    `json:"createdAt"`
}

// SessionSnapshot is the last working state of the studio, restored on start.
type SessionSnapshot struct {
	BasePrompt     string      `json:"basePrompt"`
	Model          ImageModel  `json:"model"`
	Vehicle        VehicleType `json:"vehicle,omitempty"`
	Mods           []string    `json:"mods"`
	AspectRatio    string      `json:"aspectRatio"`
	NumberOfImages int         `json:"numberOfImages"`
	ActiveModules  []string    `json:"activeModules"`
	SceneID        string      `json:"sceneId,omitempty"`
	Negatives      []string    `json:"negatives"`
}

// HistoryOp names a history mutation.
type HistoryOp string

const (
	HistoryOpPut    HistoryOp = "put"
	HistoryOpUpdate HistoryOp = "update"
	HistoryOpDelete HistoryOp = "delete"
	HistoryOpClear  HistoryOp = "clear"
	HistoryOpExport HistoryOp = "export"
)

// HistoryChange describes a committed history mutation.
type HistoryChange struct {
	Op  HistoryOp `json:"op"`
	IDs []string  `json:"ids,omitempty"`
}

// HistoryNotifier receives a call after each committed history mutation.
type HistoryNotifier interface {
	HistoryChanged(change HistoryChange)
}
