package studio

import (
	"thumbnail_studio/core"
	"thumbnail_studio/prompt"
)

// Selection is the raw studio state the user builds a prompt from. Mods,
// Modules and SceneID are catalog ids.
type Selection struct {
	BasePrompt    string           `json:"basePrompt"`
	Vehicle       core.VehicleType `json:"vehicle,omitempty"`
	Mods          []string         `json:"mods,omitempty"`
	SceneID       string           `json:"sceneId,omitempty"`
	Modules       []string         `json:"modules,omitempty"`
	NegativeTerms []string         `json:"negativeTerms,omitempty"`
	Model         core.ImageModel  `json:"model"`
	AspectRatio   string           `json:"aspectRatio"`
	ImageCount    int              `json:"imageCount"`
	Enhance       bool             `json:"enhance,omitempty"`
}

// ComposeInput resolves catalog ids in sel into composer input.
func ComposeInput(cat *prompt.Catalog, sel Selection) prompt.Input {
	in := prompt.Input{
		Base:           sel.BasePrompt,
		Vehicle:        sel.Vehicle,
		Mods:           cat.ModNames(sel.Mods),
		ModuleKeywords: cat.ModuleKeywords(sel.Modules),
		NegativeTerms:  sel.NegativeTerms,
	}
	if sel.Enhance {
		in.Base = cat.Enhance(sel.BasePrompt, sel.Vehicle)
	}
	if scene, ok := cat.Scene(sel.SceneID); ok {
		in.SceneKeywords = scene.Keywords
	}
	return in
}

// BuildRequest composes the final prompt for sel and returns the matching
// generation request.
func BuildRequest(cat *prompt.Catalog, sel Selection) GenerationRequest {
	return GenerationRequest{
		Prompt:             prompt.Compose(ComposeInput(cat, sel)),
		Model:              sel.Model,
		AspectRatio:        sel.AspectRatio,
		ImageCount:         sel.ImageCount,
		Vehicle:            sel.Vehicle,
		Mods:               sel.Mods,
		ActiveStyleModules: sel.Modules,
		SceneID:            sel.SceneID,
		NegativeTerms:      sel.NegativeTerms,
	}
}
