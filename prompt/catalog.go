package prompt

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"thumbnail_studio/core"
)

// Vehicle describes a supported vehicle line.
type Vehicle struct {
	Type        core.VehicleType `json:"type" yaml:"type"`
	Description string           `json:"description" yaml:"description"`
}

// Mod is an installable accessory referenced by id.
type Mod struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Module is a reusable style fragment appended to prompts.
type Module struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Category    string `json:"category" yaml:"category"`
	Keywords    string `json:"keywords" yaml:"keywords"`
	Description string `json:"description,omitempty" yaml:"description"`
}

// Scene is a named setting with prompt keywords.
type Scene struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description"`
	Keywords    string `json:"keywords" yaml:"keywords"`
	Category    string `json:"category" yaml:"category"`
}

// Presets are free-text suggestions grouped by purpose.
type Presets struct {
	Action   []string `json:"action" yaml:"action"`
	Setting  []string `json:"setting" yaml:"setting"`
	Style    []string `json:"style" yaml:"style"`
	Lighting []string `json:"lighting" yaml:"lighting"`
}

// Catalog holds every selectable prompt ingredient. Lookups are by id;
// slices keep display order.
type Catalog struct {
	Vehicles  []Vehicle `json:"vehicles" yaml:"vehicles"`
	Mods      []Mod     `json:"mods" yaml:"mods"`
	Modules   []Module  `json:"modules" yaml:"modules"`
	Scenes    []Scene   `json:"scenes" yaml:"scenes"`
	Negatives []string  `json:"negatives" yaml:"negatives"`
	Presets   Presets   `json:"presets" yaml:"presets"`
}

// Module categories.
const (
	CategoryMotion     = "motion"
	CategoryLighting   = "lighting"
	CategoryAngle      = "angle"
	CategoryQuality    = "quality"
	CategoryStyle      = "style"
	CategoryAtmosphere = "atmosphere"
)

// Scene categories.
const (
	SceneRoad   = "road"
	SceneUrban  = "urban"
	SceneStudio = "studio"
	SceneNature = "nature"
	SceneTrack  = "track"
)

// VehicleDescription returns the long description for v, or v itself when unknown.
func (c *Catalog) VehicleDescription(v core.VehicleType) string {
	for _, vehicle := range c.Vehicles {
		if vehicle.Type == v {
			return vehicle.Description
		}
	}
	return string(v)
}

// ModName returns the display name for a mod id. Unknown ids are returned
// verbatim so free-text mods still reach the prompt.
func (c *Catalog) ModName(id string) string {
	for _, m := range c.Mods {
		if m.ID == id {
			return m.Name
		}
	}
	return id
}

// ModNames resolves mod ids to display names in the given order.
func (c *Catalog) ModNames(ids []string) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, c.ModName(id))
	}
	return names
}

// Module returns the module with id.
func (c *Catalog) Module(id string) (Module, bool) {
	for _, m := range c.Modules {
		if m.ID == id {
			return m, true
		}
	}
	return Module{}, false
}

// ModuleKeywords returns the keyword fragments for ids in caller order,
// skipping unknown ids.
func (c *Catalog) ModuleKeywords(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if m, ok := c.Module(id); ok {
			out = append(out, m.Keywords)
		}
	}
	return out
}

// ModulesByCategory returns the modules in category, in catalog order.
func (c *Catalog) ModulesByCategory(category string) []Module {
	var out []Module
	for _, m := range c.Modules {
		if m.Category == category {
			out = append(out, m)
		}
	}
	return out
}

// Scene returns the scene with id.
func (c *Catalog) Scene(id string) (Scene, bool) {
	for _, s := range c.Scenes {
		if s.ID == id {
			return s, true
		}
	}
	return Scene{}, false
}

// ScenesByCategory returns the scenes in category, in catalog order.
func (c *Catalog) ScenesByCategory(category string) []Scene {
	var out []Scene
	for _, s := range c.Scenes {
		if s.Category == category {
			out = append(out, s)
		}
	}
	return out
}

// displayName derives a label from an id such as "golden-hour".
func displayName(id string) string {
	return cases.Title(language.English).String(strings.NewReplacer("-", " ", "_", " ").Replace(id))
}
