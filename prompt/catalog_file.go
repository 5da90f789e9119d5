package prompt

import (
	"bytes"
	"errors"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"thumbnail_studio/core"
)

// LoadCatalogFile reads a YAML override document and merges it over the
// built-in catalog. Entries replace defaults with the same id (or vehicle
// type) and new ids are appended. A non-empty negatives or presets list
// replaces the default list. An empty path returns the defaults.
func LoadCatalogFile(path string) (*Catalog, error) {
	cat := DefaultCatalog()
	if path == "" {
		return cat, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.ErrCatalogInvalid(path, err.Error())
	}

	override, err := parseCatalog(data)
	if err != nil {
		return nil, core.ErrCatalogInvalid(path, err.Error())
	}
	if err := override.validate(); err != nil {
		return nil, core.ErrCatalogInvalid(path, err.Error())
	}

	cat.Merge(override)
	return cat, nil
}

func parseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		if errors.Is(err, io.EOF) {
			return &c, nil
		}
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	for _, m := range c.Modules {
		if m.ID == "" {
			return errors.New("module without id")
		}
		if m.Keywords == "" {
			return errors.New("module " + m.ID + " has no keywords")
		}
	}
	for _, s := range c.Scenes {
		if s.ID == "" {
			return errors.New("scene without id")
		}
	}
	for _, m := range c.Mods {
		if m.ID == "" {
			return errors.New("mod without id")
		}
	}
	for _, v := range c.Vehicles {
		if v.Type == "" {
			return errors.New("vehicle without type")
		}
	}
	return nil
}

// Merge applies other over c. Missing display names are derived from ids.
func (c *Catalog) Merge(other *Catalog) {
	for _, v := range other.Vehicles {
		replaced := false
		for i := range c.Vehicles {
			if c.Vehicles[i].Type == v.Type {
				c.Vehicles[i] = v
				replaced = true
				break
			}
		}
		if !replaced {
			c.Vehicles = append(c.Vehicles, v)
		}
	}

	for _, m := range other.Mods {
		if m.Name == "" {
			m.Name = displayName(m.ID)
		}
		if i := indexOf(c.Mods, func(x Mod) bool { return x.ID == m.ID }); i >= 0 {
			c.Mods[i] = m
		} else {
			c.Mods = append(c.Mods, m)
		}
	}

	for _, m := range other.Modules {
		if m.Name == "" {
			m.Name = displayName(m.ID)
		}
		if i := indexOf(c.Modules, func(x Module) bool { return x.ID == m.ID }); i >= 0 {
			c.Modules[i] = m
		} else {
			c.Modules = append(c.Modules, m)
		}
	}

	for _, s := range other.Scenes {
		if s.Name == "" {
			s.Name = displayName(s.ID)
		}
		if i := indexOf(c.Scenes, func(x Scene) bool { return x.ID == s.ID }); i >= 0 {
			c.Scenes[i] = s
		} else {
			c.Scenes = append(c.Scenes, s)
		}
	}

	if len(other.Negatives) > 0 {
		c.Negatives = append([]string(nil), other.Negatives...)
	}
	if len(other.Presets.Action) > 0 {
		c.Presets.Action = append([]string(nil), other.Presets.Action...)
	}
	if len(other.Presets.Setting) > 0 {
		c.Presets.Setting = append([]string(nil), other.Presets.Setting...)
	}
	if len(other.Presets.Style) > 0 {
		c.Presets.Style = append([]string(nil), other.Presets.Style...)
	}
	if len(other.Presets.Lighting) > 0 {
		c.Presets.Lighting = append([]string(nil), other.Presets.Lighting...)
	}
}

func indexOf[T any](items []T, match func(T) bool) int {
	for i, item := range items {
		if match(item) {
			return i
		}
	}
	return -1
}
