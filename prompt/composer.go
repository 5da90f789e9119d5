package prompt

import (
	"strings"

	"thumbnail_studio/core"
)

// Input is everything that contributes to a final prompt. Mods are display
// names; SceneKeywords and ModuleKeywords are already-resolved fragments.
type Input struct {
	Base           string
	Vehicle        core.VehicleType
	Mods           []string
	SceneKeywords  string
	ModuleKeywords []string
	NegativeTerms  []string
}

// Compose builds the final prompt text for in. It is pure: the same input
// always produces the same string.
func Compose(in Input) string {
	positive, negative := ComposeParts(in)
	if negative == "" {
		return positive
	}
	if positive == "" {
		return "Avoid: " + negative
	}
	return positive + ". Avoid: " + negative
}

// ComposeParts returns the positive description and the negative directive
// separately. Negative terms never appear in the positive part.
func ComposeParts(in Input) (positive, negative string) {
	base := strings.TrimSpace(in.Base)
	parts := make([]string, 0, 4+len(in.ModuleKeywords))

	if v := strings.TrimSpace(string(in.Vehicle)); v != "" &&
		!strings.Contains(strings.ToLower(base), strings.ToLower(v)) {
		parts = append(parts, v)
	}
	if base != "" {
		parts = append(parts, base)
	}
	if mods := nonEmpty(in.Mods); len(mods) > 0 {
		parts = append(parts, "equipped with "+joinWithAnd(mods))
	}
	if scene := strings.TrimSpace(in.SceneKeywords); scene != "" {
		parts = append(parts, scene)
	}
	parts = append(parts, nonEmpty(in.ModuleKeywords)...)

	return strings.Join(parts, ", "), strings.Join(dedupe(in.NegativeTerms), ", ")
}

// joinWithAnd renders ["a","b","c"] as "a, b and c".
func joinWithAnd(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
}

func nonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// dedupe trims and removes repeated terms, case-insensitively, keeping the
// first spelling.
func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, s := range nonEmpty(items) {
		k := strings.ToLower(s)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	return out
}
