package prompt

import (
	"strings"

	"thumbnail_studio/core"
)

var (
	brandKeywords   = []string{"can-am", "polaris"}
	qualityKeywords = []string{"8k", "4k", "hyperrealistic", "photorealistic", "high quality", "professional"}
	actionKeywords  = []string{"driving", "racing", "drifting", "speed", "action"}
)

// Enhance expands a short prompt into a fuller photographic description.
// The vehicle description is prefixed when the prompt names no brand.
func (c *Catalog) Enhance(prompt string, vehicle core.VehicleType) string {
	enhanced := prompt

	if vehicle != "" && !containsAny(prompt, brandKeywords) {
		enhanced = c.VehicleDescription(vehicle) + ", " + enhanced
	}
	if !containsAny(enhanced, qualityKeywords) {
		enhanced += ", hyperrealistic 8K professional photography"
	}
	if containsAny(enhanced, actionKeywords) && !containsAny(enhanced, []string{"cinematic"}) {
		enhanced += ", cinematic composition"
	}
	return enhanced
}

func containsAny(s string, keywords []string) bool {
	lower := strings.ToLower(s)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
