package studio

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"thumbnail_studio/core"
	"thumbnail_studio/imagegen"
)

// GenerationRequest is one user-initiated generation.
//
// Mods and NegativeTerms are sets: order and duplicates do not affect the
// cache key. ActiveStyleModules is ordered. Reference never contributes to
// the cache key.
type GenerationRequest struct {
	Prompt             string              `json:"prompt" validate:"required"`
	Model              core.ImageModel     `json:"model" validate:"image_model"`
	AspectRatio        string              `json:"aspectRatio" validate:"aspect_ratio"`
	ImageCount         int                 `json:"imageCount" validate:"min=1,max=4"`
	Vehicle            core.VehicleType    `json:"vehicle,omitempty" validate:"omitempty,vehicle"`
	Mods               []string            `json:"mods,omitempty"`
	ActiveStyleModules []string            `json:"activeStyleModules,omitempty"`
	SceneID            string              `json:"sceneId,omitempty"`
	NegativeTerms      []string            `json:"negativeTerms,omitempty"`
	Reference          *imagegen.Reference `json:"-"`
}

// Settings returns the persisted generation settings of r.
func (r GenerationRequest) Settings() core.GenerationSettings {
	return core.GenerationSettings{
		AspectRatio:    r.AspectRatio,
		NumberOfImages: r.ImageCount,
		Model:          r.Model,
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterValidation("image_model", func(fl validator.FieldLevel) bool {
		return core.ImageModel(fl.Field().String()).Valid()
	})
	v.RegisterValidation("aspect_ratio", func(fl validator.FieldLevel) bool {
		return slices.Contains(core.AspectRatios, fl.Field().String())
	})
	v.RegisterValidation("vehicle", func(fl validator.FieldLevel) bool {
		return slices.Contains(core.AllVehicles(), core.VehicleType(fl.Field().String()))
	})
	return v
}

// Validate checks r and returns a *ValidationError for the first problem.
func (r GenerationRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return &ValidationError{Field: "prompt", Reason: "must not be empty"}
	}
	return ValidateStruct(r)
}

// ValidateStruct runs the struct tag rules on v and maps the first failure
// onto a *ValidationError.
func ValidateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ValidationError{Field: lowerFirst(fe.Field()), Reason: reasonFor(fe)}
	}
	return &ValidationError{Reason: err.Error()}
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "image_model":
		return fmt.Sprintf("unknown model %q", fe.Value())
	case "aspect_ratio":
		return "must be one of " + strings.Join(core.AspectRatios, ", ")
	case "vehicle":
		return "unknown vehicle"
	default:
		return "failed " + fe.Tag()
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
