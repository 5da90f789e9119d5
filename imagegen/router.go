package imagegen

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"thumbnail_studio/core"
	"thumbnail_studio/logging"
)

// Router dispatches requests to the provider registered for req.Model.
type Router struct {
	mu        sync.RWMutex
	providers map[core.ImageModel]ImageGenerator
}

// NewRouter returns an empty router.
func NewRouter() *Router {
	return &Router{providers: make(map[core.ImageModel]ImageGenerator)}
}

// NewRouterFromConfig registers every provider that cfg has credentials for.
//
// Provider selection:
//   - GEMINI_API_KEY set -> Imagen and Gemini Flash Image
//   - OPENAI_API_KEY set -> gpt-image-1 (or Azure when the base URL is Azure)
func NewRouterFromConfig(cfg *core.Config, logger *logging.Logger) (*Router, error) {
	if cfg == nil {
		return nil, fmt.Errorf("imagegen: config cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("imagegen: logger cannot be nil")
	}
	log := logger.Named("imagegen-init")

	r := NewRouter()
	if cfg.HasGemini() {
		gemini, err := NewGeminiProvider(cfg)
		if err != nil {
			return nil, fmt.Errorf("imagegen: failed to create Gemini provider: %w", err)
		}
		r.Register(core.ModelImagen, gemini)
		r.Register(core.ModelGeminiFlashImage, gemini)
		log.Info("registered Gemini provider", zap.String("base_url", cfg.GeminiBaseURL))
	}
	if cfg.HasOpenAI() {
		oai, err := NewOpenAIProvider(cfg)
		if err != nil {
			return nil, fmt.Errorf("imagegen: failed to create OpenAI provider: %w", err)
		}
		r.Register(core.ModelGPTImage, oai)
		log.Info("registered OpenAI provider",
			zap.String("model", oai.Model()),
			zap.Bool("azure", IsAzureEndpoint(cfg.OpenAIBaseURL)))
	}
	if len(r.Models()) == 0 {
		return nil, core.ErrMissingAuth("image")
	}
	return r, nil
}

// Register binds model to gen, replacing any previous binding.
func (r *Router) Register(model core.ImageModel, gen ImageGenerator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[model] = gen
}

// Models returns the models with a registered provider, sorted.
func (r *Router) Models() []core.ImageModel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.ImageModel, 0, len(r.providers))
	for m := range r.providers {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Supports reports whether a provider is registered for model.
func (r *Router) Supports(model core.ImageModel) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.providers[model]
	return ok
}

// GenerateImages forwards req to the provider for req.Model.
func (r *Router) GenerateImages(ctx context.Context, req ImageRequest) ([]string, error) {
	r.mu.RLock()
	gen, ok := r.providers[req.Model]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedModel, req.Model)
	}
	if req.Reference != nil && !req.Model.SupportsReference() {
		req.Reference = nil
	}
	return gen.GenerateImages(ctx, req)
}

var _ ImageGenerator = (*Router)(nil)
