package imagegen

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"thumbnail_studio/core"
)

// OpenAIProvider generates images through the OpenAI images endpoint.
// Azure OpenAI resources are detected from the base URL and use the
// Azure request shape.
//
// Reference images are not supported by this endpoint and are ignored.
type OpenAIProvider struct {
	client     *openai.Client
	downloader *Downloader
	model      string
}

// OpenAIProviderConfig holds configuration specific to the OpenAI provider.
type OpenAIProviderConfig struct {
	// APIKey is the OpenAI API key (required)
	APIKey string

	// BaseURL is the API endpoint (default: https://api.openai.com/v1)
	BaseURL string

	// Model is the image model to use (default: gpt-image-1)
	Model string
}

// DefaultOpenAIProviderConfig returns sensible defaults for OpenAI image generation.
func DefaultOpenAIProviderConfig() OpenAIProviderConfig {
	return OpenAIProviderConfig{
		BaseURL: "https://api.openai.com/v1",
		Model:   string(core.ModelGPTImage),
	}
}

// NewOpenAIProvider creates a provider from the service configuration.
func NewOpenAIProvider(cfg *core.Config) (*OpenAIProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("imagegen: config cannot be nil")
	}
	return NewOpenAIProviderWithConfig(OpenAIProviderConfig{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIImageModel,
	}, cfg)
}

// NewOpenAIProviderWithConfig creates an OpenAI provider with explicit
// configuration. coreCfg supplies HTTP client settings and may be nil.
func NewOpenAIProviderWithConfig(providerCfg OpenAIProviderConfig, coreCfg *core.Config) (*OpenAIProvider, error) {
	if providerCfg.APIKey == "" {
		return nil, fmt.Errorf("imagegen: OpenAI API key is required")
	}

	endpoint := providerCfg.BaseURL
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1"
	}

	var clientConfig openai.ClientConfig
	if IsAzureEndpoint(endpoint) {
		clientConfig = openai.DefaultAzureConfig(providerCfg.APIKey, endpoint)
	} else {
		clientConfig = openai.DefaultConfig(providerCfg.APIKey)
		clientConfig.BaseURL = endpoint
	}

	downloader := NewDownloaderWithClient(nil)
	if coreCfg != nil {
		clientConfig.HTTPClient = core.GetHTTPClient(coreCfg, coreCfg.AITimeout)
		downloader = NewDownloaderWithClient(core.GetDefaultHTTPClient(coreCfg))
	}

	model := providerCfg.Model
	if model == "" {
		model = string(core.ModelGPTImage)
	}

	return &OpenAIProvider{
		client:     openai.NewClientWithConfig(clientConfig),
		downloader: downloader,
		model:      model,
	}, nil
}

// GenerateImages requests req.Count images in a single call.
func (p *OpenAIProvider) GenerateImages(ctx context.Context, req ImageRequest) ([]string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	imgReq := openai.ImageRequest{
		Prompt: req.Prompt,
		Model:  p.model,
		N:      normalizeCount(req.Count),
		Size:   OpenAISize(p.model, req.AspectRatio),
	}
	// gpt-image models always answer with base64 and reject response_format.
	if strings.HasPrefix(p.model, "dall-e") {
		imgReq.ResponseFormat = openai.CreateImageResponseFormatB64JSON
	}
	if p.model == "dall-e-3" {
		imgReq.N = 1
		imgReq.Style = openai.CreateImageStyleVivid
	}

	response, err := p.client.CreateImage(ctx, imgReq)
	if err != nil {
		return nil, fmt.Errorf("imagegen: OpenAI image generation failed: %w", err)
	}

	urls := make([]string, 0, len(response.Data))
	for _, item := range response.Data {
		switch {
		case item.B64JSON != "":
			urls = append(urls, B64DataURL("image/png", item.B64JSON))
		case item.URL != "":
			dataURL, err := p.downloader.FetchDataURL(ctx, item.URL)
			if err != nil {
				return nil, err
			}
			urls = append(urls, dataURL)
		}
	}
	if len(urls) == 0 {
		return nil, ErrNoImages
	}
	return urls, nil
}

// Model returns the configured image model name.
func (p *OpenAIProvider) Model() string {
	return p.model
}

var _ ImageGenerator = (*OpenAIProvider)(nil)
