package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"thumbnail_studio/core"
)

// GeminiProvider talks to the Generative Language API. Imagen models use the
// predict endpoint and return every image in one response; Gemini Flash
// Image returns one image per generateContent call, so Count calls are made
// concurrently.
type GeminiProvider struct {
	apiKey     string
	baseURL    string
	apiVersion string
	httpClient *http.Client
}

// GeminiProviderConfig holds configuration for the Gemini provider.
type GeminiProviderConfig struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	HTTPClient *http.Client
}

// DefaultGeminiProviderConfig returns the public endpoint settings.
func DefaultGeminiProviderConfig() GeminiProviderConfig {
	return GeminiProviderConfig{
		BaseURL:    "https://generativelanguage.googleapis.com",
		APIVersion: "v1beta",
	}
}

// NewGeminiProvider creates a provider from the service configuration.
func NewGeminiProvider(cfg *core.Config) (*GeminiProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("imagegen: config cannot be nil")
	}
	pc := DefaultGeminiProviderConfig()
	pc.APIKey = cfg.GeminiAPIKey
	if cfg.GeminiBaseURL != "" {
		pc.BaseURL = cfg.GeminiBaseURL
	}
	pc.HTTPClient = core.GetHTTPClient(cfg, cfg.AITimeout)
	return NewGeminiProviderWithConfig(pc)
}

// NewGeminiProviderWithConfig creates a provider with explicit settings.
func NewGeminiProviderWithConfig(cfg GeminiProviderConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("imagegen: Gemini API key is required")
	}
	defaults := DefaultGeminiProviderConfig()
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaults.BaseURL
	}
	apiVersion := strings.TrimSpace(cfg.APIVersion)
	if apiVersion == "" {
		apiVersion = defaults.APIVersion
	}
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &GeminiProvider{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		apiVersion: apiVersion,
		httpClient: client,
	}, nil
}

// GenerateImages dispatches on the model family.
func (p *GeminiProvider) GenerateImages(ctx context.Context, req ImageRequest) ([]string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, ErrEmptyPrompt
	}
	switch req.Model {
	case core.ModelImagen:
		return p.predict(ctx, req)
	case core.ModelGeminiFlashImage:
		return p.generateContentN(ctx, req)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedModel, req.Model)
	}
}

type predictRequest struct {
	Instances  []predictInstance `json:"instances"`
	Parameters predictParameters `json:"parameters"`
}

type predictInstance struct {
	Prompt string `json:"prompt"`
}

type predictParameters struct {
	SampleCount    int    `json:"sampleCount"`
	AspectRatio    string `json:"aspectRatio,omitempty"`
	OutputMimeType string `json:"outputMimeType,omitempty"`
}

type predictResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
		MimeType           string `json:"mimeType"`
	} `json:"predictions"`
}

func (p *GeminiProvider) predict(ctx context.Context, req ImageRequest) ([]string, error) {
	payload := predictRequest{
		Instances: []predictInstance{{Prompt: req.Prompt}},
		Parameters: predictParameters{
			SampleCount:    normalizeCount(req.Count),
			AspectRatio:    req.AspectRatio,
			OutputMimeType: "image/jpeg",
		},
	}

	var decoded predictResponse
	if err := p.post(ctx, string(req.Model), "predict", payload, &decoded); err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(decoded.Predictions))
	for _, pred := range decoded.Predictions {
		if pred.BytesBase64Encoded == "" {
			continue
		}
		mime := pred.MimeType
		if mime == "" {
			mime = "image/jpeg"
		}
		urls = append(urls, B64DataURL(mime, pred.BytesBase64Encoded))
	}
	if len(urls) == 0 {
		return nil, ErrNoImages
	}
	return urls, nil
}

type generateContentRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string `json:"text,omitempty"`
	InlineData *blob  `json:"inlineData,omitempty"`
}

type blob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseModalities []string     `json:"responseModalities,omitempty"`
	ImageConfig        *imageConfig `json:"imageConfig,omitempty"`
}

type imageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (p *GeminiProvider) generateContentN(ctx context.Context, req ImageRequest) ([]string, error) {
	n := normalizeCount(req.Count)
	results := make([]string, n)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			url, err := p.generateContent(gctx, req)
			if err != nil {
				return err
			}
			results[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *GeminiProvider) generateContent(ctx context.Context, req ImageRequest) (string, error) {
	var parts []part
	if req.Reference != nil && len(req.Reference.Data) > 0 {
		parts = append(parts, part{InlineData: &blob{
			MimeType: req.Reference.MimeType,
			Data:     base64.StdEncoding.EncodeToString(req.Reference.Data),
		}})
	}
	parts = append(parts, part{Text: req.Prompt})

	payload := generateContentRequest{
		Contents: []content{{Role: "user", Parts: parts}},
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"IMAGE"},
		},
	}
	if req.AspectRatio != "" {
		payload.GenerationConfig.ImageConfig = &imageConfig{AspectRatio: req.AspectRatio}
	}

	var decoded generateContentResponse
	if err := p.post(ctx, string(req.Model), "generateContent", payload, &decoded); err != nil {
		return "", err
	}
	for _, cand := range decoded.Candidates {
		for _, pt := range cand.Content.Parts {
			if pt.InlineData != nil && pt.InlineData.Data != "" {
				return B64DataURL(pt.InlineData.MimeType, pt.InlineData.Data), nil
			}
		}
	}
	return "", ErrNoImages
}

// APIError is a non-2xx answer from the Generative Language API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("imagegen: gemini API status %d: %s", e.StatusCode, e.Body)
}

func (p *GeminiProvider) post(ctx context.Context, model, method string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("imagegen: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/models/%s:%s", p.baseURL, p.apiVersion, model, method)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("imagegen: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("imagegen: gemini request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("imagegen: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("imagegen: decode response: %w", err)
	}
	return nil
}

var _ ImageGenerator = (*GeminiProvider)(nil)
