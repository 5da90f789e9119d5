package imagegen

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"thumbnail_studio/core"
)

func newTestGemini(t *testing.T, handler http.HandlerFunc) *GeminiProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewGeminiProviderWithConfig(GeminiProviderConfig{
		APIKey:     "test-key",
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
	})
	if err != nil {
		t.Fatalf("NewGeminiProviderWithConfig() error = %v", err)
	}
	return p
}

func TestGeminiProvider_Imagen(t *testing.T) {
	var got predictRequest
	p := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/imagen-4.0-generate-001:predict" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Write([]byte(`{"predictions":[{"bytesBase64Encoded":"AAA=","mimeType":"image/jpeg"},{"bytesBase64Encoded":"BBB="}]}`))
	})

	urls, err := p.GenerateImages(context.Background(), ImageRequest{
		Prompt:      "Can-Am Ryker drifting at sunset",
		Model:       core.ModelImagen,
		AspectRatio: "16:9",
		Count:       2,
	})
	if err != nil {
		t.Fatalf("GenerateImages() error = %v", err)
	}
	if len(urls) != 2 {
		t.Fatalf("got %d urls, want 2", len(urls))
	}
	if urls[0] != "data:image/jpeg;base64,AAA=" || urls[1] != "data:image/jpeg;base64,BBB=" {
		t.Errorf("urls = %v", urls)
	}
	if got.Parameters.SampleCount != 2 || got.Parameters.AspectRatio != "16:9" {
		t.Errorf("parameters = %+v", got.Parameters)
	}
	if len(got.Instances) != 1 || got.Instances[0].Prompt != "Can-Am Ryker drifting at sunset" {
		t.Errorf("instances = %+v", got.Instances)
	}
}

func TestGeminiProvider_FlashFansOut(t *testing.T) {
	var calls atomic.Int32
	var sawReference atomic.Bool
	p := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req generateContentRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.GenerationConfig.ResponseModalities[0] != "IMAGE" {
			t.Errorf("modalities = %v", req.GenerationConfig.ResponseModalities)
		}
		for _, pt := range req.Contents[0].Parts {
			if pt.InlineData != nil && pt.InlineData.Data == "cmVm" {
				sawReference.Store(true)
			}
		}
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"here"},{"inlineData":{"mimeType":"image/png","data":"Q0M="}}]}}]}`))
	})

	urls, err := p.GenerateImages(context.Background(), ImageRequest{
		Prompt:    "studio shot",
		Model:     core.ModelGeminiFlashImage,
		Count:     3,
		Reference: &Reference{Data: []byte("ref"), MimeType: "image/png"},
	})
	if err != nil {
		t.Fatalf("GenerateImages() error = %v", err)
	}
	if len(urls) != 3 {
		t.Errorf("got %d urls, want 3", len(urls))
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
	if !sawReference.Load() {
		t.Error("reference image was not sent")
	}
}

func TestGeminiProvider_Errors(t *testing.T) {
	t.Run("api error", func(t *testing.T) {
		p := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"quota"}`, http.StatusTooManyRequests)
		})
		_, err := p.GenerateImages(context.Background(), ImageRequest{Prompt: "x", Model: core.ModelImagen, Count: 1})
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusTooManyRequests {
			t.Errorf("error = %v, want APIError 429", err)
		}
	})

	t.Run("no images", func(t *testing.T) {
		p := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"sorry"}]}}]}`))
		})
		_, err := p.GenerateImages(context.Background(), ImageRequest{Prompt: "x", Model: core.ModelGeminiFlashImage, Count: 1})
		if !errors.Is(err, ErrNoImages) {
			t.Errorf("error = %v, want ErrNoImages", err)
		}
	})

	t.Run("empty prompt", func(t *testing.T) {
		p := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("server should not be called")
		})
		_, err := p.GenerateImages(context.Background(), ImageRequest{Prompt: "  ", Model: core.ModelImagen})
		if !errors.Is(err, ErrEmptyPrompt) {
			t.Errorf("error = %v, want ErrEmptyPrompt", err)
		}
	})

	t.Run("unsupported model", func(t *testing.T) {
		p := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {})
		_, err := p.GenerateImages(context.Background(), ImageRequest{Prompt: "x", Model: core.ModelGPTImage})
		if !errors.Is(err, ErrUnsupportedModel) {
			t.Errorf("error = %v, want ErrUnsupportedModel", err)
		}
	})
}

func TestNewGeminiProvider_RequiresKey(t *testing.T) {
	if _, err := NewGeminiProviderWithConfig(GeminiProviderConfig{}); err == nil {
		t.Error("expected error for missing API key")
	}
	if _, err := NewGeminiProvider(nil); err == nil {
		t.Error("expected error for nil config")
	}
}
