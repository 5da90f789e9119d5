package studio

import (
	"regexp"
	"testing"

	"thumbnail_studio/core"
	"thumbnail_studio/imagegen"
)

var (
	sha256Hex = regexp.MustCompile(`^[0-9a-f]{64}$`)
	rolling   = regexp.MustCompile(`^[0-9a-f]{8}$`)
)

func TestComputeKey_Deterministic(t *testing.T) {
	req := rykerRequest()
	req.Mods = []string{"led-lights", "exhaust"}
	req.NegativeTerms = []string{"motion blur", "text artifacts"}

	k1, err := ComputeKey(req)
	if err != nil {
		t.Fatalf("ComputeKey() error = %v", err)
	}
	k2, _ := ComputeKey(req)
	if k1 != k2 {
		t.Errorf("keys differ: %s vs %s", k1, k2)
	}
	if !sha256Hex.MatchString(k1) {
		t.Errorf("key %q is not 64 hex chars", k1)
	}
}

func TestComputeKey_Equivalence(t *testing.T) {
	base := rykerRequest()
	base.Mods = []string{"exhaust", "led-lights"}
	base.NegativeTerms = []string{"motion blur", "text artifacts"}
	want, _ := ComputeKey(base)

	tests := []struct {
		name   string
		mutate func(*GenerationRequest)
	}{
		{"mods reordered", func(r *GenerationRequest) { r.Mods = []string{"led-lights", "exhaust"} }},
		{"mods duplicated", func(r *GenerationRequest) { r.Mods = []string{"exhaust", "led-lights", "exhaust"} }},
		{"negatives reordered", func(r *GenerationRequest) { r.NegativeTerms = []string{"text artifacts", "motion blur"} }},
		{"prompt padded", func(r *GenerationRequest) { r.Prompt = "  " + r.Prompt + "\n" }},
		{"reference ignored", func(r *GenerationRequest) {
			r.Reference = &imagegen.Reference{Data: []byte("aW1n"), MimeType: "image/png"}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			tt.mutate(&req)
			got, _ := ComputeKey(req)
			if got != want {
				t.Errorf("key changed: got %s want %s", got, want)
			}
		})
	}
}

func TestComputeKey_Sensitivity(t *testing.T) {
	base := rykerRequest()
	base.ActiveStyleModules = []string{"drift-smoke", "golden-hour"}
	want, _ := ComputeKey(base)

	tests := []struct {
		name   string
		mutate func(*GenerationRequest)
	}{
		{"prompt", func(r *GenerationRequest) { r.Prompt = "Can-Am Ryker parked at sunset" }},
		{"model", func(r *GenerationRequest) { r.Model = core.ModelGeminiFlashImage }},
		{"aspect ratio", func(r *GenerationRequest) { r.AspectRatio = "1:1" }},
		{"image count", func(r *GenerationRequest) { r.ImageCount = 3 }},
		{"vehicle", func(r *GenerationRequest) { r.Vehicle = core.VehicleSlingshot }},
		{"mods", func(r *GenerationRequest) { r.Mods = []string{"exhaust"} }},
		{"module order", func(r *GenerationRequest) { r.ActiveStyleModules = []string{"golden-hour", "drift-smoke"} }},
		{"scene", func(r *GenerationRequest) { r.SceneID = "coastal-highway" }},
		{"negatives", func(r *GenerationRequest) { r.NegativeTerms = []string{"lens flare"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			tt.mutate(&req)
			got, _ := ComputeKey(req)
			if got == want {
				t.Errorf("changing %s did not change the key", tt.name)
			}
		})
	}
}

func TestCanonicalRequest_SortedKeys(t *testing.T) {
	req := rykerRequest()
	req.Mods = []string{"b", "a"}
	data, err := CanonicalRequest(req)
	if err != nil {
		t.Fatalf("CanonicalRequest() error = %v", err)
	}
	want := `{"activeStyleModules":[],"aspectRatio":"16:9","imageCount":2,"model":"imagen-4.0-generate-001",` +
		`"mods":["a","b"],"negativeTerms":[],"prompt":"Can-Am Ryker drifting at sunset","sceneId":"","vehicle":"Can-Am Ryker"}`
	if string(data) != want {
		t.Errorf("CanonicalRequest() =\n%s\nwant\n%s", data, want)
	}
}

func TestRolling32Hasher(t *testing.T) {
	h := Rolling32Hasher{}
	tests := []struct {
		in   string
		want string
	}{
		{"", "00000000"},
		{"a", "00000061"},
		{"ab", "00000c21"},
	}
	for _, tt := range tests {
		if got := h.Sum([]byte(tt.in)); got != tt.want {
			t.Errorf("Sum(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}

	key, err := ComputeKeyWith(h, rykerRequest())
	if err != nil {
		t.Fatalf("ComputeKeyWith() error = %v", err)
	}
	if !rolling.MatchString(key) {
		t.Errorf("rolling key %q is not 8 hex chars", key)
	}
	again, _ := ComputeKeyWith(h, rykerRequest())
	if key != again {
		t.Errorf("rolling key not deterministic: %s vs %s", key, again)
	}
}
