package studio

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf16"
)

// KeyHasher turns the canonical request encoding into a cache key.
type KeyHasher interface {
	Sum(canonical []byte) string
}

// SHA256Hasher yields 64 lowercase hex characters. It is the default.
type SHA256Hasher struct{}

func (SHA256Hasher) Sum(canonical []byte) string {
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// Rolling32Hasher is a non-cryptographic fallback: h = h*31 + c over the
// UTF-16 code units, wrapped to int32, rendered as 8 hex characters.
// Collisions are likely across large histories.
type Rolling32Hasher struct{}

func (Rolling32Hasher) Sum(canonical []byte) string {
	var h int32
	for _, c := range utf16.Encode([]rune(string(canonical))) {
		h = h*31 + int32(c)
	}
	return fmt.Sprintf("%08x", uint32(h))
}

// ComputeKey returns the SHA-256 cache key of req.
func ComputeKey(req GenerationRequest) (string, error) {
	return ComputeKeyWith(SHA256Hasher{}, req)
}

// ComputeKeyWith hashes the canonical encoding of req with h.
func ComputeKeyWith(h KeyHasher, req GenerationRequest) (string, error) {
	canonical, err := CanonicalRequest(req)
	if err != nil {
		return "", err
	}
	return h.Sum(canonical), nil
}

// CanonicalRequest encodes every key-relevant field of req as JSON with
// sorted object keys. Set-valued fields are trimmed, de-duplicated and
// sorted; style modules keep their order. The reference image is excluded.
func CanonicalRequest(req GenerationRequest) ([]byte, error) {
	payload := map[string]any{
		"prompt":             strings.TrimSpace(req.Prompt),
		"model":              string(req.Model),
		"aspectRatio":        req.AspectRatio,
		"imageCount":         req.ImageCount,
		"vehicle":            string(req.Vehicle),
		"mods":               canonicalSet(req.Mods),
		"activeStyleModules": canonicalList(req.ActiveStyleModules),
		"sceneId":            req.SceneID,
		"negativeTerms":      canonicalSet(req.NegativeTerms),
	}
	// encoding/json writes map keys in sorted order.
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("studio: encode cache key payload: %w", err)
	}
	return data, nil
}

func canonicalList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func canonicalSet(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, s := range canonicalList(items) {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
