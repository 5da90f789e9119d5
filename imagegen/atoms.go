package imagegen

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// IsAzureEndpoint reports whether endpoint is an Azure OpenAI resource.
//
//	IsAzureEndpoint("https://myresource.openai.azure.com")  // true
//	IsAzureEndpoint("https://api.openai.com/v1")            // false
func IsAzureEndpoint(endpoint string) bool {
	if endpoint == "" {
		return false
	}
	lower := strings.ToLower(endpoint)
	return strings.Contains(lower, "openai.azure.com") ||
		strings.Contains(lower, "cognitiveservices.azure.com")
}

// DataURL encodes raw bytes as a base64 data URL.
func DataURL(mimeType string, data []byte) string {
	return B64DataURL(mimeType, base64.StdEncoding.EncodeToString(data))
}

// B64DataURL wraps an already base64-encoded payload.
func B64DataURL(mimeType, b64 string) string {
	if mimeType == "" {
		mimeType = "image/png"
	}
	return "data:" + mimeType + ";base64," + b64
}

// ParseDataURL splits a base64 data URL into its MIME type and decoded bytes.
func ParseDataURL(u string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(u, "data:")
	if !ok {
		return "", nil, fmt.Errorf("imagegen: not a data URL")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("imagegen: malformed data URL")
	}
	mimeType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("imagegen: data URL is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("imagegen: decode data URL: %w", err)
	}
	return mimeType, data, nil
}

// OpenAISize maps an aspect ratio onto the closest size the OpenAI images
// endpoint accepts for model.
func OpenAISize(model, aspectRatio string) string {
	wide, tall := "1536x1024", "1024x1536"
	if strings.HasPrefix(model, "dall-e") {
		wide, tall = "1792x1024", "1024x1792"
	}
	switch aspectRatio {
	case "16:9", "4:3":
		return wide
	case "9:16", "3:4":
		return tall
	default:
		return "1024x1024"
	}
}

// mimeFromContentType strips parameters from a Content-Type header.
func mimeFromContentType(contentType string) string {
	lower := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(lower, ";"); idx != -1 {
		lower = strings.TrimSpace(lower[:idx])
	}
	if !strings.HasPrefix(lower, "image/") {
		return "image/png"
	}
	return lower
}
