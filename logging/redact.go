package logging

import (
	"regexp"
	"strings"
)

// RedactedPlaceholder replaces sensitive values in log output.
const RedactedPlaceholder = "[REDACTED]"

// Hex tokens must stand alone so that 64-char cache keys and
// content hashes pass through untouched.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(sk-[a-zA-Z0-9_-]{20,})`),        // OpenAI keys, legacy and project-scoped
	regexp.MustCompile(`(AIza[a-zA-Z0-9_-]{35})`),            // Google API keys
	regexp.MustCompile(`(?i)\b([a-f0-9]{32})\b`),             // bare 32-char hex tokens
	regexp.MustCompile(`(?i)(bearer\s+[a-zA-Z0-9._-]{20,})`), // Authorization headers
	regexp.MustCompile(`(?i)((?:x-goog-)?api[_-]?key\s*[:=]\s*[^\s,;&]{8,})`),
	regexp.MustCompile(`(?i)(password\s*[:=]\s*[^\s,;]{8,})`),
	regexp.MustCompile(`(?i)(secret\s*[:=]\s*[^\s,;]{8,})`),
	regexp.MustCompile(`(?i)(token\s*[:=]\s*[^\s,;]{8,})`),
}

var sensitiveKeyFragments = []string{
	"API_KEY",
	"APIKEY",
	"WEBUI_PWD",
	"PASSWORD",
	"SECRET",
	"TOKEN",
	"AUTHORIZATION",
}

// RedactSensitiveData replaces every detected credential in value.
func RedactSensitiveData(value string) string {
	if value == "" {
		return value
	}
	result := value
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, RedactedPlaceholder)
	}
	return result
}

// IsSensitiveField reports whether a field or variable name denotes a secret.
func IsSensitiveField(name string) bool {
	upper := strings.ToUpper(name)
	for _, fragment := range sensitiveKeyFragments {
		if strings.Contains(upper, fragment) {
			return true
		}
	}
	return false
}

// ContainsSensitiveData reports whether value matches any credential pattern.
func ContainsSensitiveData(value string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}
