package core

import (
	"errors"
	"fmt"
)

// ConfigError is a startup configuration problem. Action tells the operator
// how to fix it and is printed beneath the message.
type ConfigError struct {
	Code    string
	Message string
	Action  string
}

func (e *ConfigError) Error() string {
	if e.Action == "" {
		return e.Message
	}
	return e.Message + ". " + e.Action
}

// Configuration error codes.
const (
	ErrCodeEnvFileMissing = "ENV_FILE_MISSING"
	ErrCodeMissingAuth    = "MISSING_AUTH"
	ErrCodeMissingConfig  = "MISSING_CONFIG"
	ErrCodeInvalidValue   = "INVALID_VALUE"
	ErrCodeCatalogInvalid = "CATALOG_INVALID"
)

var authEnvVars = map[string]string{
	"gemini": "GEMINI_API_KEY",
	"openai": "OPENAI_API_KEY",
	"image":  "GEMINI_API_KEY or OPENAI_API_KEY",
}

func ErrEnvFileMissing(path string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeEnvFileMissing,
		Message: "env file not found: " + path,
		Action:  "Create it with at least GEMINI_API_KEY or OPENAI_API_KEY, or export the variables directly",
	}
}

// ErrMissingAuth reports absent credentials for service ("gemini", "openai"
// or "image" for either provider).
func ErrMissingAuth(service string) *ConfigError {
	envVar, ok := authEnvVars[service]
	if !ok {
		envVar = "the API key for " + service
	}
	return &ConfigError{
		Code:    ErrCodeMissingAuth,
		Message: "no credentials configured for " + service + " generation",
		Action:  "Set " + envVar,
	}
}

func ErrMissingConfig(varName string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeMissingConfig,
		Message: "missing required setting " + varName,
		Action:  "Set " + varName + " or remove the empty override",
	}
}

func ErrInvalidValue(varName, value, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidValue,
		Message: fmt.Sprintf("invalid %s %q: %s", varName, value, reason),
		Action:  "Fix " + varName,
	}
}

func ErrCatalogInvalid(path, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeCatalogInvalid,
		Message: fmt.Sprintf("prompt catalog %s: %s", path, reason),
		Action:  "Fix the YAML document or unset PROMPT_CATALOG_PATH",
	}
}

// IsConfigError returns the *ConfigError in err's chain, if any.
func IsConfigError(err error) (*ConfigError, bool) {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// GetErrorCode returns the ConfigError code in err's chain, or "".
func GetErrorCode(err error) string {
	if ce, ok := IsConfigError(err); ok {
		return ce.Code
	}
	return ""
}
