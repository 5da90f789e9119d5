package core

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// lookupEnv returns the trimmed value of key and whether it is non-empty.
func lookupEnv(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

// GetEnvOrDefault returns the value of key, or def when it is unset or blank.
func GetEnvOrDefault(key, def string) string {
	if v, ok := lookupEnv(key); ok {
		return v
	}
	return def
}

// ParseIntEnv reads key as an integer, falling back to def on absence or
// parse failure.
func ParseIntEnv(key string, def int) int {
	v, ok := lookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// ParseBoolEnv reads key as a boolean. true/1/yes/on and false/0/no/off are
// accepted in any case; anything else yields def.
func ParseBoolEnv(key string, def bool) bool {
	v, ok := lookupEnv(key)
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	return def
}

// ParseDurationEnv reads key as a duration. A bare integer is seconds
// ("60"), otherwise Go duration syntax is used ("1500ms", "2m").
func ParseDurationEnv(key string, defSeconds int) time.Duration {
	def := time.Duration(defSeconds) * time.Second
	v, ok := lookupEnv(key)
	if !ok {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return def
}

// ParseListEnv reads key as a comma-separated list. Blank entries are
// dropped; an empty result yields def.
func ParseListEnv(key string, def []string) []string {
	v, ok := lookupEnv(key)
	if !ok {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
