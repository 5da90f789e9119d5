package validation

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"thumbnail_studio/core"
	"thumbnail_studio/prompt"
)

// Check names, usable in Check.Requires.
const (
	CheckEnvFile     = "Environment File"
	CheckCredentials = "Provider Credentials"
	CheckDataDir     = "Data Directory"
	CheckDiskSpace   = "Disk Space"
	CheckCatalog     = "Prompt Catalog"
)

// MinFreeDisk is the free space below which the disk check warns.
const MinFreeDisk int64 = 256 << 20

// StartupChecks returns the checks run before the studio starts. Provider
// reachability is only checked when client is non-nil.
func StartupChecks(cfg *core.Config, envPath string, client *http.Client) []Check {
	checks := []Check{
		EnvFileCheck(envPath),
		CredentialsCheck(cfg),
		DataDirCheck(cfg.DatabasePath),
		DiskSpaceCheck(cfg.DatabasePath, MinFreeDisk),
		CatalogCheck(cfg.PromptCatalogPath),
	}
	if client == nil {
		return checks
	}
	if cfg.HasGemini() {
		checks = append(checks, ConnectivityCheck("Gemini API", cfg.GeminiBaseURL, client))
	}
	if cfg.HasOpenAI() {
		checks = append(checks, ConnectivityCheck("OpenAI API", cfg.OpenAIBaseURL, client))
	}
	return checks
}

// EnvFileCheck warns when the .env file is missing; variables may still
// come from the process environment.
func EnvFileCheck(path string) Check {
	return Check{
		Name: CheckEnvFile,
		Run: func(ctx context.Context) Outcome {
			info, err := os.Stat(path)
			switch {
			case os.IsNotExist(err):
				return Warn("not found, using process environment", core.ErrEnvFileMissing(path))
			case err != nil:
				return Warn("cannot read "+path, err)
			case info.IsDir():
				return Fail(path+" is a directory", fmt.Errorf("validation: %s is a directory", path))
			}
			return Pass(path)
		},
	}
}

// CredentialsCheck requires at least one image provider key.
func CredentialsCheck(cfg *core.Config) Check {
	return Check{
		Name: CheckCredentials,
		Run: func(ctx context.Context) Outcome {
			var providers []string
			if cfg.HasGemini() {
				providers = append(providers, "gemini")
			}
			if cfg.HasOpenAI() {
				providers = append(providers, "openai")
			}
			if len(providers) == 0 {
				return Fail("no image provider configured", core.ErrMissingAuth("image"))
			}
			return Pass(strings.Join(providers, ", "))
		},
	}
}

// DataDirCheck creates the database directory and proves it is writable.
func DataDirCheck(dbPath string) Check {
	return Check{
		Name: CheckDataDir,
		Run: func(ctx context.Context) Outcome {
			dir := filepath.Dir(dbPath)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return Fail("cannot create "+dir, err)
			}
			f, err := os.CreateTemp(dir, ".write-check-*")
			if err != nil {
				return Fail(dir+" is not writable", err)
			}
			name := f.Name()
			f.Close()
			os.Remove(name)
			return Pass(dir)
		},
	}
}

// DiskSpaceCheck warns when less than min bytes are free next to the database.
func DiskSpaceCheck(dbPath string, min int64) Check {
	return Check{
		Name:     CheckDiskSpace,
		Requires: CheckDataDir,
		Run: func(ctx context.Context) Outcome {
			space, err := GetDiskSpace(dbPath)
			if err != nil {
				return Warn("unknown", err)
			}
			msg := formatBytes(space.Free) + " free of " + formatBytes(space.Total)
			if space.Free < min {
				return Warn(msg, fmt.Errorf("validation: less than %s free", formatBytes(min)))
			}
			return Pass(msg)
		},
	}
}

// CatalogCheck parses the catalog override file when one is configured.
func CatalogCheck(path string) Check {
	return Check{
		Name: CheckCatalog,
		Run: func(ctx context.Context) Outcome {
			cat, err := prompt.LoadCatalogFile(path)
			if err != nil {
				return Fail("invalid "+path, err)
			}
			source := "built-in"
			if path != "" {
				source = path
			}
			return Pass(fmt.Sprintf("%s (%d scenes, %d modules)", source, len(cat.Scenes), len(cat.Modules)))
		},
	}
}

// ConnectivityCheck warns when baseURL cannot be reached. Any HTTP response
// counts as reachable.
func ConnectivityCheck(name, baseURL string, client *http.Client) Check {
	return Check{
		Name:     name,
		Requires: CheckCredentials,
		Run: func(ctx context.Context) Outcome {
			ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()

			req, err := http.NewRequestWithContext(ctx, http.MethodHead, baseURL, nil)
			if err != nil {
				return Warn("invalid URL "+baseURL, err)
			}
			start := time.Now()
			resp, err := client.Do(req)
			if err != nil {
				return Warn("unreachable", err)
			}
			resp.Body.Close()
			return Pass(fmt.Sprintf("%s (HTTP %d, %v)", baseURL, resp.StatusCode, time.Since(start).Round(time.Millisecond)))
		},
	}
}
