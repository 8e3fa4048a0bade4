package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/genpad/internal/config"
	"github.com/genpad/internal/dispatch"
	"github.com/genpad/internal/generator"
	"github.com/genpad/internal/store"
)

// ConfigCheckResult holds the result of configuration validation
type ConfigCheckResult struct {
	Missing  []string          // Required settings that are missing
	Present  map[string]string // Settings that are set (masked values)
	Warnings []string          // Non-fatal warnings
}

// CheckRequiredConfig reports missing settings and what will fall back to defaults
func CheckRequiredConfig(cfg *config.Config) *ConfigCheckResult {
	result := &ConfigCheckResult{
		Missing:  []string{},
		Present:  make(map[string]string),
		Warnings: []string{},
	}

	if cfg.Auth.JWTSecret == "" {
		result.Missing = append(result.Missing, "auth.jwt_secret")
	} else {
		result.Present["auth.jwt_secret"] = maskSecret(cfg.Auth.JWTSecret)
	}

	if dbURL, err := store.ResolveDatabaseURL(cfg.Database.URL); err != nil || dbURL == "" {
		result.Missing = append(result.Missing, "database.url (or DATABASE_URL)")
	} else {
		result.Present["database.url"] = maskSecret(dbURL)
	}

	if cfg.Redis.URL != "" {
		result.Present["redis.url"] = maskSecret(cfg.Redis.URL)
	} else {
		result.Warnings = append(result.Warnings, "redis.url not set; generator selections are kept in memory")
	}

	if cfg.Marketplace.URL != "" {
		result.Present["marketplace.url"] = cfg.Marketplace.URL
		if cfg.Marketplace.Token != "" {
			result.Present["marketplace.token"] = maskSecret(cfg.Marketplace.Token)
		}
	} else {
		result.Warnings = append(result.Warnings, "marketplace.url not set; marketplace generators are hidden")
	}

	fallbacks := cfg.FallbackDefaults(dispatch.FallbackEndpointKey)
	for _, category := range generator.Categories {
		if fallbacks[dispatch.FallbackEndpointKey+"/"+string(category)] == "" && fallbacks[dispatch.FallbackEndpointKey] == "" {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("no fallback endpoint for %s in config; it must come from site config", category))
		}
	}

	for id, b := range cfg.Builtins {
		if b.AuthToken != "" {
			result.Present["builtins."+id+".auth_token"] = maskSecret(b.AuthToken)
		}
	}

	return result
}

// PrintConfigCheck prints the configuration check results
func PrintConfigCheck(w io.Writer, result *ConfigCheckResult) {
	fmt.Fprintln(w, "=== Configuration Check ===")
	fmt.Fprintln(w, "")

	if len(result.Missing) > 0 {
		fmt.Fprintln(w, "Missing required settings:")
		for _, v := range result.Missing {
			fmt.Fprintf(w, "   - %s\n", v)
		}
		fmt.Fprintln(w, "")
	}

	if len(result.Present) > 0 {
		keys := make([]string, 0, len(result.Present))
		for k := range result.Present {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fmt.Fprintln(w, "Configured settings:")
		for _, k := range keys {
			fmt.Fprintf(w, "   - %s = %s\n", k, result.Present[k])
		}
		fmt.Fprintln(w, "")
	}

	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warning)
	}

	if len(result.Missing) == 0 {
		fmt.Fprintln(w, "All required configuration is present")
	}

	fmt.Fprintln(w, "============================")
}

// maskSecret masks a secret value for display, showing only first and last 2 chars
func maskSecret(value string) string {
	if len(value) <= 8 {
		return "****"
	}
	return value[:2] + "****" + value[len(value)-2:]
}

// LoadEnvFile loads KEY=VALUE lines from filename into the environment.
// Variables already set are kept unless override is true.
func LoadEnvFile(filename string, override bool) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if len(value) >= 2 && ((value[0] == '"' && value[len(value)-1] == '"') || (value[0] == '\'' && value[len(value)-1] == '\'')) {
			value = value[1 : len(value)-1]
		}

		if _, exists := os.LookupEnv(key); exists && !override {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("failed to set env var %s: %w", key, err)
		}
	}

	return scanner.Err()
}
