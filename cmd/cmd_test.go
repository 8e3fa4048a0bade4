package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/genpad/internal/config"
	"github.com/genpad/internal/dispatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "****", maskSecret("short"))
	assert.Equal(t, "ab****yz", maskSecret("abcdefghijxyz"))
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(`
# comment
export GENPAD_TEST_A="quoted"
GENPAD_TEST_B='single'
GENPAD_TEST_C=kept
not a pair
`), 0o600))

	t.Setenv("GENPAD_TEST_A", "")
	t.Setenv("GENPAD_TEST_B", "")
	t.Setenv("GENPAD_TEST_C", "original")
	os.Unsetenv("GENPAD_TEST_A")
	os.Unsetenv("GENPAD_TEST_B")

	require.NoError(t, LoadEnvFile(path, false))
	assert.Equal(t, "quoted", os.Getenv("GENPAD_TEST_A"))
	assert.Equal(t, "single", os.Getenv("GENPAD_TEST_B"))
	assert.Equal(t, "original", os.Getenv("GENPAD_TEST_C"))

	require.NoError(t, LoadEnvFile(path, true))
	assert.Equal(t, "kept", os.Getenv("GENPAD_TEST_C"))

	assert.Error(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing"), false))
}

func TestCheckRequiredConfig(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DATABASE_URL", "")

	cfg := &config.Config{}
	result := CheckRequiredConfig(cfg)
	assert.Contains(t, result.Missing, "auth.jwt_secret")
	assert.Len(t, result.Missing, 2)
	assert.NotEmpty(t, result.Warnings)

	cfg.Auth.JWTSecret = "a-long-secret-value"
	cfg.Database.URL = "postgres://u:p@localhost/db"
	cfg.SiteConfig.FallbackEndpoint = "https://copilot"
	result = CheckRequiredConfig(cfg)
	assert.Empty(t, result.Missing)
	assert.Equal(t, "a-****ue", result.Present["auth.jwt_secret"])

	var out bytes.Buffer
	PrintConfigCheck(&out, result)
	assert.Contains(t, out.String(), "All required configuration is present")
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("DATABASE_URL", "")
	path := filepath.Join(dir, "genpad.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[auth]
jwt_secret = "secret"

[log]
level = "error"

[dispatch]
mock_delay = "1ms"
`), 0o600))
	return path
}

func TestCatalogCommandJSON(t *testing.T) {
	path := writeTestConfig(t)

	out, err := runApp("genpad", "-c", path, "catalog", "--category", "GenAI_Widget", "--json")
	require.NoError(t, err)

	var view struct {
		Category   string `json:"category"`
		Selectable []struct {
			ID string `json:"id"`
		} `json:"selectable"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "GenAI_Widget", view.Category)
	require.Len(t, view.Selectable, 2)
	assert.Equal(t, "sdv-copilot-widget", view.Selectable[0].ID)
	assert.Equal(t, "mock-widget", view.Selectable[1].ID)
}

func TestGenerateCommandWithMock(t *testing.T) {
	path := writeTestConfig(t)

	out, err := runApp("genpad", "-c", path, "generate", "-g", "mock-python", "make", "it", "blink")
	require.NoError(t, err)
	assert.Equal(t, dispatch.MockCode+"\n", out)

	_, err = runApp("genpad", "-c", path, "generate", "-g", "sdv-copilot-python", "-m", "hi")
	assert.ErrorContains(t, err, "not configured")

	_, err = runApp("genpad", "-c", path, "generate")
	assert.Error(t, err)
}

func TestConfigInitAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genpad.toml")

	_, err := runApp("genpad", "config", "init", "-o", path)
	require.NoError(t, err)
	out, err := runApp("genpad", "-c", path, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")
}

func runApp(args ...string) (string, error) {
	var out bytes.Buffer
	app := NewApp("test")
	app.Writer = &out
	app.ErrWriter = &bytes.Buffer{}
	err := app.Run(args)
	return out.String(), err
}

// chdir changes the working directory for the duration of the test,
// restoring it on cleanup (equivalent of testing.T.Chdir for Go < 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
