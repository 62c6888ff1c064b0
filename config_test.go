package frameio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "frameio.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
temp_dir = "/var/cache/frameio"
max_bytes = 1048576

[prefer]
".bin" = "raw"
"DAT" = "raw"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/cache/frameio", cfg.TempDir)
	assert.Equal(t, int64(1<<20), cfg.MaxBytes)
	assert.Equal(t, map[string]string{".bin": "raw", "DAT": "raw"}, cfg.Prefer)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "max_bytes = ["))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "max_bytes = -1"))
	assert.Error(t, err)
}

func TestWithConfig(t *testing.T) {
	cfg := &Config{
		TempDir:  "/tmp/a",
		MaxBytes: 42,
		Prefer:   map[string]string{"DAT": "raw", ".bin": "raw"},
	}

	o := defaultSessionOptions()
	WithConfig(cfg)(o)
	assert.Equal(t, "/tmp/a", o.tempDir)
	assert.Equal(t, int64(42), o.maxBytes)
	// Preference keys are normalized to the locator's extension form.
	assert.Equal(t, "raw", o.prefer[".dat"])
	assert.Equal(t, "raw", o.prefer[".bin"])

	// Later options override the config baseline.
	WithMaxBytes(7)(o)
	assert.Equal(t, int64(7), o.maxBytes)

	// nil config is a no-op.
	WithConfig(nil)(o)
	assert.Equal(t, "/tmp/a", o.tempDir)
}

func TestConfigPreference_SelectsFormat(t *testing.T) {
	// ".dat" matches nothing by itself; the configured preference maps
	// it to the raw codec without a per-call WithFormat.
	path := filepath.Join(t.TempDir(), "payload.dat")
	require.NoError(t, os.WriteFile(path, []byte("blob"), 0o644))

	cfg := &Config{Prefer: map[string]string{".dat": "raw"}}
	frames, err := ReadAll(path, WithConfig(cfg))
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, []byte("blob"), frames[0].Data)
}

func TestHintFor(t *testing.T) {
	o := defaultSessionOptions()
	o.prefer = map[string]string{".dat": "raw"}

	assert.Equal(t, "raw", o.hintFor(".dat"))
	assert.Equal(t, "", o.hintFor(".fcf"))
	assert.Equal(t, "", o.hintFor(""))

	o.format = "fcf"
	assert.Equal(t, "fcf", o.hintFor(".dat"), "explicit format beats preference")
}
