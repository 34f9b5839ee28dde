package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := load("no-such-file.json", nil)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ".supabase.co", cfg.EndpointHostSuffix)
	assert.Equal(t, 30, cfg.RequestTimeoutSec)
	assert.True(t, cfg.Encryption)
}

func TestLayering(t *testing.T) {
	path := writeJSON(t, t.TempDir(), "zaslon.json",
		`{"port": "9000", "templatesDir": "forms", "retentionDays": 90}`)

	// JSON поверх дефолтов
	cfg := load(path, nil)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "forms", cfg.TemplatesDir)
	assert.Equal(t, 90, cfg.RetentionDays)

	// ENV поверх JSON
	t.Setenv("ZASLON_PORT", "9090")
	cfg = load(path, nil)
	assert.Equal(t, "9090", cfg.Port)

	// флаг поверх ENV
	cfg = load(path, []string{"-port", "9999"})
	assert.Equal(t, "9999", cfg.Port)
	// не тронутые флагами поля — из JSON
	assert.Equal(t, "forms", cfg.TemplatesDir)
}

// -config указывает на другой файл: перечитываем его без паники
// на повторной регистрации флагов
func TestConfigFlagRedirect(t *testing.T) {
	dir := t.TempDir()
	first := writeJSON(t, dir, "a.json", `{"port": "9001"}`)
	second := writeJSON(t, dir, "b.json", `{"port": "9002", "dbUrl": "postgres://x"}`)

	cfg := load(first, []string{"-config", second})
	assert.Equal(t, "9002", cfg.Port)
	assert.Equal(t, "postgres://x", cfg.DBURL)
}

func TestEnvBoolAndInt(t *testing.T) {
	t.Setenv("ZASLON_ENCRYPTION", "false")
	t.Setenv("ZASLON_RETENTION_DAYS", "14")

	cfg := load("no-such-file.json", nil)
	assert.False(t, cfg.Encryption)
	assert.Equal(t, 14, cfg.RetentionDays)
}
