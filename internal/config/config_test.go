package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `{
	"port": 8080,
	"jwt_secret": "secret",
	"database": {"host": "localhost", "user": "postgres", "dbname": "viebook"},
	"ai": {"provider": "gemini", "model": "gemini-2.0-flash", "embed_model": "text-embedding-004"}
}`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	require.Equal(t, "info", cfg.LogConfig.Level)
	require.Equal(t, "local", cfg.FileStore.Type)
	require.Equal(t, 768, cfg.AI.EmbedDim)
	require.Equal(t, 30, cfg.AI.Timeout)
	require.Equal(t, []string{"vie", "eng"}, cfg.OCR.Languages)
	require.Equal(t, 2.0, cfg.OCR.RenderScale)
	require.Equal(t, 50, cfg.Pipeline.MinContentChars)
	require.Equal(t, 50000, cfg.Pipeline.MaxContentChars)
	require.Equal(t, 3, cfg.Pipeline.SamplePages)
	require.Equal(t, 120, cfg.Pipeline.SessionTTLMinutes)
	require.Equal(t, float64(20), cfg.Moderation.PlagiarismPassScore)
	require.Equal(t, "*/10 * * * *", cfg.Cron.EmbeddingBackfill)
}

func TestLoadRejectsMissingRequiredFields(t *testing.T) {
	cases := map[string]string{
		"missing port":       `{"jwt_secret": "s", "database": {"host": "h"}, "ai": {"provider": "p", "model": "m", "embed_model": "e"}}`,
		"missing jwt secret": `{"port": 1, "database": {"host": "h"}, "ai": {"provider": "p", "model": "m", "embed_model": "e"}}`,
		"missing database":   `{"port": 1, "jwt_secret": "s", "ai": {"provider": "p", "model": "m", "embed_model": "e"}}`,
		"missing ai model":   `{"port": 1, "jwt_secret": "s", "database": {"host": "h"}, "ai": {"provider": "p", "embed_model": "e"}}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			require.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
