package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDotenv(t *testing.T, content string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600))
	t.Chdir(dir)
}

func TestLoadReadsDotenv(t *testing.T) {
	writeDotenv(t, "POSTGRES_CONN_STR=host=db user=opaq\nMONGO_URI=mongodb://from-file\n")

	for _, key := range []string{"POSTGRES_CONN_STR", "MONGO_URI"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := Load()
	assert.Equal(t, "host=db user=opaq", cfg.PostgresConnStr)
	assert.Equal(t, "mongodb://from-file", cfg.MongoURI)
}

func TestLoadEnvironmentWinsOverDotenv(t *testing.T) {
	writeDotenv(t, "MONGO_URI=mongodb://from-file\n")
	t.Setenv("MONGO_URI", "mongodb://from-env")

	cfg := Load()
	assert.Equal(t, "mongodb://from-env", cfg.MongoURI)
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("PORT", "")
	os.Unsetenv("PORT")

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "opaq", cfg.MongoDatabase)
	assert.Equal(t, "opaq_session", cfg.SessionCookie)
}
