package config

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func withFs(t *testing.T, files map[string]string) {
	t.Helper()

	prev := AppFs
	fs := afero.NewMemMapFs()
	for path, body := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(body), 0o644))
	}
	AppFs = fs
	t.Cleanup(func() { AppFs = prev })
}

func TestLoad_defaults(t *testing.T) {
	withFs(t, nil)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("TOPOGO_DATABASE_URL", "")
	t.Setenv("TOPOGO_TEST_URL", "")

	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	require.Equal(t, "topogo_test", cfg.TestTable)
	require.Equal(t, 5, cfg.MaxOpenConns)
	require.Equal(t, 1, cfg.MaxIdleConns)
	require.False(t, cfg.Debug)
	require.Empty(t, cfg.DatabaseURL)
}

func TestLoad_env(t *testing.T) {
	withFs(t, nil)
	t.Setenv("DATABASE_URL", "postgres://localhost/main")
	t.Setenv("TOPOGO_DATABASE_URL", "")
	t.Setenv("TOPOGO_TEST_URL", "postgres://localhost/test")
	t.Setenv("TOPOGO_TEST_TABLE", "scratch")
	t.Setenv("TOPOGO_DEBUG", "true")

	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	require.Equal(t, "postgres://localhost/main", cfg.DatabaseURL)
	require.Equal(t, "postgres://localhost/test", cfg.TestDatabaseURL())
	require.Equal(t, "scratch", cfg.TestTable)
	require.True(t, cfg.Debug)
}

func TestLoad_prefixed_url_wins(t *testing.T) {
	withFs(t, nil)
	t.Setenv("DATABASE_URL", "postgres://localhost/plain")
	t.Setenv("TOPOGO_DATABASE_URL", "postgres://localhost/prefixed")
	t.Setenv("TOPOGO_TEST_URL", "")

	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	require.Equal(t, "postgres://localhost/prefixed", cfg.DatabaseURL)
	require.Equal(t, "postgres://localhost/prefixed", cfg.TestDatabaseURL())
}

func TestLoad_dotenv(t *testing.T) {
	withFs(t, map[string]string{
		".env":       "TOPOGO_TEST_TABLE=from_env\nTOPOGO_MAX_OPEN_CONNS=9\n",
		".env.local": "TOPOGO_TEST_TABLE=from_local\n",
	})
	t.Setenv("TOPOGO_TEST_TABLE", "")
	t.Setenv("TOPOGO_MAX_OPEN_CONNS", "")

	// Empty but set variables are kept by .env and replaced by .env.local.
	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	require.Equal(t, "from_local", cfg.TestTable)
}

func TestLoad_dotenv_keeps_environment(t *testing.T) {
	withFs(t, map[string]string{
		".env": "TOPOGO_TEST_TABLE=from_env\n",
	})
	t.Setenv("TOPOGO_TEST_TABLE", "from_shell")

	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	require.Equal(t, "from_shell", cfg.TestTable)
}
