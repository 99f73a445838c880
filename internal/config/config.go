// Package config loads the settings of the topogo CLI and of the integration
// tests from config files, dotenv files and the environment.
package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// Filesystem used to look up dotenv files. Tests replace it with a memory fs.
var AppFs = afero.NewOsFs()

// Config holds the resolved settings.
type Config struct {
	// Default database. Read from DATABASE_URL, like the rest of the stack.
	DatabaseURL string
	// Database used by integration tests and by reset-test-db.
	TestURL string
	// Table dropped by reset-test-db.
	TestTable    string
	Debug        bool
	MaxOpenConns int
	MaxIdleConns int
}

// Load resolves the configuration. Later sources win:
//   - defaults;
//   - .topogo.yaml in the working directory, $HOME or $HOME/.config/topogo;
//   - .env, then .env.local;
//   - TOPOGO_* environment variables.
func Load() (*Config, error) {
	return LoadFrom(viper.New())
}

// LoadFrom is Load with a caller-provided viper instance.
func LoadFrom(v *viper.Viper) (*Config, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, errors.Wrap(err, "finding home directory")
	}

	v.SetConfigName(".topogo")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(home)
	v.AddConfigPath(filepath.Join(home, ".config", "topogo"))

	v.SetEnvPrefix("TOPOGO")
	v.AutomaticEnv()

	v.SetDefault("test_table", "topogo_test")
	v.SetDefault("debug", false)
	v.SetDefault("max_open_conns", 5)
	v.SetDefault("max_idle_conns", 1)

	// Try to read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "reading config file")
		}
	}

	if err := loadEnvFile(".env", false); err != nil {
		return nil, err
	}
	if err := loadEnvFile(".env.local", true); err != nil {
		return nil, err
	}

	// Bound after the dotenv files so that their values are visible.
	if err := v.BindEnv("database_url", "TOPOGO_DATABASE_URL", "DATABASE_URL"); err != nil {
		return nil, errors.Wrap(err, "binding database_url")
	}
	if err := v.BindEnv("test_url", "TOPOGO_TEST_URL"); err != nil {
		return nil, errors.Wrap(err, "binding test_url")
	}

	cfg := &Config{
		DatabaseURL:  v.GetString("database_url"),
		TestURL:      v.GetString("test_url"),
		TestTable:    v.GetString("test_table"),
		Debug:        v.GetBool("debug"),
		MaxOpenConns: v.GetInt("max_open_conns"),
		MaxIdleConns: v.GetInt("max_idle_conns"),
	}
	return cfg, nil
}

// URL used by tests and test resets: TestURL, falling back to DatabaseURL.
func (c *Config) TestDatabaseURL() string {
	if c.TestURL != "" {
		return c.TestURL
	}
	return c.DatabaseURL
}

// loadEnvFile reads a dotenv file through AppFs when it exists. Without
// override, variables already set in the environment are kept.
func loadEnvFile(path string, override bool) error {
	if _, err := AppFs.Stat(path); err != nil {
		return nil
	}

	file, err := AppFs.Open(path)
	if err != nil {
		return errors.Wrapf(err, "opening %s", path)
	}
	defer file.Close()

	vars, err := godotenv.Parse(file)
	if err != nil {
		return errors.Wrapf(err, "parsing %s", path)
	}

	for key, val := range vars {
		if _, exists := os.LookupEnv(key); exists && !override {
			continue
		}
		if err := os.Setenv(key, val); err != nil {
			return errors.Wrapf(err, "setting %s from %s", key, path)
		}
	}
	return nil
}
