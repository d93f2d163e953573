package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadConfig(t *testing.T) {
	t.Run("searched and not found", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)
		viper.AddConfigPath(t.TempDir())
		viper.SetConfigName("crate-schema")
		viper.SetConfigType("yaml")

		assert.NoError(t, readConfig())
	})

	t.Run("malformed file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "crate-schema.yaml")
		require.NoError(t, os.WriteFile(path, []byte("schema:\n  option: [update\n"), 0o600))

		viper.Reset()
		t.Cleanup(viper.Reset)
		viper.SetConfigFile(path)

		assert.Error(t, readConfig())
	})

	t.Run("explicit file missing", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)
		viper.SetConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))

		assert.Error(t, readConfig())
	})

	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "crate-schema.yaml")
		require.NoError(t, os.WriteFile(path, []byte("schema:\n  workers: 3\n"), 0o600))

		viper.Reset()
		t.Cleanup(viper.Reset)
		viper.SetConfigFile(path)

		require.NoError(t, readConfig())
		assert.Equal(t, 3, viper.GetInt("schema.workers"))
	})
}
