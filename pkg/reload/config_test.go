package reload

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	t.Run("nodemon形式の設定を読み込む", func(t *testing.T) {
		cfg, err := ParseConfig([]byte(`{
			"exec": "make build",
			"watch": ["src", "templates"],
			"ext": "html, .css,js,css",
			"ignore": ["*.tmp", "dist/*"],
			"delay": 1000
		}`))

		require.NoError(t, err)
		assert.Equal(t, "make build", cfg.Exec)
		assert.Equal(t, []string{"src", "templates"}, cfg.Watch)
		assert.Equal(t, []string{"html", "css", "js"}, cfg.Extensions)
		assert.Equal(t, []string{".git", "node_modules", "*.tmp", "dist/*"}, cfg.Ignore)
		assert.Equal(t, time.Second, cfg.Delay)
	})

	t.Run("省略された項目にはデフォルト値が入る", func(t *testing.T) {
		cfg, err := ParseConfig([]byte(`{"exec": "npm run build"}`))

		require.NoError(t, err)
		assert.Equal(t, []string{"."}, cfg.Watch)
		assert.Empty(t, cfg.Extensions)
		assert.Equal(t, DefaultDelay, cfg.Delay)
	})

	t.Run("execがなければErrConfigParse", func(t *testing.T) {
		_, err := ParseConfig([]byte(`{"watch": ["src"]}`))
		assert.ErrorIs(t, err, ErrConfigParse)
	})

	t.Run("不正なJSONはErrConfigParse", func(t *testing.T) {
		_, err := ParseConfig([]byte(`{"exec": `))
		assert.ErrorIs(t, err, ErrConfigParse)
	})

	t.Run("負のdelayはErrConfigParse", func(t *testing.T) {
		_, err := ParseConfig([]byte(`{"exec": "true", "delay": -1}`))
		assert.ErrorIs(t, err, ErrConfigParse)
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("ファイルから読み込む", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nodemon.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"exec": "true"}`), 0o644))

		cfg, err := LoadConfig(path)

		require.NoError(t, err)
		assert.Equal(t, "true", cfg.Exec)
	})

	t.Run("存在しないファイルはErrConfigRead", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))

		assert.ErrorIs(t, err, ErrConfigRead)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
