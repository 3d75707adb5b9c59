package config

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestParse(t *testing.T) {
	t.Run("全てのフラグを読み込む", func(t *testing.T) {
		f, err := Parse("devserve", []string{"-a", "0.0.0.0", "-p", "9000", "-w", "public", "-c", "watch.json", "-config", "devserve.toml", "-d", "-q"}, io.Discard)

		require.NoError(t, err)
		assert.Equal(t, Flags{
			Address:      "0.0.0.0",
			Port:         "9000",
			WebRoot:      "public",
			ReloadConfig: "watch.json",
			ConfigFile:   "devserve.toml",
			Debug:        true,
			Quiet:        true,
		}, f)
	})

	t.Run("未知のフラグはエラーになる", func(t *testing.T) {
		_, err := Parse("devserve", []string{"-x"}, io.Discard)
		assert.Error(t, err)
	})
}

func TestResolve(t *testing.T) {
	t.Run("指定がなければデフォルト値を使う", func(t *testing.T) {
		var logs bytes.Buffer
		cfg, err := Resolve(Flags{}, newLogger(&logs))

		require.NoError(t, err)
		assert.Equal(t, DefaultAddress, cfg.Server.Address)
		assert.Equal(t, DefaultPort, cfg.Server.Port)
		assert.Equal(t, DefaultWebRoot, cfg.Server.WebRoot)
		assert.Equal(t, DefaultReloadConfig, cfg.ReloadConfig)
		assert.False(t, cfg.ReloadConfigExplicit)
		assert.Contains(t, logs.String(), "No address specified")
		assert.Contains(t, logs.String(), "No port specified, using 8000")
	})

	t.Run("フラグの値が優先される", func(t *testing.T) {
		dir := t.TempDir()
		file := filepath.Join(dir, "devserve.toml")
		require.NoError(t, os.WriteFile(file, []byte("address = \"10.0.0.1\"\nport = 8080\nwebroot = \"dist\"\n"), 0o644))

		var logs bytes.Buffer
		cfg, err := Resolve(Flags{Address: "localhost", ConfigFile: file}, newLogger(&logs))

		require.NoError(t, err)
		assert.Equal(t, "localhost", cfg.Server.Address)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "dist", cfg.Server.WebRoot)
		assert.Equal(t, DefaultReloadConfig, cfg.ReloadConfig)
	})

	t.Run("設定ファイルのreloadconfigは明示扱いになる", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "devserve.toml")
		require.NoError(t, os.WriteFile(file, []byte("reloadconfig = \"reload.json\"\n"), 0o644))

		var logs bytes.Buffer
		cfg, err := Resolve(Flags{ConfigFile: file}, newLogger(&logs))

		require.NoError(t, err)
		assert.Equal(t, "reload.json", cfg.ReloadConfig)
		assert.True(t, cfg.ReloadConfigExplicit)
	})

	t.Run("解析できないポートはデフォルトに戻る", func(t *testing.T) {
		var logs bytes.Buffer
		cfg, err := Resolve(Flags{Port: "eighty"}, newLogger(&logs))

		require.NoError(t, err)
		assert.Equal(t, DefaultPort, cfg.Server.Port)
		assert.Contains(t, logs.String(), "level=WARN")
	})

	t.Run("範囲外のポートはErrInvalidになる", func(t *testing.T) {
		var logs bytes.Buffer
		_, err := Resolve(Flags{Port: "70000"}, newLogger(&logs))

		require.ErrorIs(t, err, ErrInvalid)
		var cerr *Error
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, "port", cerr.Field)
	})

	t.Run("存在しない設定ファイルはErrFileReadになる", func(t *testing.T) {
		var logs bytes.Buffer
		_, err := Resolve(Flags{ConfigFile: filepath.Join(t.TempDir(), "missing.toml")}, newLogger(&logs))

		assert.ErrorIs(t, err, ErrFileRead)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("未知のキーはErrFileDecodeになる", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "devserve.toml")
		require.NoError(t, os.WriteFile(file, []byte("hostname = \"x\"\n"), 0o644))

		var logs bytes.Buffer
		_, err := Resolve(Flags{ConfigFile: file}, newLogger(&logs))

		assert.ErrorIs(t, err, ErrFileDecode)
	})
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{}
	valid.Server.Port = 1
	valid.Server.WebRoot = "."
	assert.NoError(t, valid.Validate())

	high := valid
	high.Server.Port = 65535
	assert.NoError(t, high.Validate())

	zero := valid
	zero.Server.Port = 0
	assert.ErrorIs(t, zero.Validate(), ErrInvalid)

	noRoot := valid
	noRoot.Server.WebRoot = ""
	assert.ErrorIs(t, noRoot.Validate(), ErrInvalid)
}
