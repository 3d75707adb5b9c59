// Package config builds the devserve configuration from command line flags and
// an optional TOML file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/HMasataka/devserve/pkg/server"
	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultAddress      = "127.0.0.1"
	DefaultPort         = 8000
	DefaultWebRoot      = "./"
	DefaultReloadConfig = "nodemon.json"
)

var (
	ErrInvalid    = errors.New("invalid configuration")
	ErrFileRead   = errors.New("could not read config file")
	ErrFileDecode = errors.New("could not parse config file")
)

// Error はどの設定項目が不正だったのかを保持する
type Error struct {
	Field  string
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrInvalid, e.Field, e.Detail)
}

func (e *Error) Is(target error) bool {
	return target == ErrInvalid
}

// File はTOML設定ファイルの内容
type File struct {
	Address      string `toml:"address"`
	Port         int    `toml:"port"`
	WebRoot      string `toml:"webroot"`
	ReloadConfig string `toml:"reloadconfig"`
}

// Flags holds the raw command line values. Empty strings mean the flag was
// not given.
type Flags struct {
	Address      string
	Port         string
	WebRoot      string
	ReloadConfig string
	ConfigFile   string
	Debug        bool
	Quiet        bool
}

// Config is the resolved configuration of a devserve process.
type Config struct {
	Server       server.Config
	ReloadConfig string
	// ReloadConfigExplicit reports whether ReloadConfig came from a flag or
	// the config file rather than the default.
	ReloadConfigExplicit bool
	Debug                bool
	Quiet                bool
}

// Parse はコマンドライン引数をFlagsに変換する
func Parse(name string, args []string, output io.Writer) (Flags, error) {
	var f Flags

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&f.Address, "a", "", "The address to bind the server to")
	fs.StringVar(&f.Port, "p", "", "The port to bind the server to")
	fs.StringVar(&f.WebRoot, "w", "", "Serve files from this directory as root")
	fs.StringVar(&f.ReloadConfig, "c", "", "Config file for the live-reload runner")
	fs.StringVar(&f.ConfigFile, "config", "", "TOML config file")
	fs.BoolVar(&f.Debug, "d", false, "Flag to activate debug mode")
	fs.BoolVar(&f.Quiet, "q", false, "Disable all logging messages")

	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}

	return f, nil
}

// LoadFile decodes the TOML file at path. Unknown keys are rejected.
func LoadFile(path string) (File, error) {
	fp, err := os.Open(path)
	if err != nil {
		return File{}, fmt.Errorf("%w: %w", ErrFileRead, err)
	}
	defer fp.Close()

	var file File
	if err := toml.NewDecoder(fp).DisallowUnknownFields().Decode(&file); err != nil {
		return File{}, fmt.Errorf("%w: %w", ErrFileDecode, err)
	}

	return file, nil
}

// Resolve はフラグ、設定ファイル、デフォルト値の順に値を決定する
//
// デフォルト値を使った項目はinfo、明示された項目はdebugで記録する。
func Resolve(f Flags, logger *slog.Logger) (Config, error) {
	var file File
	if f.ConfigFile != "" {
		var err error
		if file, err = LoadFile(f.ConfigFile); err != nil {
			return Config{}, err
		}
		logger.Debug(fmt.Sprintf("Config file: %q", f.ConfigFile))
	}

	cfg := Config{
		Debug: f.Debug,
		Quiet: f.Quiet,
	}

	cfg.Server.Address = pick(logger, "address", f.Address, file.Address, DefaultAddress)
	cfg.Server.WebRoot = pick(logger, "webRoot", f.WebRoot, file.WebRoot, DefaultWebRoot)
	cfg.ReloadConfig = pick(logger, "reload config", f.ReloadConfig, file.ReloadConfig, DefaultReloadConfig)
	cfg.ReloadConfigExplicit = f.ReloadConfig != "" || file.ReloadConfig != ""
	cfg.Server.Port = resolvePort(logger, f.Port, file.Port)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func pick(logger *slog.Logger, name, flagValue, fileValue, def string) string {
	switch {
	case flagValue != "":
		logger.Debug(fmt.Sprintf("%s: %q", name, flagValue))
		return flagValue
	case fileValue != "":
		logger.Debug(fmt.Sprintf("%s: %q (config file)", name, fileValue))
		return fileValue
	default:
		logger.Info(fmt.Sprintf("No %s specified, using %q", name, def))
		return def
	}
}

func resolvePort(logger *slog.Logger, flagValue string, fileValue int) int {
	if flagValue != "" {
		port, err := strconv.Atoi(flagValue)
		if err != nil {
			logger.Warn(fmt.Sprintf("Could not parse port as provided by command line: %q", flagValue))
			logger.Warn(fmt.Sprintf("Using default port: %d", DefaultPort))
			return DefaultPort
		}
		logger.Debug(fmt.Sprintf("port: %d", port))
		return port
	}

	if fileValue != 0 {
		logger.Debug(fmt.Sprintf("port: %d (config file)", fileValue))
		return fileValue
	}

	logger.Info(fmt.Sprintf("No port specified, using %d", DefaultPort))
	return DefaultPort
}

// Validate reports the first invalid field as an *Error.
func (c Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return &Error{Field: "port", Detail: fmt.Sprintf("%d is outside 1-65535", c.Server.Port)}
	}
	if c.Server.WebRoot == "" {
		return &Error{Field: "webRoot", Detail: "must not be empty"}
	}
	return nil
}
