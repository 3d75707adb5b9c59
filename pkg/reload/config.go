package reload

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/samber/lo"
)

const DefaultDelay = 250 * time.Millisecond

var (
	ErrConfigRead  = errors.New("could not read config file")
	ErrConfigParse = errors.New("could not parse config file")
)

// defaultIgnore はignoreの指定に関係なく常に監視対象から外すパターン
var defaultIgnore = []string{".git", "node_modules"}

// Config はライブリロードの設定
type Config struct {
	// Exec はファイル変更時に再起動するシェルコマンド
	Exec string
	// Watch は監視するファイルまたはディレクトリ
	Watch []string
	// Extensions は監視対象の拡張子(先頭のドットなし)。空なら全てのファイルが対象
	Extensions []string
	// Ignore はベース名またはWatchからの相対パスに対するglobパターン
	Ignore []string
	Delay  time.Duration
}

// fileConfig mirrors the subset of the nodemon.json format that is understood.
type fileConfig struct {
	Exec   string   `json:"exec"`
	Watch  []string `json:"watch"`
	Ext    string   `json:"ext"`
	Ignore []string `json:"ignore"`
	Delay  *int     `json:"delay"`
}

// LoadConfig はnodemon互換のJSON設定ファイルを読み込む
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrConfigRead, err)
	}

	return ParseConfig(data)
}

// ParseConfig decodes a nodemon style JSON document and applies defaults.
func ParseConfig(data []byte) (Config, error) {
	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrConfigParse, err)
	}

	if strings.TrimSpace(fc.Exec) == "" {
		return Config{}, fmt.Errorf("%w: missing \"exec\"", ErrConfigParse)
	}

	cfg := Config{
		Exec:       fc.Exec,
		Watch:      fc.Watch,
		Extensions: parseExtensions(fc.Ext),
		Ignore:     append(append([]string{}, defaultIgnore...), fc.Ignore...),
		Delay:      DefaultDelay,
	}

	if len(cfg.Watch) == 0 {
		cfg.Watch = []string{"."}
	}
	if fc.Delay != nil {
		if *fc.Delay < 0 {
			return Config{}, fmt.Errorf("%w: negative \"delay\"", ErrConfigParse)
		}
		cfg.Delay = time.Duration(*fc.Delay) * time.Millisecond
	}

	return cfg, nil
}

// parseExtensions splits "html, .css,js" into ["html", "css", "js"].
func parseExtensions(ext string) []string {
	parts := lo.Map(strings.Split(ext, ","), func(s string, _ int) string {
		return strings.TrimPrefix(strings.TrimSpace(s), ".")
	})
	return lo.Uniq(lo.Compact(parts))
}
