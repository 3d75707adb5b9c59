package reload

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const changeTimeout = 5 * time.Second

func writeTestFile(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(name), 0o755))
	require.NoError(t, os.WriteFile(name, []byte(content), 0o644))
}

func startWatcher(t *testing.T, cfg Config) (*Watcher, int) {
	t.Helper()

	w, err := NewWatcher(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, w.Close()) })

	found, err := w.Start()
	require.NoError(t, err)
	return w, found
}

// collectUntil reads changes until last arrives and returns the distinct
// paths seen, last included. Events left over from earlier writes may be
// among them.
func collectUntil(t *testing.T, w *Watcher, last string) []string {
	t.Helper()

	var seen []string
	timeout := time.After(changeTimeout)
	for {
		select {
		case p := <-w.Changes():
			seen = append(seen, p)
			if p == last {
				return lo.Uniq(seen)
			}
		case err := <-w.Errors():
			t.Fatalf("watch error: %v", err)
		case <-timeout:
			t.Fatalf("reached %v timeout waiting for %s, got %v", changeTimeout, last, seen)
			return nil
		}
	}
}

func TestWatcher(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Run("作成・変更・削除を検出する", func(t *testing.T) {
		dir := t.TempDir()
		edit := filepath.Join(dir, "edit.html")
		gone := filepath.Join(dir, "gone.html")
		writeTestFile(t, edit, "e")
		writeTestFile(t, gone, "g")

		w, found := startWatcher(t, Config{Watch: []string{dir}})
		assert.Equal(t, 1, found)

		added := filepath.Join(dir, "added.html")
		writeTestFile(t, added, "new")
		assert.Contains(t, collectUntil(t, w, added), added)

		writeTestFile(t, edit, "edited")
		assert.Contains(t, collectUntil(t, w, edit), edit)

		require.NoError(t, os.Remove(gone))
		assert.Contains(t, collectUntil(t, w, gone), gone)
	})

	t.Run("更新時刻とサイズが同じ書き換えも検出する", func(t *testing.T) {
		dir := t.TempDir()
		page := filepath.Join(dir, "page.html")
		writeTestFile(t, page, "v1")
		info, err := os.Stat(page)
		require.NoError(t, err)

		w, _ := startWatcher(t, Config{Watch: []string{dir}})

		writeTestFile(t, page, "v2")
		require.NoError(t, os.Chtimes(page, info.ModTime(), info.ModTime()))

		assert.Equal(t, []string{page}, collectUntil(t, w, page))
	})

	t.Run("新しく作られたディレクトリも監視される", func(t *testing.T) {
		dir := t.TempDir()
		w, _ := startWatcher(t, Config{Watch: []string{dir}, Extensions: []string{"html"}})

		nested := filepath.Join(dir, "sub", "deeper", "page.html")
		writeTestFile(t, nested, "a")
		assert.Contains(t, collectUntil(t, w, nested), nested)

		later := filepath.Join(dir, "sub", "deeper", "later.html")
		writeTestFile(t, later, "b")
		assert.Contains(t, collectUntil(t, w, later), later)
	})

	t.Run("拡張子とignoreで絞り込む", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules"), 0o755))
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "vendor"), 0o755))

		w, _ := startWatcher(t, Config{
			Watch:      []string{dir},
			Extensions: []string{"css"},
			Ignore:     []string{"node_modules", "*.min.css", "vendor/*"},
		})

		writeTestFile(t, filepath.Join(dir, "site.min.css"), "a")
		writeTestFile(t, filepath.Join(dir, "page.html"), "a")
		writeTestFile(t, filepath.Join(dir, "node_modules", "lib.css"), "a")
		writeTestFile(t, filepath.Join(dir, "vendor", "lib.css"), "a")

		site := filepath.Join(dir, "site.css")
		writeTestFile(t, site, "a")
		assert.Equal(t, []string{site}, collectUntil(t, w, site))
	})

	t.Run("存在しない監視パスは数えられない", func(t *testing.T) {
		dir := t.TempDir()
		_, found := startWatcher(t, Config{Watch: []string{filepath.Join(dir, "missing"), dir}})

		assert.Equal(t, 1, found)
	})

	t.Run("Closeは複数回呼べる", func(t *testing.T) {
		w, err := NewWatcher(Config{Watch: []string{t.TempDir()}})
		require.NoError(t, err)
		_, err = w.Start()
		require.NoError(t, err)

		require.NoError(t, w.Close())
		assert.NoError(t, w.Close())
	})
}
