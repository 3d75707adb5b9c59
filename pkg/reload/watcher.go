package reload

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/samber/lo"
)

// Watcher はfsnotifyでWatch配下のファイルの追加・変更・削除を検出する
//
// ディレクトリは再帰的に監視され、あとから作られたディレクトリも追加される。
// 拡張子とignoreのフィルタを通過したファイルのパスだけがChangesに流れる。
type Watcher struct {
	roots      []string
	extensions []string
	ignore     []string

	fsw     *fsnotify.Watcher
	changes chan string
	errs    chan error

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func NewWatcher(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	return &Watcher{
		roots:      lo.Map(cfg.Watch, func(p string, _ int) string { return filepath.Clean(p) }),
		extensions: cfg.Extensions,
		ignore:     cfg.Ignore,
		fsw:        fsw,
		changes:    make(chan string),
		errs:       make(chan error),
		done:       make(chan struct{}),
	}, nil
}

// Start adds every existing watch root and begins delivering changes. It
// returns the number of roots that exist; missing roots are skipped.
func (w *Watcher) Start() (int, error) {
	found := 0
	for _, root := range w.roots {
		ok, err := w.addTree(root, root, false)
		if err != nil {
			return found, err
		}
		if ok {
			found++
		}
	}

	w.wg.Add(1)
	go w.loop()

	return found, nil
}

// Changes delivers the path of every created, written, removed or renamed file.
func (w *Watcher) Changes() <-chan string {
	return w.changes
}

func (w *Watcher) Errors() <-chan error {
	return w.errs
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()
		w.wg.Wait()
	})
	return err
}

// addTree watches dir and every directory below it that is not ignored. When
// report is set, matching files that already exist are sent to Changes, so
// files written into a new directory before its watch was added are not lost.
func (w *Watcher) addTree(root, dir string, report bool) (bool, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat %q: %w", dir, err)
	}

	if !info.IsDir() {
		if err := w.fsw.Add(dir); err != nil {
			return false, fmt.Errorf("watch %q: %w", dir, err)
		}
		return true, nil
	}

	var files []string
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// 走査中に消えたエントリは無視する
			return nil
		}
		if p != root && w.ignored(root, p) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			if report && w.matches(p) {
				files = append(files, p)
			}
			return nil
		}
		if err := w.fsw.Add(p); err != nil {
			return fmt.Errorf("watch %q: %w", p, err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	for _, f := range files {
		if !w.send(f) {
			break
		}
	}

	return true, nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			select {
			case w.errs <- err:
			case <-w.done:
				return
			}
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op == fsnotify.Chmod {
		return
	}

	root, ok := w.rootOf(event.Name)
	if !ok {
		return
	}
	if event.Name != root && w.ignored(root, event.Name) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if _, err := w.addTree(root, event.Name, true); err != nil {
				select {
				case w.errs <- err:
				case <-w.done:
				}
			}
			return
		}
	}

	if w.matches(event.Name) {
		w.send(event.Name)
	}
}

func (w *Watcher) send(p string) bool {
	select {
	case w.changes <- p:
		return true
	case <-w.done:
		return false
	}
}

// rootOf returns the watch root that contains p.
func (w *Watcher) rootOf(p string) (string, bool) {
	return lo.Find(w.roots, func(root string) bool {
		rel, err := filepath.Rel(root, p)
		return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
	})
}

func (w *Watcher) matches(p string) bool {
	if len(w.extensions) == 0 {
		return true
	}
	return lo.Contains(w.extensions, strings.TrimPrefix(filepath.Ext(p), "."))
}

func (w *Watcher) ignored(root, p string) bool {
	base := filepath.Base(p)
	rel, err := filepath.Rel(root, p)
	if err != nil {
		rel = p
	}
	rel = filepath.ToSlash(rel)

	return lo.ContainsBy(w.ignore, func(pattern string) bool {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
		ok, _ := filepath.Match(pattern, rel)
		return ok
	})
}
