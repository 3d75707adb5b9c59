// Package reload restarts a build command whenever watched files change.
package reload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"

	"github.com/bep/debounce"
	"github.com/gammazero/deque"
	"github.com/gammazero/workerpool"
	"github.com/samber/lo"
)

// EventKind はRunnerが通知するライフサイクルイベントの種類
type EventKind int

const (
	EventStart   EventKind = iota + 1 // コマンドを起動した
	EventExit                         // コマンドが終了した
	EventRestart                      // ファイル変更によりコマンドを再起動する
	EventQuit                         // Runnerが停止した
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventExit:
		return "exit"
	case EventRestart:
		return "restart"
	case EventQuit:
		return "quit"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

type Event struct {
	Kind EventKind
	// Files holds the changed files that caused an EventRestart.
	Files []string
	// Err holds the result of the command for an EventExit.
	Err error
}

// RunnerOptions configures the behavior of a Runner
type RunnerOptions struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// DefaultRunnerOptions connects the command to the process's stdout and
// stderr.
func DefaultRunnerOptions() RunnerOptions {
	return RunnerOptions{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Logger: slog.Default(),
	}
}

// Runner はコマンドを実行し、監視対象のファイルが変更されるたびに再起動する
type Runner struct {
	cfg     Config
	options RunnerOptions
	logger  *slog.Logger

	handlersMu sync.RWMutex
	handlers   []func(Event)

	pendingMu sync.Mutex
	pending   deque.Deque[string]
	stopping  bool

	procMu sync.Mutex
	cmd    *exec.Cmd
	exited chan struct{}
}

func NewRunner(cfg Config, options RunnerOptions) *Runner {
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.Stdout == nil {
		options.Stdout = io.Discard
	}
	if options.Stderr == nil {
		options.Stderr = io.Discard
	}
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}

	return &Runner{
		cfg:     cfg,
		options: options,
		logger:  options.Logger,
	}
}

// OnEvent registers f to be called for every lifecycle event. Handlers may be
// called from different goroutines and must not block for long.
func (r *Runner) OnEvent(f func(Event)) {
	r.handlersMu.Lock()
	defer r.handlersMu.Unlock()

	r.handlers = append(r.handlers, f)
}

// Run はコマンドを起動し、ctxがキャンセルされるまでファイルの監視を続ける
//
// キャンセル後は実行中のコマンドを停止し、EventQuitを通知してから戻る。
func (r *Runner) Run(ctx context.Context) error {
	if r.cfg.Exec == "" {
		return fmt.Errorf("%w: missing \"exec\"", ErrConfigParse)
	}

	watcher, err := NewWatcher(r.cfg)
	if err != nil {
		return err
	}
	defer watcher.Close()

	found, err := watcher.Start()
	if err != nil {
		return err
	}
	if found == 0 {
		r.logger.Warn("none of the watch paths exist", slog.Any("watch", r.cfg.Watch))
	}

	r.pendingMu.Lock()
	r.stopping = false
	r.pendingMu.Unlock()

	// 再起動は1ワーカーで直列に実行し、同時に2つのコマンドが動かないようにする
	pool := workerpool.New(1)
	debounced := debounce.New(r.cfg.Delay)

	pool.SubmitWait(r.start)

	for {
		select {
		case <-ctx.Done():
			r.pendingMu.Lock()
			r.stopping = true
			r.pendingMu.Unlock()

			debounced(func() {})
			pool.StopWait()
			r.stop()
			r.emit(Event{Kind: EventQuit})
			return nil

		case file := <-watcher.Changes():
			r.enqueue(file)
			debounced(func() { r.submit(pool) })

		case err := <-watcher.Errors():
			r.logger.Warn("watch failed", slog.String("error", err.Error()))
		}
	}
}

func (r *Runner) enqueue(file string) {
	r.pendingMu.Lock()
	defer r.pendingMu.Unlock()

	r.pending.PushBack(file)
}

func (r *Runner) submit(pool *workerpool.WorkerPool) {
	r.pendingMu.Lock()
	defer r.pendingMu.Unlock()

	if r.stopping {
		return
	}
	pool.Submit(r.restart)
}

// drain returns the de-duplicated pending files in arrival order.
func (r *Runner) drain() []string {
	r.pendingMu.Lock()
	defer r.pendingMu.Unlock()

	if r.stopping {
		r.pending.Clear()
		return nil
	}

	files := make([]string, 0, r.pending.Len())
	for r.pending.Len() > 0 {
		files = append(files, r.pending.PopFront())
	}
	return lo.Uniq(files)
}

func (r *Runner) restart() {
	files := r.drain()
	if len(files) == 0 {
		return
	}

	r.stop()
	r.emit(Event{Kind: EventRestart, Files: files})
	r.start()
}

func (r *Runner) start() {
	cmd := shellCommand(r.cfg.Exec)
	cmd.Stdout = r.options.Stdout
	cmd.Stderr = r.options.Stderr

	if err := cmd.Start(); err != nil {
		r.logger.Error("could not start command", slog.String("exec", r.cfg.Exec), slog.String("error", err.Error()))
		r.emit(Event{Kind: EventExit, Err: err})
		return
	}

	exited := make(chan struct{})

	r.procMu.Lock()
	r.cmd = cmd
	r.exited = exited
	r.procMu.Unlock()

	r.emit(Event{Kind: EventStart})

	go func() {
		err := cmd.Wait()
		r.emit(Event{Kind: EventExit, Err: err})
		close(exited)
	}()
}

// stop kills the running command, if any, and waits for it to exit.
func (r *Runner) stop() {
	r.procMu.Lock()
	cmd, exited := r.cmd, r.exited
	r.cmd, r.exited = nil, nil
	r.procMu.Unlock()

	if cmd == nil {
		return
	}

	select {
	case <-exited:
		return
	default:
	}

	if err := killProcess(cmd); err != nil {
		r.logger.Debug("kill failed", slog.String("error", err.Error()))
	}
	<-exited
}

func (r *Runner) emit(e Event) {
	r.handlersMu.RLock()
	handlers := append([]func(Event){}, r.handlers...)
	r.handlersMu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}
