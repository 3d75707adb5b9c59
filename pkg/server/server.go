// Package server binds the static file handler to a TCP listener.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/HMasataka/devserve/pkg/static"
)

// ErrLaunch is returned by Launch for every failure to create or bind the
// listening socket. The underlying cause is only logged.
var ErrLaunch = errors.New("could not launch http server")

// Config はサーバーの待ち受けアドレスと配信ルートを保持する
type Config struct {
	Address string
	Port    int
	WebRoot string
}

// Server は起動済みのHTTPサーバーを表す
type Server struct {
	srv      *http.Server
	listener net.Listener
	logger   *slog.Logger
	done     chan struct{}
	err      error
}

// Launch はcfg.WebRootを配信するハンドラーを作成し、cfg.Address:cfg.Portで待ち受けを開始する
func Launch(cfg Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	options := static.DefaultHandlerOptions()
	options.Logger = logger
	handler := static.NewHandler(cfg.WebRoot, options)

	return launch(cfg, handler, logger)
}

func launch(cfg Config, handler http.Handler, logger *slog.Logger) (*Server, error) {
	addr := net.JoinHostPort(cfg.Address, strconv.Itoa(cfg.Port))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Debug("listen failed", slog.String("addr", addr), slog.String("error", err.Error()))
		return nil, ErrLaunch
	}

	s := &Server{
		srv:      &http.Server{Handler: handler},
		listener: ln,
		logger:   logger,
		done:     make(chan struct{}),
	}

	go s.serve()

	logger.Info("http server listening", slog.String("addr", ln.Addr().String()), slog.String("webRoot", cfg.WebRoot))

	return s, nil
}

func (s *Server) serve() {
	defer close(s.done)

	if err := s.srv.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("server error", slog.String("error", err.Error()))
		s.err = err
	}
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Done is closed once the server has stopped accepting connections.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that stopped the server, if any. It is only
// meaningful after Done is closed.
func (s *Server) Err() error {
	<-s.done
	return s.err
}

// Shutdown はアクティブな接続の完了を待ってからサーバーを停止する
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)
	<-s.done
	return err
}

// Close immediately closes the listener and all connections.
func (s *Server) Close() error {
	err := s.srv.Close()
	<-s.done
	return err
}
