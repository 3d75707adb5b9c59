// Package static serves files beneath a web root over HTTP.
package static

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/HMasataka/logging"
)

// HandlerOptions configures the behavior of a Handler
type HandlerOptions struct {
	FileSystem FileSystem
	Logger     *slog.Logger
	// RespondOnUnexpectedError controls whether resolver errors other than
	// KindNotFound produce a 500 response. When false nothing is written for
	// them, which leaves the final response to net/http.
	RespondOnUnexpectedError bool
}

// DefaultHandlerOptions returns options serving from the OS file system and
// logging to slog.Default.
func DefaultHandlerOptions() HandlerOptions {
	return HandlerOptions{
		FileSystem:               OSFileSystem{},
		Logger:                   slog.Default(),
		RespondOnUnexpectedError: true,
	}
}

// Handler はwebRoot配下の静的ファイルを返すhttp.Handler
type Handler struct {
	resolver *Resolver
	fsys     FileSystem
	logger   *slog.Logger
	options  HandlerOptions
}

var _ http.Handler = (*Handler)(nil)

func NewHandler(webRoot string, options HandlerOptions) *Handler {
	if options.FileSystem == nil {
		options.FileSystem = OSFileSystem{}
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	return &Handler{
		resolver: NewResolver(options.FileSystem, webRoot),
		fsys:     options.FileSystem,
		logger:   options.Logger,
		options:  options,
	}
}

// ServeHTTP implements http.Handler. The request method is not inspected.
//
// method, path and remote are stored in the request context with
// logging.WithValue, so a logger built on logging.NewHandler attaches them to
// every record of the request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := logging.WithValue(r.Context(), "method", r.Method)
	ctx = logging.WithValue(ctx, "path", r.URL.Path)
	ctx = logging.WithValue(ctx, "remote", r.RemoteAddr)

	h.logger.DebugContext(ctx, "request received")

	outcome, err := h.serve(w, r.URL.Path)
	if err != nil {
		h.logger.DebugContext(ctx, "request failed", slog.String("error", err.Error()))
		return
	}

	h.logger.InfoContext(ctx, fmt.Sprintf("%d: %s", outcome.StatusCode, outcome.ResourcePath))
}

func (h *Handler) serve(w http.ResponseWriter, requestPath string) (Outcome, error) {
	resourcePath, err := h.resolver.Resolve(requestPath)
	if err == nil {
		return WriteOK(w, h.fsys, resourcePath)
	}

	var serr *Error
	if !errors.As(err, &serr) {
		h.respondUnexpected(w)
		return Outcome{}, err
	}

	switch serr.Kind {
	case KindNotFound:
		return WriteNotFound(w, serr.Path), nil
	case KindFile, KindDepthExceeded:
		h.respondUnexpected(w)
		return Outcome{}, err
	default:
		h.respondUnexpected(w)
		return Outcome{}, fmt.Errorf("unhandled error kind %v: %w", serr.Kind, err)
	}
}

func (h *Handler) respondUnexpected(w http.ResponseWriter) {
	if h.options.RespondOnUnexpectedError {
		writeInternalError(w)
	}
}
