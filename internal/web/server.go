package web

import (
	"context"
	"embed"
	stderrors "errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/pocket/internal/config"
	"github.com/hpungsan/pocket/internal/kv"
	"github.com/hpungsan/pocket/internal/library"
	"github.com/hpungsan/pocket/internal/logging"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Options configures NewServer.
type Options struct {
	Store   kv.Store
	Watcher *library.Watcher
	Config  *config.Config
	Log     *logging.Logger
	Version string
	Bind    string
	Port    int
}

// NewServer creates and configures the HTTP server for the Pocket web UI.
func NewServer(opts Options) (*http.Server, error) {
	h, err := newHandlers(opts)
	if err != nil {
		return nil, err
	}

	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to create static sub-FS: %w", err)
	}

	mux := http.NewServeMux()

	// Routes using Go 1.22+ pattern syntax
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/library", http.StatusFound)
	})
	mux.HandleFunc("GET /library", h.HandleLibrary)
	mux.HandleFunc("POST /library/new", h.HandleNew)
	mux.HandleFunc("POST /library/import", h.HandleImport)
	mux.HandleFunc("GET /capsules/{id}/export", h.HandleExport)
	mux.HandleFunc("DELETE /capsules/{id}", h.HandleDelete)
	mux.HandleFunc("POST /capsules/{id}/delete", h.HandleDelete)
	mux.HandleFunc("GET /author", h.HandleAuthor)
	mux.HandleFunc("GET /author/{id}", h.HandleAuthor)
	mux.HandleFunc("POST /author", h.HandleAuthorPost)
	mux.HandleFunc("POST /author/{id}", h.HandleAuthorPost)
	mux.HandleFunc("GET /learn", h.HandleLearn)
	mux.HandleFunc("GET /learn/{id}", h.HandleLearn)
	mux.HandleFunc("POST /learn/{action}", h.HandleLearnAction)
	mux.HandleFunc("GET /events", h.HandleEvents)

	// Static file server
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticSub)))

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", opts.Bind, opts.Port),
		Handler:           securityHeaders(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

func newHandlers(opts Options) (*Handlers, error) {
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("failed to create template sub-FS: %w", err)
	}

	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	log := opts.Log
	if log == nil {
		log = logging.Nop()
	}
	watcher := opts.Watcher
	if watcher == nil {
		watcher = library.NewWatcher(opts.Store, nil, cfg.PollInterval(), log)
	}

	return &Handlers{
		store:    opts.Store,
		cfg:      cfg,
		renderer: NewRenderer(templateSub, opts.Version, log),
		sessions: NewSessions(opts.Store, cfg.SessionTTL()),
		watcher:  watcher,
		log:      log.With("component", "web"),
		now:      time.Now,
	}, nil
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run serves srv and runs the library watcher until SIGINT/SIGTERM or
// until either fails, then shuts both down.
func Run(ctx context.Context, srv *http.Server, watcher *library.Watcher, log *logging.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	// Request contexts end with the group so event streams let Shutdown finish
	srv.BaseContext = func(net.Listener) context.Context { return gctx }

	g.Go(func() error {
		return watcher.Run(gctx)
	})

	g.Go(func() error {
		log.Info("Pocket UI running", "url", "http://"+srv.Addr)
		if strings.HasPrefix(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
			log.Warn("server is binding to all interfaces and may be accessible from the network")
		}
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
