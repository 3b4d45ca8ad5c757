package providers

import (
	"context"
	"net/http"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/promptnote/promptnote/internal/auth"
	"github.com/promptnote/promptnote/internal/config"
	"github.com/promptnote/promptnote/internal/logger"
	"github.com/promptnote/promptnote/internal/server"
	"github.com/promptnote/promptnote/internal/server/sqlite"
)

// ServerStoreHandle wraps the server store with shutdown capability.
type ServerStoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *ServerStoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideServerStore provides the SQLite store backing the API server.
func ProvideServerStore(i do.Injector) (*ServerStoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	dbPath := filepath.Join(cfg.Data.BasePath, "promptnote.db")
	st, err := sqlite.Open(dbPath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "path", dbPath)

	return &ServerStoreHandle{Store: st}, nil
}

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	app    *server.Server
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Server.Shutdown(ctx)
	h.app.Close()
	return err
}

// ProvideHTTPServer provides the HTTP server and starts it in the background.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*ServerStoreHandle](i)
	tokens := do.MustInvoke[*auth.TokenService](i)

	app := server.NewServer(cfg, storeHandle.Store, tokens, log.Logger)

	// Hourly purge of expired refresh and reset tokens.
	ctx, cancel := context.WithCancel(context.Background())
	app.StartCleanup(ctx)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv, app: app, cancel: cancel}, nil
}
