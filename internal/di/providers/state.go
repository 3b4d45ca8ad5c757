package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/promptnote/promptnote/internal/appstate"
	"github.com/promptnote/promptnote/internal/authstate"
	"github.com/promptnote/promptnote/internal/client"
	"github.com/promptnote/promptnote/internal/config"
	"github.com/promptnote/promptnote/internal/logger"
	"github.com/promptnote/promptnote/internal/preview"
)

// AppStateHandle wraps the application state store with its poll loop.
type AppStateHandle struct {
	*appstate.Store
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *AppStateHandle) Shutdown() error {
	h.cancel()
	h.Flush()
	return nil
}

// ProvideAppState provides the hydrated application state store and starts
// the status poll loop in the background.
func ProvideAppState(i do.Injector) (*AppStateHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	dbHandle := do.MustInvoke[*LocalDBHandle](i)
	remote := do.MustInvoke[*client.Client](i)
	previews := do.MustInvoke[*preview.Fetcher](i)
	searchHandle := do.MustInvoke[*SearchIndexHandle](i)

	store := appstate.New(appstate.Options{
		DB:           dbHandle.DB,
		Remote:       remote,
		Previews:     previews,
		Index:        searchHandle.SearchIndex,
		Logger:       log.Logger,
		PollInterval: cfg.Client.PollInterval,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go store.Start(ctx)

	log.Info("Application state hydrated",
		"items", len(store.Items()),
		"collections", len(store.Collections()),
		"poll_interval", cfg.Client.PollInterval,
	)

	return &AppStateHandle{Store: store, cancel: cancel}, nil
}

// AuthStateHandle wraps the auth store with its session refresh loop.
type AuthStateHandle struct {
	*authstate.Store
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *AuthStateHandle) Shutdown() error {
	h.cancel()
	return nil
}

// ProvideAuthState provides the session store. The restored access token,
// if any, is pushed into the API client so requests resume authenticated.
func ProvideAuthState(i do.Injector) (*AuthStateHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)
	dbHandle := do.MustInvoke[*LocalDBHandle](i)
	remote := do.MustInvoke[*client.Client](i)

	store := authstate.New(authstate.Options{
		DB:     dbHandle.DB,
		Remote: remote,
		Tokens: remote,
		Logger: log.Logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go store.Start(ctx)

	return &AuthStateHandle{Store: store, cancel: cancel}, nil
}
