// Package di provides dependency injection configuration for PromptNote.
package di

import (
	"github.com/samber/do/v2"

	"github.com/promptnote/promptnote/internal/auth"
	"github.com/promptnote/promptnote/internal/client"
	"github.com/promptnote/promptnote/internal/config"
	"github.com/promptnote/promptnote/internal/di/providers"
	"github.com/promptnote/promptnote/internal/logger"
	"github.com/promptnote/promptnote/internal/preview"
)

// NewClientContainer configures the DI container for the client daemon.
func NewClientContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Local mirror and search
	do.Provide(injector, providers.ProvideLocalDB)
	do.Provide(injector, providers.ProvideSearchIndex)

	// Remote access
	do.Provide(injector, providers.ProvideAPIClient)
	do.Provide(injector, providers.ProvidePreviewFetcher)

	// State stores
	do.Provide(injector, providers.ProvideAppState)
	do.Provide(injector, providers.ProvideAuthState)

	return injector
}

// BootstrapClient initializes the client daemon services.
// This triggers lazy initialization of all core services.
func BootstrapClient(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.LocalDBHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*client.Client](injector)
	_ = do.MustInvoke[*preview.Fetcher](injector)
	_ = do.MustInvoke[*providers.AuthStateHandle](injector)
	_ = do.MustInvoke[*providers.AppStateHandle](injector)

	return nil
}

// NewServerContainer configures the DI container for the API server.
func NewServerContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideAuthKey)

	// Database layer
	do.Provide(injector, providers.ProvideServerStore)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// BootstrapServer initializes the API server services.
func BootstrapServer(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)
	_ = do.MustInvoke[*providers.ServerStoreHandle](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
