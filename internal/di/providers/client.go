package providers

import (
	"github.com/samber/do/v2"

	"github.com/promptnote/promptnote/internal/client"
	"github.com/promptnote/promptnote/internal/config"
	"github.com/promptnote/promptnote/internal/logger"
	"github.com/promptnote/promptnote/internal/preview"
)

// ProvideAPIClient provides the remote API client.
func ProvideAPIClient(i do.Injector) (*client.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	log.Info("API client configured", "server_url", cfg.Client.ServerURL)

	return client.New(cfg.Client.ServerURL, log.Logger), nil
}

// ProvidePreviewFetcher provides the link-preview fetcher backed by the local mirror.
func ProvidePreviewFetcher(i do.Injector) (*preview.Fetcher, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	dbHandle := do.MustInvoke[*LocalDBHandle](i)

	return preview.NewFetcher(preview.Config{
		TTL: cfg.Client.PreviewTTL,
	}, dbHandle.DB, log.Logger), nil
}
