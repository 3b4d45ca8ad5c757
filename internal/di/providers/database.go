package providers

import (
	"log/slog"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/promptnote/promptnote/internal/config"
	"github.com/promptnote/promptnote/internal/localdb"
	"github.com/promptnote/promptnote/internal/logger"
)

// LocalDBHandle wraps the local mirror with shutdown capability.
type LocalDBHandle struct {
	*localdb.DB
}

// Shutdown implements do.Shutdownable.
func (h *LocalDBHandle) Shutdown() error {
	return h.Close()
}

// ProvideLocalDB provides the durable local mirror.
func ProvideLocalDB(i do.Injector) (*LocalDBHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	dbPath := filepath.Join(cfg.Data.BasePath, "db")
	db, err := localdb.Open(dbPath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Local mirror initialized", "path", dbPath)

	return &LocalDBHandle{DB: db}, nil
}

// ProvideSlogLogger provides access to the underlying slog.Logger for packages that need it.
func ProvideSlogLogger(i do.Injector) (*slog.Logger, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return log.Logger, nil
}
