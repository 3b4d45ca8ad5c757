// Package main provides the entry point for the PromptNote client daemon.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/promptnote/promptnote/internal/di"
	"github.com/promptnote/promptnote/internal/di/providers"
	"github.com/promptnote/promptnote/internal/logger"
)

func main() {
	// Create DI container
	injector := di.NewClientContainer()

	// Bootstrap all services
	if err := di.BootstrapClient(injector); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap client: %v\n", err)
		os.Exit(1)
	}

	// Get logger for shutdown messages
	log := do.MustInvoke[*logger.Logger](injector)

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down gracefully...")

	// Shutdown all services in reverse order
	// The DI container handles shutdown order automatically
	if err := injector.Shutdown(); err != nil {
		log.Error("Shutdown error", "error", err)
	}

	// Database and search index need explicit shutdown since they use wrapper types
	if dbHandle, err := do.Invoke[*providers.LocalDBHandle](injector); err == nil {
		log.Info("Closing local database...")
		if err := dbHandle.Shutdown(); err != nil {
			log.Error("Failed to close local database", "error", err)
		} else {
			log.Info("Local database closed successfully")
		}
	}

	if searchHandle, err := do.Invoke[*providers.SearchIndexHandle](injector); err == nil {
		log.Info("Closing search index...")
		if err := searchHandle.Shutdown(); err != nil {
			log.Error("Failed to close search index", "error", err)
		} else {
			log.Info("Search index closed successfully")
		}
	}

	log.Info("Goodbye")
}
