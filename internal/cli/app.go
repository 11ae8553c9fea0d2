package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/querydesk/internal/config"
	"github.com/JonMunkholm/querydesk/internal/kvstore"
	"github.com/JonMunkholm/querydesk/internal/remote"
	"github.com/JonMunkholm/querydesk/internal/workspace"
)

// app bundles what a command needs: the workspace and the resources
// behind it.
type app struct {
	cfg   *config.Config
	store kvstore.Store
	ws    *workspace.Orchestrator
}

// openApp builds the workspace from configuration.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := getConfig(ctx)
	if err != nil {
		return nil, err
	}

	client, err := remote.New(cfg.Remote.BaseURL,
		remote.WithTimeouts(cfg.Remote.Timeout, cfg.Remote.UploadTimeout))
	if err != nil {
		return nil, fmt.Errorf("query service client: %w", err)
	}

	store, err := kvstore.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	ws := workspace.New(client, store, workspace.Options{
		MaxFileSize: cfg.Upload.MaxFileSize,
	})

	slog.Debug("workspace opened", "service", client.BaseURL(), "store", cfg.Store.Backend)
	return &app{cfg: cfg, store: store, ws: ws}, nil
}

// Close releases the workspace and its store.
func (a *app) Close() error {
	a.ws.Close()
	if err := a.store.Close(); err != nil && !errors.Is(err, kvstore.ErrClosed) {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}
