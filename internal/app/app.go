// Package app aggregates configuration and shared dependencies for the CLI
// commands.
package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"pricewatch/internal/config"
	"pricewatch/internal/notify"
	"pricewatch/internal/srpfeed"
	"pricewatch/internal/storage"
)

// App is the application handle shared by every command.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newSRPFetcher() srpfeed.Fetcher {
	if !a.Config.SRPFeed.Enabled {
		return nil
	}
	return srpfeed.NewBulletin(srpfeed.BulletinOptions{
		BaseURL:   a.Config.SRPFeed.BaseURL,
		Timeout:   a.Config.SRPFeed.RequestTimeout,
		UserAgent: a.Config.SRPFeed.UserAgent,
	}, a.Logger)
}

func (a *App) newNotifier() notify.Notifier {
	if a.Config.Notify.Telegram.Enabled {
		cfg := a.Config.Notify.Telegram
		return notify.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// ExportOptions hold parameters for exporting aggregated price data.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	Commodity string
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}
