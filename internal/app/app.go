// Package app wires configuration, storage and services together for the
// gateway and gRPC binaries.
package app

import (
	"context"
	"fmt"
	"log"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"shop-system/config"
	"shop-system/internal/database"
	"shop-system/internal/notify"
	"shop-system/internal/services/catalog"
	"shop-system/internal/services/ledger"
	"shop-system/internal/services/notes"
	"shop-system/internal/services/pos"
	"shop-system/internal/services/reports"
)

type App struct {
	Config config.Config
	DB     *gorm.DB
	Redis  *redis.Client

	Catalog *catalog.Service
	Ledger  *ledger.Service
	POS     *pos.Service
	Reports *reports.Service
	Notes   *notes.Service
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	loc, err := cfg.App.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid timezone: %w", err)
	}

	db, err := database.NewConnection(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	reader, err := database.Reader(db)
	if err != nil {
		return nil, err
	}

	redisClient, err := config.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}

	notifiers := notify.Multi{notify.NewTelegram(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID, cfg.Notify.Timeout)}
	if redisClient != nil {
		notifiers = append(notifiers, notify.NewRedisPublisher(redisClient))
	}

	a := &App{
		Config: cfg,
		DB:     db,
		Redis:  redisClient,
	}
	a.Catalog = catalog.NewService(db, redisClient)
	a.Ledger = ledger.NewService(db, notifiers)
	a.Ledger.SetNotifyTimeout(cfg.Notify.Timeout)
	a.POS = pos.NewService(db, notifiers, a.Catalog)
	a.POS.SetNotifyTimeout(cfg.Notify.Timeout)
	a.Reports = reports.NewService(reader, loc)
	a.Notes = notes.NewService(db)
	return a, nil
}

func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			log.Printf("failed to close redis: %v", err)
		}
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("failed to close database: %v", err)
		}
	}
}
