package app

import (
	"context"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/talkincode/plantcatalog/config"
	"github.com/talkincode/plantcatalog/internal/catalog"
	"github.com/talkincode/plantcatalog/internal/store"
)

// DBProvider provides database access when the gorm driver is in use
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// CatalogProvider provides the catalog service and its store
type CatalogProvider interface {
	Catalog() *catalog.Service
	Store() store.Store
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// AppContext combines all provider interfaces for full application context
type AppContext interface {
	DBProvider
	ConfigProvider
	CatalogProvider
	SchedulerProvider

	MigrateDB(track bool) error
	DropAll()
	// SeedCatalog inserts the embedded starter catalog, optionally after
	// deleting every existing plant
	SeedCatalog(ctx context.Context, wipe bool) (int, error)
	// RunBackupNow writes a store snapshot into the backup directory
	RunBackupNow() (string, error)
}
