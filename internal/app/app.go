package app

import (
	"context"
	"os"
	"runtime/debug"
	"time"
	_ "time/tzdata"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"

	"github.com/talkincode/plantcatalog/config"
	"github.com/talkincode/plantcatalog/internal/catalog"
	"github.com/talkincode/plantcatalog/internal/store"
	"github.com/talkincode/plantcatalog/internal/store/boltstore"
	"github.com/talkincode/plantcatalog/internal/store/gormstore"
	"github.com/talkincode/plantcatalog/internal/store/memstore"
)

// Storage drivers
const (
	DriverBolt   = "bolt"
	DriverGorm   = "gorm"
	DriverMemory = "memory"
)

type Application struct {
	appConfig *config.AppConfig
	gormDB    *gorm.DB
	store     store.Store
	catalog   *catalog.Service
	sched     *cron.Cron
}

// Ensure Application implements all interfaces
var (
	_ DBProvider        = (*Application)(nil)
	_ ConfigProvider    = (*Application)(nil)
	_ CatalogProvider   = (*Application)(nil)
	_ SchedulerProvider = (*Application)(nil)
	_ AppContext        = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

// DB returns the gorm handle; nil unless the gorm driver is selected
func (a *Application) DB() *gorm.DB {
	return a.gormDB
}

func (a *Application) Store() store.Store {
	return a.store
}

func (a *Application) Catalog() *catalog.Service {
	return a.catalog
}

// Scheduler returns the cron scheduler
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

// NewLogger builds the process logger: development or production encoding,
// optionally teed into a rotating json file
func NewLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapConfig zap.Config
	if cfg.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.OutputPaths = []string{"stdout"}

	if !cfg.FileEnable {
		return zapConfig.Build(zap.AddCaller())
	}

	lumberJackLogger := &lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    64,
		MaxBackups: 7,
		MaxAge:     7,
		Compress:   false,
	}
	core := zapcore.NewTee(
		zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(lumberJackLogger),
			zapConfig.Level,
		),
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.AddSync(os.Stdout),
			zapConfig.Level,
		),
	)
	return zap.New(core, zap.AddCaller()), nil
}

// Init sets up logging, opens the configured store, seeds an empty catalog
// and schedules background jobs. Jobs only run after StartBackgroundJobs.
func (a *Application) Init() error {
	cfg := a.appConfig
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	logger, err := NewLogger(cfg.Logger)
	if err != nil {
		return errors.Wrap(err, "init logger")
	}
	zap.ReplaceGlobals(logger)

	if err := a.OpenStore(); err != nil {
		return err
	}
	zap.S().Infof("Storage ready, driver: %s", cfg.Storage.Driver)

	if cfg.Catalog.SeedOnEmpty {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		a.checkPlants(ctx)
	}

	a.initJob()
	return nil
}

// OpenStore opens the storage engine selected by storage.driver
func (a *Application) OpenStore() error {
	cfg := a.appConfig
	ids, err := store.NewSnowflakeIDs(cfg.Storage.NodeID)
	if err != nil {
		return errors.Wrap(err, "storage.node_id")
	}

	switch cfg.Storage.Driver {
	case DriverMemory:
		a.store = memstore.New(ids)
	case DriverGorm:
		db, err := getDatabase(cfg.Database, cfg.System.Workdir)
		if err != nil {
			return err
		}
		a.gormDB = db
		zap.S().Infof("Database connection successful, type: %s", cfg.Database.Type)
		if err := a.MigrateDB(false); err != nil {
			return errors.Wrap(err, "database migration failed")
		}
		a.store = gormstore.New(db, ids)
	case DriverBolt, "":
		s, err := boltstore.Open(cfg.BoltPath(), ids)
		if err != nil {
			return err
		}
		a.store = s
	default:
		return errors.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	a.catalog = catalog.NewService(a.store, zap.L())
	return nil
}

// MigrateDB creates or updates the catalog tables. It is a no-op for the
// document engines.
func (a *Application) MigrateDB(track bool) (err error) {
	if a.gormDB == nil {
		return nil
	}
	defer func() {
		if err1 := recover(); err1 != nil {
			if os.Getenv("GO_DEBUG_TRACE") != "" {
				debug.PrintStack()
			}
			if err2, ok := err1.(error); ok {
				err = err2
				zap.S().Error(err2.Error())
			}
		}
	}()
	db := a.gormDB
	if track {
		db = db.Debug()
	}
	return gormstore.Migrate(db)
}

// DropAll removes the catalog tables
func (a *Application) DropAll() {
	if a.gormDB == nil {
		return
	}
	_ = a.gormDB.Migrator().DropTable(gormstore.Tables...)
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		<-a.sched.Stop().Done()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			zap.S().Errorf("close store: %v", err)
		}
	}
	_ = zap.L().Sync()
}
