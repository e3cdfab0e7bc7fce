package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/talkincode/plantcatalog/config"
	"github.com/talkincode/plantcatalog/internal/adminapi"
	"github.com/talkincode/plantcatalog/internal/app"
	"github.com/talkincode/plantcatalog/internal/webserver"
)

var (
	configFile string
	seedWipe   bool
	migrateLog bool
)

var rootCmd = &cobra.Command{
	Use:   "plantd",
	Short: "Plant catalog API server",
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the catalog REST API",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := bootstrap()
		if err != nil {
			return err
		}
		defer application.Release()
		return serve(application)
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the starter catalog into the configured store",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(configFile)
		if err != nil {
			return err
		}
		// seeding below replaces the automatic seed
		cfg.Catalog.SeedOnEmpty = false
		application := app.NewApplication(cfg)
		if err := application.Init(); err != nil {
			return err
		}
		defer application.Release()
		n, err := application.SeedCatalog(cmd.Context(), seedWipe)
		if err != nil {
			return err
		}
		fmt.Printf("seeded %d plants\n", n)
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the SQL tables of the gorm storage driver",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(configFile)
		if err != nil {
			return err
		}
		if cfg.Storage.Driver != app.DriverGorm {
			return fmt.Errorf("storage driver is %q, migrate only applies to %q", cfg.Storage.Driver, app.DriverGorm)
		}
		application := app.NewApplication(cfg)
		if err := application.OpenStore(); err != nil {
			return err
		}
		defer application.Release()
		return application.MigrateDB(migrateLog)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "plantd.yml", "config file")
	seedCmd.Flags().BoolVar(&seedWipe, "wipe", false, "delete existing plants first")
	migrateCmd.Flags().BoolVar(&migrateLog, "debug", false, "log the migration statements")
	rootCmd.AddCommand(serveCmd, seedCmd, migrateCmd)
}

func bootstrap() (*app.Application, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, err
	}
	application := app.NewApplication(cfg)
	if err := application.Init(); err != nil {
		application.Release()
		return nil, err
	}
	return application, nil
}

// serve runs the api server and the background jobs until a signal arrives
// or one of them fails
func serve(application *app.Application) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	adminapi.Init()
	srv := webserver.New(application.Config().Web, application, zap.L())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		return application.StartBackgroundJobs(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		zap.L().Info("shutting down api server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
