package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"exam-mirror/core/config"
	"exam-mirror/core/database"
	"exam-mirror/core/loader"
	"exam-mirror/core/logger"
	"exam-mirror/core/middleware/auth"
	"exam-mirror/core/middleware/rayid"
	"exam-mirror/feature/history"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the run ledger over HTTP",
	Long:  `Starts the HTTP server exposing past sync runs and their decisions.`,
	RunE:  runServe,
}

func init() {
	RootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logg.Sync()
	zap.ReplaceGlobals(logg)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("ledger database is required to serve: %w", err)
	}
	logg.Info("Connected to ledger database", zap.String("driver", cfg.Database.Driver))

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true, // We log our own startup message
	})

	mgr := loader.NewManager()
	mgr.Register(history.NewFeature(db, logg))

	// RayID must be first to trace everything
	app.Use(rayid.New())

	app.Use(func(c *fiber.Ctx) error {
		l := logger.WithRayID(logg, c)
		l.Info("Request started",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
		)
		err := c.Next()
		if err != nil {
			l.Error("Request error", zap.Error(err))
		}
		return err
	})

	if cfg.Server.ApiKey == "" {
		logg.Warn("SERVER_API_KEY is empty, the API is not protected")
	}
	app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey}))

	if err := mgr.LoadAll(app); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info("Starting server", zap.String("port", cfg.Server.Port))
		errCh <- app.Listen(cfg.Server.Addr())
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-c:
	}

	logg.Info("Shutting down server...")
	return app.Shutdown()
}
