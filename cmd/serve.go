package cmd

import (
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/jjenkins/lottosync/internal/handlers"
	"github.com/jjenkins/lottosync/internal/service"
	"github.com/jjenkins/lottosync/internal/store"
	"github.com/spf13/cobra"
)

var port string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the read-only draws API",
	Long: `Serve exposes stored draws and the scraper's progress as JSON.

Routes:
  GET /health
  GET /api/draws?lotto_type=&from=&to=&number=&limit=&offset=
  GET /api/draws/latest?lotto_type=
  GET /api/scraper/status`,
	Run: func(cmd *cobra.Command, args []string) {
		log, closeLog := newLogger()
		defer closeLog()

		// Use PORT env var if set, otherwise use flag value
		if !cmd.Flags().Changed("port") {
			port = cfg.Port
		}

		db := openStore(cmd, log)
		defer db.Close()

		app := NewApp(db)

		log.Infof("Starting server on :%s", port)
		if err := app.Listen(":" + port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	},
}

// NewApp wires the API routes onto a fiber app
func NewApp(db *store.DB) *fiber.App {
	drawStore := store.NewDrawStore(db)
	stateStore := store.NewStateStore(db, store.DefaultStateKey)
	summaries := service.NewSummaryService(db)

	app := fiber.New(fiber.Config{
		AppName: "lottosync",
	})

	app.Use(fiberlogger.New())

	app.Get("/health", handlers.HealthHandler(db))

	// Draw routes
	app.Get("/api/draws", handlers.DrawsHandler(drawStore))
	app.Get("/api/draws/latest", handlers.LatestDrawHandler(drawStore))

	// Scraper routes
	app.Get("/api/scraper/status", handlers.StatusHandler(stateStore, summaries))

	return app
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&port, "port", "p", "8080", "Port to run the server on (default: PORT env var)")
}
