package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"biblio/internal/config"
	"biblio/internal/home"
	"biblio/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the biblio server",
	Long: `Start the biblio HTTP server.

Unless an external database URL is configured, this also starts a
managed Postgres container. When the server shuts down (via Ctrl+C or
SIGTERM), the container is stopped as well.

Examples:
  biblio serve                   # Start on default port 8080
  biblio serve --port 3000       # Start on custom port
  biblio serve --host 0.0.0.0    # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Set up logger
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		// Get home directory
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		configFile := cfgFile
		if configFile == "" && h.ConfigExists() {
			configFile = h.ConfigPath()
		}
		configMgr, err := config.NewManager(configFile)
		if err != nil {
			return err
		}
		configMgr.WatchConfig()

		appCfg := configMgr.Get()
		host := serveHost
		if host == "" {
			host = appCfg.Server.Host
		}
		port := servePort
		if port == "" {
			port = appCfg.Server.Port
		}

		// Create server
		srv, err := server.New(server.Config{
			Host:          host,
			Port:          port,
			Home:          h,
			ConfigManager: configMgr,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default from config)")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (default from config)")

	rootCmd.AddCommand(serveCmd)
}
