// main.go
// Application entry point: loads configuration, initializes the logger and starts the server.
package main

import (
	"fmt"
	"os"

	"github.com/erilali/messenger/internal/api"
	"github.com/erilali/messenger/internal/logger"
	"github.com/erilali/messenger/internal/util"
)

// Global logger for non-hub components
var serverLogger *logger.Logger

func main() {
	config, err := util.LoadConfig()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logConfig, err := util.LoadLoggerConfig(config.LogConfigPath)
	if err != nil {
		fmt.Printf("Error loading logger config: %v, using defaults\n", err)
	}

	logger.InitLogger(logConfig)
	serverLogger = logger.NewLogger("server")
	serverLogger.WithFields(map[string]interface{}{
		"level":       logConfig.Level,
		"log_to_file": logConfig.LogToFile,
		"log_to_json": logConfig.LogToJSON,
		"file_path":   logConfig.FilePath,
	}).Info("Logger initialized")
	serverLogger.WithFields(map[string]interface{}{
		"port":              config.Port,
		"nats_url":          config.NatsURL,
		"allowed_origins":   config.AllowedOrigins(),
		"require_token":     config.RequireToken,
		"author_only_edits": config.AuthorOnlyEdits,
	}).Info("Configuration loaded")

	if err := api.StartServer(config, serverLogger); err != nil {
		serverLogger.Fatalf("Server stopped: %v", err)
	}
	serverLogger.Info("Server stopped")
}
