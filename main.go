package main

import (
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"

	"licensemanager.app/cloud/handlers"
	"licensemanager.app/cloud/internal/config"
	"licensemanager.app/cloud/internal/logger"
	"licensemanager.app/cloud/licensing"
	"licensemanager.app/cloud/storage"
)

var version = "dev"

func main() {
	if versionBytes, err := os.ReadFile("VERSION"); err == nil {
		version = strings.TrimSpace(string(versionBytes))
	}

	godotenv.Load()

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("config: %s", err)
	}

	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 1.0,
		})
		if err != nil {
			log.Fatalf("sentry.Init: %s", err)
		}
	}

	db, err := storage.NewSQLiteStorage(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("storage: %s", err)
	}
	defer db.Close()

	service := licensing.NewService(db, cfg.APISecret)

	server := handlers.NewHTTPServer(cfg, db, service)
	server.Version = version

	logger.Info("License manager starting", map[string]interface{}{
		"version": version,
		"port":    cfg.Port,
	})

	log.Fatal(http.ListenAndServe(":"+cfg.Port, server.Router))
}
