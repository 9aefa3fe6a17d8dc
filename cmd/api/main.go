package main

import (
	"log"
	"net/http"
	"os"

	"sitekeeper-api/internal"
	"sitekeeper-api/internal/config"
)

func main() {
	cfg, err := config.LoadAndValidate()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN environment variable is required")
	}

	srv := internal.NewServer(dsn, cfg)

	log.Println("Starting Sitekeeper API server...")
	log.Printf("Base URL: %s", cfg.BaseURL)
	log.Printf("JWT Issuer: %s", cfg.JWTIssuer)
	log.Printf("JWT Expiry: %v", cfg.JWTExpiry)
	log.Println("Listening on :8080")

	log.Fatal(http.ListenAndServe(":8080", srv.Router))
}
