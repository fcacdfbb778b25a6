package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"curator/internal/app/bootstrap"
)

// API process entrypoint.
// Data flow:
// 1) Load config (a local .env is optional).
// 2) Build app wiring (ports + adapters + use cases).
// 3) Start HTTP server.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file loaded, using process environment")
	}

	app, err := bootstrap.BuildAPI()
	if err != nil {
		log.Fatalf("bootstrap api failed: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("api shutdown close failed: %v", err)
		}
	}()

	if err := app.Run(context.Background()); err != nil {
		log.Fatalf("curator api stopped with error: %v", err)
	}
}
