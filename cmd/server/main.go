// Package main implements the entry point for the Fable API server,
// which orchestrates asynchronous novel-generation tasks and serves
// their progress over HTTP and WebSocket.
package main

import (
	"context"
	"log"
)

// main is the entry point for the fable-api server. It initializes
// configuration, logging, the optional task archive, the orchestration
// components, and then serves HTTP until a shutdown signal arrives.
func main() {
	ctx := context.Background()

	app, err := newApplication(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := app.run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
