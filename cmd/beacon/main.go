package main

import (
	"context"
	"log"

	"github.com/MrSnakeDoc/beacon/internal/app"
)

func main() {
	a, err := app.New(context.Background())
	if err != nil {
		log.Fatalf("❌ beacon failed to start: %v", err)
	}
	if err := a.Run(); err != nil {
		log.Fatalf("❌ beacon stopped with error: %v", err)
	}
}
