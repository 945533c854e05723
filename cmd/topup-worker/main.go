package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"wallet-gateway/internal/app"
)

func main() {
	w, err := app.NewTopupWorker()
	if err != nil {
		log.Fatal("error creating a worker instance: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := w.Run(ctx); err != nil {
		log.Fatal("worker error: ", err)
	}
}
