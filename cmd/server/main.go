package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/zikrcircle/zikrcircle/internal/cmd/api"
)

func main() {
	log.SetPrefix("[API] ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := api.Run(ctx, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
