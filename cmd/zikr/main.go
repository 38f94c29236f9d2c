package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/zikrcircle/zikrcircle/internal/cmd/zikr"
)

func main() {
	log.SetPrefix("[ZIKR] ")
	log.SetFlags(0)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := zikr.Run(ctx, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
