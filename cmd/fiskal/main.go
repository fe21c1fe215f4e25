package main

import (
	"context"
	"log"
	"os"

	"github.com/avigliano/scontrino/internal/cli"
	"github.com/avigliano/scontrino/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := cli.NewApp(cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}
	defer app.Close()

	if err := app.Run(ctx, os.Args[1:]); err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}
}
