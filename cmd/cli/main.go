package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/medchat/internal/buildinfo"
	"github.com/dmitrijs2005/medchat/internal/client/cli"
	"github.com/dmitrijs2005/medchat/internal/client/config"
	"github.com/dmitrijs2005/medchat/internal/filex"
	"github.com/dmitrijs2005/medchat/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()

	logger, err := logging.New(os.Stderr, cfg.LogLevel)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if _, err := filex.EnsureParentDir(cfg.DBPath); err != nil {
		log.Fatalf("%v", err)
	}

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)
}
