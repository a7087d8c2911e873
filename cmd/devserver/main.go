package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/medchat/internal/buildinfo"
	"github.com/dmitrijs2005/medchat/internal/devserver"
	"github.com/dmitrijs2005/medchat/internal/devserver/config"
	"github.com/dmitrijs2005/medchat/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	cfg := config.LoadConfig()

	logger, err := logging.New(os.Stdout, cfg.LogLevel)
	if err != nil {
		log.Fatalf("%v", err)
	}

	srv, err := devserver.New(cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	for _, u := range srv.Store().Users() {
		token, err := srv.IssueToken(u.Username)
		if err != nil {
			log.Fatalf("%v", err)
		}
		log.Printf("%s (%s): %s", u.Name, u.Role, token)
	}

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}
