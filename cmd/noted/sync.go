package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/ark-network/noted/internal/core/application"
	jsonlevents "github.com/ark-network/noted/internal/infrastructure/events/jsonl"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var (
	syncCommand = cli.Command{
		Name:   "sync",
		Usage:  "Apply the events of a JSON lines file and exit",
		Action: syncAction,
		Flags:  []cli.Flag{&eventsFlag},
	}
	runCommand = cli.Command{
		Name:   "run",
		Usage:  "Apply the events of a JSON lines file, then keep auditing the index until interrupted",
		Action: runAction,
		Flags:  []cli.Flag{&eventsFlag},
	}
)

func syncAction(ctx *cli.Context) error {
	return withService(func(svc application.Service) error {
		source := jsonlevents.NewSource(ctx.String(eventsFlag.Name))
		defer source.Close()

		stats, err := svc.Sync(ctx.Context, source)
		if err != nil {
			return err
		}
		return printJSON(stats)
	})
}

func runAction(ctx *cli.Context) error {
	return withService(func(svc application.Service) error {
		if err := svc.Start(); err != nil {
			return err
		}

		runCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
		defer stop()

		source := jsonlevents.NewSource(ctx.String(eventsFlag.Name))
		defer source.Close()

		stats, err := svc.Sync(runCtx, source)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		log.WithField("applied", stats.Applied).Info("initial sync done, waiting for signal")

		<-runCtx.Done()
		log.Info("shutting down service...")
		return nil
	})
}
