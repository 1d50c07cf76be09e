package main

import (
	"fmt"
	"os"

	"github.com/ark-network/noted/internal/config"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var version = "dev"

func main() {
	app := cli.NewApp()

	app.Version = version
	app.Name = "noted"
	app.Usage = "Confidential note ledger and selection engine"
	app.Commands = append(
		app.Commands,
		&keygenCommand,
		&syncCommand,
		&runCommand,
		&balanceCommand,
		&selectCommand,
		&notesCommand,
		&reindexCommand,
	)

	err := app.Run(os.Args)
	if err != nil {
		fmt.Println(fmt.Errorf("error: %v", err))
		os.Exit(1)
	}
}

// loadConfig is called by every command but keygen, which needs no
// owner key.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %s", err)
	}

	log.SetLevel(log.Level(cfg.LogLevel))

	if err := promptOwnerKey(cfg, stdinIsTerminal, readOwnerKey); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %s", err)
	}
	log.Debugf("config: %s", cfg)
	return cfg, nil
}
