package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"syscall"

	"github.com/ark-network/noted/internal/config"
	"github.com/ark-network/noted/internal/core/application"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

var (
	assetFlag = cli.StringFlag{
		Name:     "asset",
		Usage:    "registry address of the asset",
		Required: true,
	}
	ownerFlag = cli.StringFlag{
		Name:  "owner",
		Usage: "account address, defaults to the configured owner",
	}
	eventsFlag = cli.StringFlag{
		Name:     "events",
		Usage:    "path of the JSON lines events file, - for stdin",
		Required: true,
	}
)

// withService runs fn against a freshly built service and always stops it.
func withService(fn func(svc application.Service) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := cfg.AppService()
	if err != nil {
		return err
	}
	defer svc.Stop()

	return fn(svc)
}

func printJSON(resp interface{}) error {
	jsonBytes, err := json.MarshalIndent(resp, "", "\t")
	if err != nil {
		return err
	}

	fmt.Println(string(jsonBytes))
	return nil
}

// promptOwnerKey asks for the owner key when the environment does not
// provide one and a terminal is attached.
func promptOwnerKey(
	cfg *config.Config, isTerminal func() bool, read func() ([]byte, error),
) error {
	if len(cfg.OwnerKey) > 0 || !isTerminal() {
		return nil
	}
	key, err := read()
	if err != nil {
		return fmt.Errorf("failed to read owner key: %s", err)
	}
	cfg.OwnerKey = strings.TrimSpace(string(key))
	return nil
}

func stdinIsTerminal() bool {
	return term.IsTerminal(int(syscall.Stdin))
}

func readOwnerKey() ([]byte, error) {
	fmt.Print("owner private key (hex): ")
	key, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println() // new line
	if err != nil {
		return nil, err
	}
	return key, nil
}
