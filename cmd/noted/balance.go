package main

import (
	"github.com/ark-network/noted/internal/core/application"
	"github.com/urfave/cli/v2"
)

var balanceCommand = cli.Command{
	Name:   "balance",
	Usage:  "Show the spendable balance of an asset",
	Action: balanceAction,
	Flags:  []cli.Flag{&assetFlag, &ownerFlag},
}

func balanceAction(ctx *cli.Context) error {
	asset := ctx.String(assetFlag.Name)
	owner := ctx.String(ownerFlag.Name)

	return withService(func(svc application.Service) error {
		balance, err := svc.GetBalance(ctx.Context, asset, owner)
		if err != nil {
			return err
		}
		return printJSON(map[string]interface{}{
			"asset":   asset,
			"balance": balance,
		})
	})
}
