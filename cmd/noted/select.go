package main

import (
	"fmt"

	"github.com/ark-network/noted/internal/core/application"
	"github.com/urfave/cli/v2"
)

var (
	amountFlag = cli.Uint64Flag{
		Name:     "amount",
		Usage:    "amount to cover",
		Required: true,
	}
	maxNotesFlag = cli.IntFlag{
		Name:  "max-notes",
		Usage: "max number of notes to combine, defaults to the configured one",
	}
	tieBreakFlag = cli.StringFlag{
		Name:  "tie-break",
		Usage: "prefer high or low value notes among equally good selections",
	}
)

var selectCommand = cli.Command{
	Name:   "select",
	Usage:  "Select the notes covering an amount",
	Action: selectAction,
	Flags:  []cli.Flag{&assetFlag, &ownerFlag, &amountFlag, &maxNotesFlag, &tieBreakFlag},
}

func selectAction(ctx *cli.Context) error {
	asset := ctx.String(assetFlag.Name)
	owner := ctx.String(ownerFlag.Name)
	amount := ctx.Uint64(amountFlag.Name)

	opts := application.SelectOptions{MaxNotes: ctx.Int(maxNotesFlag.Name)}
	if ctx.IsSet(tieBreakFlag.Name) {
		tieBreak, err := application.ParseTieBreak(ctx.String(tieBreakFlag.Name))
		if err != nil {
			return fmt.Errorf("invalid --tie-break: %s", err)
		}
		opts.TieBreak = tieBreak
	}

	return withService(func(svc application.Service) error {
		selection, err := svc.Select(ctx.Context, asset, owner, amount, opts)
		if err != nil {
			return err
		}
		return printJSON(selection)
	})
}
