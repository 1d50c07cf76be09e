package main

import (
	"encoding/hex"
	"fmt"

	"github.com/ark-network/noted/internal/core/application"
	"github.com/ark-network/noted/internal/core/domain"
	"github.com/urfave/cli/v2"
)

var (
	statusFlag = cli.StringSliceFlag{
		Name:  "status",
		Usage: "filter by status (offchain, created, destroyed), can be repeated",
	}
	optionalAssetFlag = cli.StringFlag{
		Name:  "asset",
		Usage: "filter by asset registry address",
	}
)

var (
	notesCommand = cli.Command{
		Name:   "notes",
		Usage:  "List the notes of the ledger",
		Action: notesAction,
		Flags:  []cli.Flag{&optionalAssetFlag, &ownerFlag, &statusFlag},
	}
	reindexCommand = cli.Command{
		Name:   "reindex",
		Usage:  "Rebuild the value index of an asset from the ledger",
		Action: reindexAction,
		Flags:  []cli.Flag{&assetFlag, &ownerFlag},
	}
)

type noteJSON struct {
	Hash      string `json:"hash"`
	Value     uint64 `json:"value"`
	Asset     string `json:"asset"`
	Owner     string `json:"owner"`
	Status    string `json:"status"`
	Metadata  string `json:"metadata,omitempty"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

func notesAction(ctx *cli.Context) error {
	filter := domain.NoteFilter{
		Asset: ctx.String(optionalAssetFlag.Name),
		Owner: ctx.String(ownerFlag.Name),
	}
	for _, s := range ctx.StringSlice(statusFlag.Name) {
		status, err := domain.ParseNoteStatus(s)
		if err != nil {
			return fmt.Errorf("invalid --status: %s", err)
		}
		filter.Statuses = append(filter.Statuses, status)
	}

	return withService(func(svc application.Service) error {
		notes, err := svc.ListNotes(ctx.Context, filter)
		if err != nil {
			return err
		}

		list := make([]noteJSON, 0, len(notes))
		for _, n := range notes {
			list = append(list, noteJSON{
				Hash:      n.Hash,
				Value:     n.Value,
				Asset:     n.Asset,
				Owner:     n.Owner,
				Status:    n.Status.String(),
				Metadata:  hex.EncodeToString(n.Metadata),
				CreatedAt: n.CreatedAt,
				UpdatedAt: n.UpdatedAt,
			})
		}
		return printJSON(list)
	})
}

func reindexAction(ctx *cli.Context) error {
	asset := ctx.String(assetFlag.Name)
	owner := ctx.String(ownerFlag.Name)

	return withService(func(svc application.Service) error {
		if err := svc.Reindex(ctx.Context, asset, owner); err != nil {
			return err
		}
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
