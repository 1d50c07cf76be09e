package main

import (
	"encoding/hex"

	"github.com/ark-network/noted/internal/infrastructure/keyring"
	"github.com/urfave/cli/v2"
)

var keygenCommand = cli.Command{
	Name:   "keygen",
	Usage:  "Generate a new owner key pair",
	Action: keygenAction,
}

func keygenAction(_ *cli.Context) error {
	kp, err := keyring.Generate("")
	if err != nil {
		return err
	}

	return printJSON(map[string]string{
		"public_key":  hex.EncodeToString(kp.PublicKey[:]),
		"private_key": hex.EncodeToString(kp.PrivateKey[:]),
	})
}
