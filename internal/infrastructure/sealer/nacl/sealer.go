package naclsealer

import (
	"crypto/rand"
	"fmt"

	"github.com/ark-network/noted/internal/core/domain"
	"github.com/ark-network/noted/internal/core/ports"
	"golang.org/x/crypto/nacl/box"
)

type sealer struct{}

// NewSealer returns a sealer based on anonymous nacl boxes: every value is
// sealed for a curve25519 public key with a fresh ephemeral sender key.
func NewSealer() ports.Sealer {
	return sealer{}
}

func (sealer) Seal(pubkey *[32]byte, plaintext []byte) ([]byte, error) {
	if pubkey == nil {
		return nil, fmt.Errorf("missing public key")
	}
	return box.SealAnonymous(nil, plaintext, pubkey, rand.Reader)
}

func (sealer) Open(keys ports.KeyPair, sealed []byte) ([]byte, error) {
	if keys.PublicKey == nil || keys.PrivateKey == nil {
		return nil, fmt.Errorf("%w: incomplete key pair", domain.ErrDecryption)
	}
	plaintext, ok := box.OpenAnonymous(nil, sealed, keys.PublicKey, keys.PrivateKey)
	if !ok {
		return nil, domain.ErrDecryption
	}
	return plaintext, nil
}
