package keyring

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/ark-network/noted/internal/core/domain"
	"github.com/ark-network/noted/internal/core/ports"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"
)

// keyring is immutable once built.
type keyring struct {
	defaults *ports.KeyPair
	keys     map[string]*ports.KeyPair
}

// New returns a keyring whose default key pair is the session account.
func New(session *ports.KeyPair, others ...*ports.KeyPair) (ports.Keyring, error) {
	if session == nil || session.PublicKey == nil || session.PrivateKey == nil {
		return nil, fmt.Errorf("missing session key pair")
	}
	keys := map[string]*ports.KeyPair{session.Owner: session}
	for _, kp := range others {
		if kp == nil || kp.PublicKey == nil || kp.PrivateKey == nil {
			return nil, fmt.Errorf("invalid key pair")
		}
		keys[kp.Owner] = kp
	}
	return &keyring{defaults: session, keys: keys}, nil
}

func (k *keyring) KeyPair(owner string) (*ports.KeyPair, error) {
	kp, ok := k.keys[owner]
	if !ok {
		return nil, fmt.Errorf("%w %s", domain.ErrUnknownOwner, owner)
	}
	return kp, nil
}

func (k *keyring) Default() *ports.KeyPair {
	return k.defaults
}

func (k *keyring) Owners() []string {
	owners := make([]string, 0, len(k.keys))
	for owner := range k.keys {
		owners = append(owners, owner)
	}
	sort.Strings(owners)
	return owners
}

func Generate(owner string) (*ports.KeyPair, error) {
	pubkey, privkey, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &ports.KeyPair{Owner: owner, PublicKey: pubkey, PrivateKey: privkey}, nil
}

// FromHex derives the key pair of owner from a hex encoded curve25519
// private key.
func FromHex(owner, privkeyHex string) (*ports.KeyPair, error) {
	buf, err := hex.DecodeString(privkeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key format: %s", err)
	}
	if len(buf) != curve25519.ScalarSize {
		return nil, fmt.Errorf(
			"invalid private key length, expected %d bytes, got %d", curve25519.ScalarSize, len(buf),
		)
	}

	pub, err := curve25519.X25519(buf, curve25519.Basepoint)
	if err != nil {
		return nil, err
	}

	var privkey, pubkey [32]byte
	copy(privkey[:], buf)
	copy(pubkey[:], pub)
	return &ports.KeyPair{Owner: owner, PublicKey: &pubkey, PrivateKey: &privkey}, nil
}
