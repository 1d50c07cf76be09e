package ports

type KeyPair struct {
	Owner      string
	PublicKey  *[32]byte
	PrivateKey *[32]byte
}

type Sealer interface {
	Seal(pubkey *[32]byte, plaintext []byte) ([]byte, error)
	// Open fails with domain.ErrDecryption rather than returning garbage.
	Open(keys KeyPair, sealed []byte) ([]byte, error)
}

type Keyring interface {
	KeyPair(owner string) (*KeyPair, error)
	// Default is the key pair of the session account, used for auxiliary
	// records that do not belong to a specific owner.
	Default() *KeyPair
	Owners() []string
}
