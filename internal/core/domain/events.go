package domain

import "fmt"

type SyncEventType string

const (
	NoteCreatedType       SyncEventType = "note_created"
	NoteDestroyedType     SyncEventType = "note_destroyed"
	RegistryCreatedType   SyncEventType = "registry_created"
	AccountRegisteredType SyncEventType = "account_registered"
)

type SyncEvent interface {
	Type() SyncEventType
	Validate() error
}

func (e NoteCreated) Type() SyncEventType       { return NoteCreatedType }
func (e NoteDestroyed) Type() SyncEventType     { return NoteDestroyedType }
func (e RegistryCreated) Type() SyncEventType   { return RegistryCreatedType }
func (e AccountRegistered) Type() SyncEventType { return AccountRegisteredType }

type NoteCreated struct {
	Hash     string `json:"hash"`
	Asset    string `json:"asset"`
	Owner    string `json:"owner"`
	Value    uint64 `json:"value"`
	Metadata []byte `json:"metadata,omitempty"`
	// Confirmed is false while the note only exists off-chain.
	Confirmed bool `json:"confirmed"`
}

func (e NoteCreated) Validate() error {
	if len(e.Hash) <= 0 {
		return fmt.Errorf("%w: missing note hash", ErrInvalidEvent)
	}
	if len(e.Asset) <= 0 {
		return fmt.Errorf("%w: note %s: missing asset", ErrInvalidEvent, e.Hash)
	}
	if len(e.Owner) <= 0 {
		return fmt.Errorf("%w: note %s: missing owner", ErrInvalidEvent, e.Hash)
	}
	return nil
}

func (e NoteCreated) Note() Note {
	status := NoteStatusOffChain
	if e.Confirmed {
		status = NoteStatusCreated
	}
	return Note{
		Hash:     e.Hash,
		Value:    e.Value,
		Asset:    e.Asset,
		Owner:    e.Owner,
		Status:   status,
		Metadata: e.Metadata,
	}
}

type NoteDestroyed struct {
	Hash string `json:"hash"`
}

func (e NoteDestroyed) Validate() error {
	if len(e.Hash) <= 0 {
		return fmt.Errorf("%w: missing note hash", ErrInvalidEvent)
	}
	return nil
}

type RegistryCreated struct {
	Asset         string `json:"asset"`
	LinkedToken   string `json:"linked_token"`
	ScalingFactor uint64 `json:"scaling_factor"`
}

func (e RegistryCreated) Validate() error {
	if len(e.Asset) <= 0 {
		return fmt.Errorf("%w: missing registry address", ErrInvalidEvent)
	}
	return nil
}

func (e RegistryCreated) ToAsset() Asset {
	return Asset{
		Id:            e.Asset,
		LinkedToken:   e.LinkedToken,
		ScalingFactor: e.ScalingFactor,
	}
}

type AccountRegistered struct {
	Address   string `json:"address"`
	PublicKey string `json:"public_key"`
}

func (e AccountRegistered) Validate() error {
	if len(e.Address) <= 0 {
		return fmt.Errorf("%w: missing account address", ErrInvalidEvent)
	}
	return nil
}
