package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/ark-network/noted/internal/core/domain"
	"github.com/ark-network/noted/internal/core/ports"
)

type Service interface {
	Start() error
	Stop()
	SessionId() string
	Select(
		ctx context.Context, asset, owner string, amount uint64, opts SelectOptions,
	) (*Selection, error)
	GetBalance(ctx context.Context, asset, owner string) (uint64, error)
	OnSyncEvent(ctx context.Context, event domain.SyncEvent) error
	Sync(ctx context.Context, source ports.EventSource) (SyncStats, error)
	GetNote(ctx context.Context, hash string) (*domain.Note, error)
	ListNotes(ctx context.Context, filter domain.NoteFilter) ([]domain.Note, error)
	GetAsset(ctx context.Context, id string) (*domain.Asset, error)
	ListAssets(ctx context.Context) ([]domain.Asset, error)
	GetAccount(ctx context.Context, address string) (*domain.Account, error)
	// Reindex rebuilds the value index of the pair from the ledger.
	Reindex(ctx context.Context, asset, owner string) error
}

const (
	defaultMaxNotes     = 4
	defaultSearchBudget = 100000
)

type TieBreak uint8

const (
	TieBreakUnset TieBreak = iota
	// TieBreakHigh prefers higher value notes among equally good covers.
	TieBreakHigh
	TieBreakLow
)

func (t TieBreak) String() string {
	if t == TieBreakLow {
		return "low"
	}
	return "high"
}

func ParseTieBreak(s string) (TieBreak, error) {
	switch strings.ToLower(s) {
	case "", "high":
		return TieBreakHigh, nil
	case "low":
		return TieBreakLow, nil
	default:
		return TieBreakHigh, fmt.Errorf("unknown tie-break policy %s", s)
	}
}

type SelectOptions struct {
	// MaxNotes bounds how many notes may be combined.
	MaxNotes int
	// SearchBudget is the number of search steps after which the exhaustive
	// search gives up and falls back to greedy.
	SearchBudget int
	TieBreak     TieBreak
}

func (o SelectOptions) withDefaults(defaults SelectOptions) SelectOptions {
	if o.MaxNotes <= 0 {
		o.MaxNotes = defaults.MaxNotes
	}
	if o.MaxNotes <= 0 {
		o.MaxNotes = defaultMaxNotes
	}
	if o.SearchBudget <= 0 {
		o.SearchBudget = defaults.SearchBudget
	}
	if o.SearchBudget <= 0 {
		o.SearchBudget = defaultSearchBudget
	}
	if o.TieBreak == TieBreakUnset {
		o.TieBreak = defaults.TieBreak
	}
	if o.TieBreak == TieBreakUnset {
		o.TieBreak = TieBreakHigh
	}
	return o
}

type Selection struct {
	NoteHashes []string `json:"note_hashes"`
	Total      uint64   `json:"total"`
	// Remainder is Total minus the requested amount.
	Remainder uint64 `json:"remainder"`
}

type SyncStats struct {
	Applied int `json:"applied"`
	Dropped int `json:"dropped"`
	Failed  int `json:"failed"`
}

// ChangeFunc is invoked by the ledger while still holding the lock of the
// note, prev is nil if the note was unknown.
type ChangeFunc func(ctx context.Context, prev *domain.Note, next domain.Note) error
