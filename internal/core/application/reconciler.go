package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ark-network/noted/internal/core/domain"
	"github.com/ark-network/noted/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

// Reconciler applies chain events to the ledger and the value index. Every
// handler is idempotent so events can be redelivered or reordered.
type Reconciler struct {
	ledger  *Ledger
	assets  domain.AssetRepository
	index   ports.IndexStore
	keyring ports.Keyring
}

func NewReconciler(
	ledger *Ledger, assets domain.AssetRepository,
	index ports.IndexStore, keyring ports.Keyring,
) *Reconciler {
	return &Reconciler{ledger, assets, index, keyring}
}

func (r *Reconciler) Apply(ctx context.Context, event domain.SyncEvent) error {
	if event == nil {
		return fmt.Errorf("%w: nil event", domain.ErrInvalidEvent)
	}
	if err := event.Validate(); err != nil {
		return err
	}

	switch e := event.(type) {
	case domain.NoteCreated:
		return r.onNoteCreated(ctx, e)
	case domain.NoteDestroyed:
		return r.onNoteDestroyed(ctx, e)
	case domain.RegistryCreated:
		return r.onRegistryCreated(ctx, e)
	case domain.AccountRegistered:
		return r.onAccountRegistered(ctx, e)
	default:
		return fmt.Errorf("%w: unknown event type %s", domain.ErrInvalidEvent, event.Type())
	}
}

// Run consumes the source until it is exhausted or ctx is done. A failing
// event never stops the loop.
func (r *Reconciler) Run(ctx context.Context, source ports.EventSource) (SyncStats, error) {
	stats := SyncStats{}

	events, err := source.Events(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to open event source: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case event, ok := <-events:
			if !ok {
				return stats, nil
			}

			err := r.Apply(ctx, event)
			if err == nil {
				stats.Applied++
				log.Debugf("applied %s event", typeOf(event))
				continue
			}

			entry := log.WithError(err).WithField("type", typeOf(event))
			if isDroppable(err) {
				stats.Dropped++
				var conflict domain.ConsistencyError
				if errors.As(err, &conflict) {
					entry = entry.WithFields(log.Fields{
						"hash":  conflict.Hash,
						"field": conflict.Field,
						"have":  conflict.Have,
						"got":   conflict.Got,
					})
				}
				entry.Warn("dropped sync event")
				continue
			}
			stats.Failed++
			entry.Error("failed to apply sync event")
		}
	}
}

func (r *Reconciler) onNoteCreated(ctx context.Context, e domain.NoteCreated) error {
	if _, err := r.keyring.KeyPair(e.Owner); err != nil {
		return err
	}
	if err := r.ensureRefs(ctx, e.Asset, e.Owner); err != nil {
		return err
	}

	_, err := r.ledger.Upsert(ctx, e.Note(), func(
		ctx context.Context, _ *domain.Note, next domain.Note,
	) error {
		if !next.Spendable() {
			return nil
		}
		_, err := r.index.ValueIndex().Add(ctx, next.Asset, next.Owner, next.Value, next.Hash)
		return err
	})
	return err
}

func (r *Reconciler) onNoteDestroyed(ctx context.Context, e domain.NoteDestroyed) error {
	_, err := r.ledger.Destroy(ctx, e.Hash, func(
		ctx context.Context, prev *domain.Note, _ domain.Note,
	) error {
		if prev == nil || prev.IsPlaceholder() {
			return nil
		}
		// the owner may have been dropped from the keyring since creation.
		if _, err := r.keyring.KeyPair(prev.Owner); err != nil {
			return nil
		}
		_, err := r.index.ValueIndex().Remove(ctx, prev.Asset, prev.Owner, prev.Value, prev.Hash)
		return err
	})
	return err
}

func (r *Reconciler) onRegistryCreated(ctx context.Context, e domain.RegistryCreated) error {
	if _, err := r.index.KeyRef(ctx, e.Asset); err != nil {
		return err
	}

	return r.index.WithLock(ctx, "asset/"+e.Asset, func() error {
		next := e.ToAsset()
		now := time.Now().Unix()

		current, err := r.assets.Get(ctx, e.Asset)
		if err != nil {
			if !errors.Is(err, domain.ErrAssetNotFound) {
				return err
			}
			next.CreatedAt = now
			next.UpdatedAt = now
			return r.assets.Upsert(ctx, next)
		}
		if current.Equal(next) {
			return nil
		}
		next.CreatedAt = current.CreatedAt
		next.UpdatedAt = now
		return r.assets.Upsert(ctx, next)
	})
}

func (r *Reconciler) onAccountRegistered(ctx context.Context, e domain.AccountRegistered) error {
	return r.index.PutAccount(ctx, domain.Account{
		Address:   e.Address,
		PublicKey: e.PublicKey,
	})
}

func (r *Reconciler) ensureRefs(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		if _, err := r.index.KeyRef(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func isDroppable(err error) bool {
	return errors.Is(err, domain.ErrConsistency) ||
		errors.Is(err, domain.ErrUnknownOwner) ||
		errors.Is(err, domain.ErrInvalidEvent)
}

func typeOf(event domain.SyncEvent) string {
	if event == nil {
		return "nil"
	}
	return string(event.Type())
}
