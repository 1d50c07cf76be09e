package application

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ark-network/noted/internal/core/domain"
	"github.com/ark-network/noted/internal/core/ports"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	Network string
	// Owner is the account selected for when callers pass no owner.
	Owner           string
	Defaults        SelectOptions
	ReindexInterval time.Duration
}

type service struct {
	sessionId string
	cfg       Config

	repoManager ports.RepoManager
	index       ports.IndexStore
	keyring     ports.Keyring
	scheduler   ports.SchedulerService

	ledger     *Ledger
	selector   *Selector
	reconciler *Reconciler
}

// NewService builds the instance of a network session. scheduler may be nil
// if no periodic index audit is wanted.
func NewService(
	cfg Config, repoManager ports.RepoManager, index ports.IndexStore,
	keyring ports.Keyring, scheduler ports.SchedulerService,
) (Service, error) {
	if repoManager == nil || index == nil || keyring == nil {
		return nil, fmt.Errorf("missing service dependency")
	}
	if len(cfg.Owner) <= 0 {
		cfg.Owner = keyring.Default().Owner
	}
	cfg.Defaults = cfg.Defaults.withDefaults(SelectOptions{})

	ledger := NewLedger(repoManager.Notes(), index)
	return &service{
		sessionId:   uuid.New().String(),
		cfg:         cfg,
		repoManager: repoManager,
		index:       index,
		keyring:     keyring,
		scheduler:   scheduler,
		ledger:      ledger,
		selector:    NewSelector(index.ValueIndex(), ledger),
		reconciler:  NewReconciler(ledger, repoManager.Assets(), index, keyring),
	}, nil
}

func (s *service) Start() error {
	if s.scheduler != nil && s.cfg.ReindexInterval > 0 {
		if err := s.scheduler.ScheduleEvery(s.cfg.ReindexInterval, s.audit); err != nil {
			return fmt.Errorf("failed to schedule index audit: %w", err)
		}
		s.scheduler.Start()
	}

	log.WithFields(log.Fields{
		"session": s.sessionId,
		"network": s.cfg.Network,
		"owner":   s.cfg.Owner,
	}).Info("service started")
	return nil
}

// Stop drops every cached plaintext and closes the stores. The instance
// cannot be used afterwards.
func (s *service) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	s.index.Purge()
	if err := s.index.Close(); err != nil {
		log.WithError(err).Warn("failed to close index store")
	}
	s.repoManager.Close()

	log.WithField("session", s.sessionId).Info("service stopped")
}

func (s *service) SessionId() string {
	return s.sessionId
}

func (s *service) Select(
	ctx context.Context, asset, owner string, amount uint64, opts SelectOptions,
) (*Selection, error) {
	if len(asset) <= 0 {
		return nil, fmt.Errorf("missing asset")
	}
	opts = opts.withDefaults(s.cfg.Defaults)
	return s.selector.Select(ctx, asset, s.ownerOrDefault(owner), amount, opts)
}

func (s *service) GetBalance(ctx context.Context, asset, owner string) (uint64, error) {
	if len(asset) <= 0 {
		return 0, fmt.Errorf("missing asset")
	}
	return s.selector.Balance(ctx, asset, s.ownerOrDefault(owner))
}

func (s *service) OnSyncEvent(ctx context.Context, event domain.SyncEvent) error {
	return s.reconciler.Apply(ctx, event)
}

func (s *service) Sync(ctx context.Context, source ports.EventSource) (SyncStats, error) {
	stats, err := s.reconciler.Run(ctx, source)
	log.WithFields(log.Fields{
		"applied": stats.Applied,
		"dropped": stats.Dropped,
		"failed":  stats.Failed,
	}).Info("sync completed")
	return stats, err
}

func (s *service) GetNote(ctx context.Context, hash string) (*domain.Note, error) {
	return s.ledger.Get(ctx, hash)
}

func (s *service) ListNotes(
	ctx context.Context, filter domain.NoteFilter,
) ([]domain.Note, error) {
	return s.ledger.Query(ctx, filter)
}

func (s *service) GetAsset(ctx context.Context, id string) (*domain.Asset, error) {
	return s.repoManager.Assets().Get(ctx, id)
}

func (s *service) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	return s.repoManager.Assets().List(ctx)
}

func (s *service) GetAccount(ctx context.Context, address string) (*domain.Account, error) {
	return s.index.GetAccount(ctx, address)
}

func (s *service) Reindex(ctx context.Context, asset, owner string) error {
	owner = s.ownerOrDefault(owner)

	notes, err := s.ledger.Query(ctx, domain.NoteFilter{
		Asset: asset,
		Owner: owner,
		Statuses: []domain.NoteStatus{
			domain.NoteStatusOffChain, domain.NoteStatusCreated,
		},
	})
	if err != nil {
		return err
	}

	// notes come ordered by creation time, buckets must keep that order.
	hashesByValue := make(map[uint64][]string)
	for _, note := range notes {
		hashesByValue[note.Value] = append(hashesByValue[note.Value], note.Hash)
	}
	buckets := make([]domain.ValueBucket, 0, len(hashesByValue))
	for value, hashes := range hashesByValue {
		buckets = append(buckets, domain.ValueBucket{Value: value, Hashes: hashes})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Value < buckets[j].Value })

	// the snapshot may be stale by now, every hash is confirmed against the
	// ledger under its bucket lock.
	keep := s.ledger.Spendable(asset, owner)
	if err := s.index.ValueIndex().Rebuild(ctx, asset, owner, buckets, keep); err != nil {
		return fmt.Errorf("failed to rebuild value index of %s: %w", asset, err)
	}

	log.WithFields(log.Fields{
		"asset": asset,
		"owner": owner,
		"notes": len(notes),
	}).Debug("value index rebuilt")
	return nil
}

// audit rebuilds the value index of every (asset, owner) pair known to the
// ledger for the owners of the keyring.
func (s *service) audit() {
	ctx := context.Background()

	eg, ctx := errgroup.WithContext(ctx)
	for _, owner := range s.keyring.Owners() {
		owner := owner
		eg.Go(func() error {
			notes, err := s.ledger.Query(ctx, domain.NoteFilter{Owner: owner})
			if err != nil {
				return err
			}
			assets := make(map[string]struct{})
			for _, note := range notes {
				assets[note.Asset] = struct{}{}
			}
			for asset := range assets {
				if err := s.Reindex(ctx, asset, owner); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		log.WithError(err).Warn("index audit failed")
		return
	}
	log.Debug("index audit completed")
}

func (s *service) ownerOrDefault(owner string) string {
	if len(owner) > 0 {
		return owner
	}
	return s.cfg.Owner
}
