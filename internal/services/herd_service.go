package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"cattlevalue/internal/core"
	"cattlevalue/internal/dataset"
	"cattlevalue/internal/herd"
	"cattlevalue/internal/log"
)

// HerdService owns the in-memory herd. Every mutation is persisted before it
// becomes visible and is then announced to the change publisher.
type HerdService struct {
	repo      herd.Repository
	publisher herd.ChangePublisher
	logger    *log.Logger
	events    *log.StructuredLogger

	mu           sync.RWMutex
	herd         core.Herd
	version      uint64
	dataset      *dataset.Dataset
	datasetReady bool
}

// NewHerdService loads the saved herd from repo. publisher may be nil.
func NewHerdService(ctx context.Context, repo herd.Repository, publisher herd.ChangePublisher, logger *log.Logger) (*HerdService, error) {
	if repo == nil {
		return nil, errors.New("herd repository is required")
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHerd)

	h, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load herd: %w", err)
	}
	// Blobs from older builds get ids on decode; persist them so they stay stable.
	if len(h) > 0 {
		if err := repo.Save(ctx, h); err != nil {
			return nil, fmt.Errorf("persist herd ids: %w", err)
		}
	}
	logger.InfoContext(ctx, "Herd loaded", log.FieldHerdSize, len(h))

	return &HerdService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		events:    log.NewStructuredLogger(logger),
		herd:      h,
		dataset:   dataset.Empty(),
	}, nil
}

// SetDataset installs the reference dataset. Animals added afterwards take
// their values from it; existing animals keep their snapshot.
func (s *HerdService) SetDataset(d *dataset.Dataset) {
	if d == nil {
		d = dataset.Empty()
	}
	s.mu.Lock()
	s.dataset = d
	s.datasetReady = true
	s.mu.Unlock()
}

func (s *HerdService) Dataset() *dataset.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dataset
}

// Ready reports whether the dataset load attempt has finished.
func (s *HerdService) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.datasetReady
}

// Herd returns a copy of the current herd.
func (s *HerdService) Herd() core.Herd {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.herd.Clone()
}

// Snapshot returns a copy of the herd together with the version it belongs to.
func (s *HerdService) Snapshot() (core.Herd, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.herd.Clone(), s.version
}

func (s *HerdService) Get(id string) (core.TrackedCattle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.herd.Index(id)
	if i < 0 {
		return core.TrackedCattle{}, herd.ErrNotFound
	}
	return s.herd[i : i+1].Clone()[0], nil
}

// Version is a counter bumped by every successful mutation.
func (s *HerdService) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Add appends a new animal with values resolved from the dataset.
func (s *HerdService) Add(ctx context.Context, cattleType string, weight float64) (core.TrackedCattle, error) {
	s.mu.Lock()
	c := core.NewTrackedCattle(cattleType, weight, s.lookup(ctx, cattleType))
	if err := c.Validate(); err != nil {
		s.mu.Unlock()
		return core.TrackedCattle{}, err
	}

	next := append(s.herd.Clone(), c)
	change, err := s.commit(ctx, next, herd.OpAdd, c.ID)
	s.mu.Unlock()
	if err != nil {
		return core.TrackedCattle{}, err
	}

	s.events.LogCattleChange(ctx, log.OpAdd, c, change.HerdSize, change.Version)
	s.publish(ctx, change)
	return c, nil
}

// Edit replaces the type and weight of an animal and re-resolves its values.
func (s *HerdService) Edit(ctx context.Context, id, cattleType string, weight float64) (core.TrackedCattle, error) {
	s.mu.Lock()
	i := s.herd.Index(id)
	if i < 0 {
		s.mu.Unlock()
		return core.TrackedCattle{}, herd.ErrNotFound
	}
	c := core.TrackedCattle{
		ID:     id,
		Type:   cattleType,
		Weight: weight,
		Values: s.lookup(ctx, cattleType),
	}
	if err := c.Validate(); err != nil {
		s.mu.Unlock()
		return core.TrackedCattle{}, err
	}

	next := s.herd.Clone()
	next[i] = c
	change, err := s.commit(ctx, next, herd.OpEdit, id)
	s.mu.Unlock()
	if err != nil {
		return core.TrackedCattle{}, err
	}

	s.events.LogCattleChange(ctx, log.OpEdit, c, change.HerdSize, change.Version)
	s.publish(ctx, change)
	return c, nil
}

// Remove deletes one animal. Removing the last one clears the saved blob.
func (s *HerdService) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	i := s.herd.Index(id)
	if i < 0 {
		s.mu.Unlock()
		return herd.ErrNotFound
	}
	removed := s.herd[i]

	next := make(core.Herd, 0, len(s.herd)-1)
	next = append(next, s.herd[:i].Clone()...)
	next = append(next, s.herd[i+1:].Clone()...)
	change, err := s.commit(ctx, next, herd.OpRemove, id)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.events.LogCattleChange(ctx, log.OpRemove, removed, change.HerdSize, change.Version)
	s.publish(ctx, change)
	return nil
}

// Clear drops the whole herd and the saved blob.
func (s *HerdService) Clear(ctx context.Context) error {
	s.mu.Lock()
	removed := len(s.herd)
	change, err := s.commit(ctx, core.Herd{}, herd.OpClear, "")
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.events.LogHerdCleared(ctx, removed, change.Version)
	s.publish(ctx, change)
	return nil
}

// commit persists next and swaps it in. Callers hold s.mu.
func (s *HerdService) commit(ctx context.Context, next core.Herd, op, id string) (herd.Change, error) {
	if len(next) == 0 {
		if err := s.repo.Clear(ctx); err != nil {
			return herd.Change{}, fmt.Errorf("clear herd: %w", err)
		}
	} else if err := s.repo.Save(ctx, next); err != nil {
		return herd.Change{}, fmt.Errorf("save herd: %w", err)
	}
	s.herd = next
	s.version++
	return herd.Change{
		Operation: op,
		CattleID:  id,
		Version:   s.version,
		HerdSize:  len(next),
	}, nil
}

// lookup resolves the reference values for a type. Callers hold s.mu.
func (s *HerdService) lookup(ctx context.Context, cattleType string) []core.ReferenceObservation {
	values, ok := s.dataset.Lookup(cattleType)
	if !ok && cattleType != "" {
		s.logger.WarnContext(ctx, "No reference values for cattle type",
			log.FieldCattleType, cattleType,
			log.FieldDatasetTypes, s.dataset.Len())
	}
	return values
}

func (s *HerdService) publish(ctx context.Context, change herd.Change) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No change publisher configured, skipping herd change event",
			log.FieldOperation, change.Operation)
		return
	}
	if err := s.publisher.PublishHerdChanged(ctx, change); err != nil {
		// The mutation is already saved.
		s.events.LogError(ctx, "Failed to publish herd change", err, log.ComponentAMQP, log.OpPublish,
			log.NewFields().WithHerd(change.HerdSize, change.Version))
	}
}

// Close closes the repository and publisher when they hold resources.
func (s *HerdService) Close() error {
	var errs []error
	if c, ok := s.repo.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close herd service: %w", errors.Join(errs...))
	}
	return nil
}
