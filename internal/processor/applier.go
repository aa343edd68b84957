package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"queue-keeper/internal/domain"
	"queue-keeper/internal/store"
)

// Applier turns decoded store events into store mutations. Each event is
// exactly one repository call, and so one transaction.
type Applier struct {
	stores store.StoreRepository
	logger *slog.Logger
}

// NewApplier creates a new applier.
func NewApplier(stores store.StoreRepository, logger *slog.Logger) *Applier {
	return &Applier{
		stores: stores,
		logger: logger,
	}
}

// Apply performs the mutation for ev. It returns nil or a *domain.Failure;
// a panic inside the repository is reported as a persistence failure.
func (a *Applier) Apply(ctx context.Context, ev domain.StoreEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &domain.Failure{
				Kind: domain.KindPersistence,
				Op:   "apply " + string(ev.RoutingKey()),
				Err:  fmt.Errorf("panic: %v", r),
			}
		}
	}()

	switch e := ev.(type) {
	case *domain.StoreCreated:
		return a.applyCreated(ctx, e)
	case *domain.StoreUpdated:
		return a.applyUpdated(ctx, e)
	case *domain.StoreDeactivated:
		return a.applyDeactivated(ctx, e)
	default:
		return &domain.Failure{
			Kind: domain.KindDecode,
			Op:   "apply store event",
			Err:  fmt.Errorf("%w: %T", domain.ErrUnknownRoutingKey, ev),
		}
	}
}

// applyCreated inserts the store. A redelivered create that matches the
// stored row exactly is a success; any divergence is a conflict and leaves
// the row as it is.
func (a *Applier) applyCreated(ctx context.Context, e *domain.StoreCreated) error {
	s := e.ToStore()

	err := a.stores.Create(ctx, s)
	if err == nil {
		a.logger.Info("store created", "storeID", s.ID, "displayID", s.DisplayID(), "companyID", s.CompanyID)
		return nil
	}
	if !errors.Is(err, domain.ErrStoreAlreadyExists) {
		return domain.NewFailure("create store", err)
	}

	existing, getErr := a.stores.GetByID(ctx, s.ID)
	if getErr != nil {
		// deleted between the insert and the read; the next delivery retries
		return domain.NewFailure("create store", getErr)
	}

	if existing.SameAs(s) {
		a.logger.Debug("duplicate store create ignored", "storeID", s.ID)
		return nil
	}

	return &domain.Failure{
		Kind: domain.KindConflict,
		Op:   "create store",
		Err:  fmt.Errorf("%w: %s holds different data", domain.ErrStoreAlreadyExists, s.ID),
	}
}

func (a *Applier) applyUpdated(ctx context.Context, e *domain.StoreUpdated) error {
	if err := a.stores.Rename(ctx, e.ID, e.Name, e.Alias); err != nil {
		return domain.NewFailure("update store", err)
	}

	a.logger.Info("store updated", "storeID", e.ID)
	return nil
}

func (a *Applier) applyDeactivated(ctx context.Context, e *domain.StoreDeactivated) error {
	if err := a.stores.Deactivate(ctx, e.ID); err != nil {
		return domain.NewFailure("deactivate store", err)
	}

	a.logger.Info("store deactivated", "storeID", e.ID)
	return nil
}
