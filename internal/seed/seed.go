// Package seed loads the static lookup values and the local fixture data.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"queue-keeper/internal/domain"
	"queue-keeper/internal/store"
)

// Statics inserts the default queue types and statuses. Existing keys are
// left alone, so this runs on every startup.
func Statics(ctx context.Context, statics store.StaticRepository, logger *slog.Logger) error {
	entries := domain.DefaultStaticEntries()
	if err := statics.Seed(ctx, entries); err != nil {
		return fmt.Errorf("failed to seed static entries: %w", err)
	}

	logger.Info("static entries seeded", "count", len(entries))
	return nil
}

// fixtureStores are four companies with two stores each.
var fixtureStores = []domain.Store{
	// Coffee Paradise
	{ID: "eeeeeeee-eeee-eeee-eeee-eeeeeeeeeeee", DisplaySequence: 1, Name: "Downtown Café", Alias: domain.StringPtr("CP"), CompanyID: "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"},
	{ID: "ffffffff-ffff-ffff-ffff-ffffffffffff", DisplaySequence: 2, Name: "Riverside Coffee", Alias: domain.StringPtr("CP"), CompanyID: "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"},
	// Sushi Bar
	{ID: "11111111-gggg-gggg-gggg-gggggggggggg", DisplaySequence: 3, Name: "Ueno", Alias: domain.StringPtr("SB"), CompanyID: "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"},
	{ID: "22222222-hhhh-hhhh-hhhh-hhhhhhhhhhhh", DisplaySequence: 4, Name: "Nagoya", Alias: domain.StringPtr("SB"), CompanyID: "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"},
	// WOW KBBQ
	{ID: "33333333-iiii-iiii-iiii-iiiiiiiiiiii", DisplaySequence: 5, Name: "Yishun", Alias: domain.StringPtr("WK"), CompanyID: "cccccccc-cccc-cccc-cccc-cccccccccccc"},
	{ID: "44444444-jjjj-jjjj-jjjj-jjjjjjjjjjjj", DisplaySequence: 6, Name: "Bedok", Alias: domain.StringPtr("WK"), CompanyID: "cccccccc-cccc-cccc-cccc-cccccccccccc"},
	// Gourmet Dining
	{ID: "55555555-kkkk-kkkk-kkkk-kkkkkkkkkkkk", DisplaySequence: 7, Name: "Seaside Bistro", Alias: domain.StringPtr("GD"), CompanyID: "dddddddd-dddd-dddd-dddd-dddddddddddd"},
	{ID: "66666666-llll-llll-llll-llllllllllll", DisplaySequence: 8, Name: "Mountain View Restaurant", Alias: domain.StringPtr("GD"), CompanyID: "dddddddd-dddd-dddd-dddd-dddddddddddd"},
}

// FixtureStores returns a copy of the fixture stores.
func FixtureStores() []domain.Store {
	out := make([]domain.Store, len(fixtureStores))
	copy(out, fixtureStores)
	return out
}

// TestData replaces the fixture stores and gives each an open Virtual
// queue. Fixture stores left over from a previous run are deleted first,
// together with their queues. Statics must be seeded before.
func TestData(ctx context.Context, stores store.StoreRepository, queues store.QueueRepository, logger *slog.Logger) error {
	for i := range fixtureStores {
		s := fixtureStores[i]

		if err := stores.Delete(ctx, s.ID); err != nil && !errors.Is(err, domain.ErrStoreNotFound) {
			return fmt.Errorf("failed to clean fixture store %s: %w", s.ID, err)
		}
		if err := stores.Create(ctx, &s); err != nil {
			return fmt.Errorf("failed to insert fixture store %s: %w", s.ID, err)
		}

		q := &domain.Queue{
			ID:          fmt.Sprintf("q%07d-0000-0000-0000-000000000000", i+1),
			QueueType:   domain.QueueTypeVirtual,
			Description: domain.StringPtr("Virtual queue for " + s.Name),
			Status:      domain.QueueStatusOpen,
			StoreID:     s.ID,
		}
		if err := queues.Create(ctx, q); err != nil {
			return fmt.Errorf("failed to insert fixture queue for %s: %w", s.ID, err)
		}
	}

	logger.Info("test data seeded", "stores", len(fixtureStores))
	return nil
}
