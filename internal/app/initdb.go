package app

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/talkincode/plantcatalog/internal/app/seed"
	"github.com/talkincode/plantcatalog/internal/query"
)

// checkPlants seeds the starter catalog when the store holds no plants
func (a *Application) checkPlants(ctx context.Context) {
	count, err := a.catalog.Count(ctx)
	if err != nil {
		zap.L().Error("failed to count plants", zap.Error(err))
		return
	}
	if count > 0 {
		return
	}
	n, err := a.SeedCatalog(ctx, false)
	if err != nil {
		zap.L().Error("failed to seed plant catalog", zap.Int("created", n), zap.Error(err))
		return
	}
	zap.L().Info("initialized plant catalog", zap.Int("plants", n))
}

// SeedCatalog inserts the embedded starter catalog and returns how many
// plants were created. With wipe, every existing plant is deleted first.
func (a *Application) SeedCatalog(ctx context.Context, wipe bool) (int, error) {
	patches, err := seed.Patches()
	if err != nil {
		return 0, err
	}
	if wipe {
		existing, err := a.catalog.List(ctx, query.DefaultParams())
		if err != nil {
			return 0, errors.Wrap(err, "list existing plants")
		}
		for _, p := range existing {
			if err := a.catalog.Delete(ctx, p.ID); err != nil {
				return 0, errors.Wrapf(err, "delete %s", p.ID)
			}
		}
		zap.L().Info("cleared plant catalog", zap.Int("deleted", len(existing)))
	}
	created := 0
	for _, patch := range patches {
		if _, err := a.catalog.Create(ctx, patch); err != nil {
			return created, errors.Wrapf(err, "create %s", *patch.Name)
		}
		created++
	}
	return created, nil
}
