package cli

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/talkincode/plantcatalog/internal/app/seed"
	"github.com/talkincode/plantcatalog/internal/domain"
	"github.com/talkincode/plantcatalog/internal/query"
	"github.com/talkincode/plantcatalog/internal/schema"
)

// SeedAPI is the part of the catalog client seeding needs
type SeedAPI interface {
	List(ctx context.Context, p query.Params) ([]domain.Plant, error)
	Create(ctx context.Context, patch schema.Patch) (domain.Plant, error)
	Delete(ctx context.Context, id string) error
}

// SeedResult counts what Seed did
type SeedResult struct {
	Deleted int64
	Created int64
}

// runPool calls fn for 0..n-1 on at most workers goroutines and returns the
// first error. Remaining items still run; nothing is rolled back.
func runPool(workers, n int, fn func(i int) error) error {
	pool, err := ants.NewPool(workers)
	if err != nil {
		return errors.Wrap(err, "create worker pool")
	}
	defer pool.Release()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	record := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			if err := fn(i); err != nil {
				record(err)
			}
		}); err != nil {
			wg.Done()
			record(err)
		}
	}
	wg.Wait()
	return firstErr
}

// Seed posts patches through the API. With wipe every existing plant is
// deleted first.
func Seed(ctx context.Context, api SeedAPI, patches []schema.Patch, workers int, wipe bool) (SeedResult, error) {
	var res SeedResult
	if workers < 1 {
		workers = 1
	}
	if wipe {
		existing, err := api.List(ctx, query.DefaultParams())
		if err != nil {
			return res, errors.Wrap(err, "list existing plants")
		}
		err = runPool(workers, len(existing), func(i int) error {
			if err := api.Delete(ctx, existing[i].ID); err != nil {
				return errors.Wrapf(err, "delete %s", existing[i].ID)
			}
			atomic.AddInt64(&res.Deleted, 1)
			return nil
		})
		if err != nil {
			return res, err
		}
	}
	err := runPool(workers, len(patches), func(i int) error {
		if _, err := api.Create(ctx, patches[i]); err != nil {
			return errors.Wrapf(err, "create plant %d", i+1)
		}
		atomic.AddInt64(&res.Created, 1)
		return nil
	})
	return res, err
}

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the starter catalog through the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			wipe, _ := cmd.Flags().GetBool("wipe")
			workers, _ := cmd.Flags().GetInt("workers")
			patches, err := seed.Patches()
			if err != nil {
				return err
			}
			res, err := Seed(cmd.Context(), clientFor(cmd), patches, workers, wipe)
			if wipe {
				fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render(fmt.Sprintf("deleted %d plant(s)", res.Deleted)))
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("created %d of %d plant(s)", res.Created, len(patches))))
			return err
		},
	}
	cmd.Flags().Bool("wipe", false, "delete every existing plant first")
	cmd.Flags().IntP("workers", "w", 8, "concurrent requests")
	return cmd
}
