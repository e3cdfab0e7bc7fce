// Package storetest holds the conformance tests every store engine must pass
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkincode/plantcatalog/internal/domain"
	"github.com/talkincode/plantcatalog/internal/query"
	"github.com/talkincode/plantcatalog/internal/store"
)

// Factory opens an empty engine using the given clock and id source
type Factory func(t *testing.T, clock store.Clock, ids store.IDGenerator) store.Store

// FakeClock advances one second per call unless frozen
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	step   time.Duration
	frozen bool
}

func NewFakeClock() *FakeClock {
	return &FakeClock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), step: time.Second}
}

func (c *FakeClock) Freeze() {
	c.mu.Lock()
	c.frozen = true
	c.mu.Unlock()
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	if !c.frozen {
		c.now = c.now.Add(c.step)
	}
	return t
}

// SeqIDs yields p-0001, p-0002, ...
type SeqIDs struct {
	mu sync.Mutex
	n  int
}

func (s *SeqIDs) NextID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("p-%04d", s.n)
}

func plant(name string, price float64, stock bool, tags ...string) domain.Plant {
	return domain.Plant{
		Name:              name,
		Price:             price,
		Categories:        tags,
		StockAvailable:    stock,
		ImageURL:          domain.DefaultImageURL,
		CareLevel:         domain.DefaultCareLevel,
		LightRequirement:  domain.DefaultLightRequirement,
		WateringFrequency: domain.DefaultWateringFrequency,
		Height:            domain.DefaultHeight,
	}
}

func names(ps []domain.Plant) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name
	}
	return out
}

func f(v float64) *float64 { return &v }

func seed(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()
	for _, p := range []domain.Plant{
		plant("Aloe Vera", 149, true, "Succulent", "Indoor"),
		plant("Snake Plant", 299, true, "Air Purifying", "Indoor"),
		plant("Money Plant", 199, false, "Indoor", "Home Decor"),
		plant("Rose", 99, true, "Outdoor", "Flowering"),
		plant("Golden Barrel Cactus", 499, true, "Cactus", "Succulent"),
	} {
		_, err := s.Insert(ctx, p)
		require.NoError(t, err)
	}
}

// Run executes the suite against engines created by open
func Run(t *testing.T, open Factory) {
	newStore := func(t *testing.T) (store.Store, *FakeClock) {
		clock := NewFakeClock()
		s := open(t, clock.Now, &SeqIDs{})
		t.Cleanup(func() { _ = s.Close() })
		return s, clock
	}
	ctx := context.Background()

	t.Run("InsertAssignsIdentity", func(t *testing.T) {
		s, _ := newStore(t)
		got, err := s.Insert(ctx, plant("Fern", 120, true, "Foliage"))
		require.NoError(t, err)
		assert.Equal(t, "p-0001", got.ID)
		assert.False(t, got.CreatedAt.IsZero())
		assert.True(t, got.CreatedAt.Equal(got.UpdatedAt))

		loaded, err := s.Get(ctx, got.ID)
		require.NoError(t, err)
		assert.Equal(t, got.Name, loaded.Name)
		assert.Equal(t, []string{"Foliage"}, loaded.Categories)
		assert.True(t, got.CreatedAt.Equal(loaded.CreatedAt))

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
	})

	t.Run("GetUnknown", func(t *testing.T) {
		s, _ := newStore(t)
		_, err := s.Get(ctx, "nope")
		assert.True(t, errors.Is(err, store.ErrNotFound))
	})

	t.Run("FindNewestFirst", func(t *testing.T) {
		s, _ := newStore(t)
		seed(t, s)
		got, err := s.Find(ctx, query.Build(query.DefaultParams()))
		require.NoError(t, err)
		assert.Equal(t, []string{"Golden Barrel Cactus", "Rose", "Money Plant", "Snake Plant", "Aloe Vera"}, names(got))
	})

	t.Run("FindTieBreaksOnID", func(t *testing.T) {
		s, clock := newStore(t)
		clock.Freeze()
		seed(t, s)
		got, err := s.Find(ctx, query.Build(query.DefaultParams()))
		require.NoError(t, err)
		require.Len(t, got, 5)
		for i := 1; i < len(got); i++ {
			assert.Greater(t, got[i-1].ID, got[i].ID)
		}
	})

	t.Run("FindFilters", func(t *testing.T) {
		s, _ := newStore(t)
		seed(t, s)
		cases := []struct {
			name   string
			params query.Params
			want   []string
		}{
			{"search name", query.Params{Search: "aloe"}, []string{"Aloe Vera"}},
			{"search tag", query.Params{Search: "SUCC"}, []string{"Golden Barrel Cactus", "Aloe Vera"}},
			{"search literal", query.Params{Search: "a.e"}, nil},
			{"search wildcard", query.Params{Search: "%"}, nil},
			{"category", query.Params{Category: "Indoor"}, []string{"Money Plant", "Snake Plant", "Aloe Vera"}},
			{"category exact", query.Params{Category: "indoor"}, nil},
			{"category all", query.Params{Category: "all"}, []string{"Golden Barrel Cactus", "Rose", "Money Plant", "Snake Plant", "Aloe Vera"}},
			{"price range", query.Params{MinPrice: f(100), MaxPrice: f(300)}, []string{"Money Plant", "Snake Plant", "Aloe Vera"}},
			{"price inclusive", query.Params{MinPrice: f(99), MaxPrice: f(99)}, []string{"Rose"}},
			{"price inverted", query.Params{MinPrice: f(500), MaxPrice: f(100)}, nil},
			{"available", query.Params{AvailableOnly: true, Category: "Indoor"}, []string{"Snake Plant", "Aloe Vera"}},
			{"combined", query.Params{Search: "plant", MaxPrice: f(250)}, []string{"Money Plant"}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				got, err := s.Find(ctx, query.Build(tc.params))
				require.NoError(t, err)
				want := tc.want
				if want == nil {
					want = []string{}
				}
				assert.Equal(t, want, names(got))
			})
		}
	})

	t.Run("FindFoldsNonASCII", func(t *testing.T) {
		s, _ := newStore(t)
		seed(t, s)
		p, err := s.Insert(ctx, plant("ÉCHEVERIA Élégans", 349, true, "Sukkulente Ö"))
		require.NoError(t, err)

		for _, term := range []string{"échev", "ÉLÉG", "ö", "sukkulente ö"} {
			got, err := s.Find(ctx, query.Build(query.Params{Search: term}))
			require.NoError(t, err)
			assert.Equal(t, []string{"ÉCHEVERIA Élégans"}, names(got), term)
		}

		_, err = s.Update(ctx, p.ID, func(p *domain.Plant) error {
			p.Name = "Straße Fern"
			p.Categories = []string{"Ärger"}
			return nil
		})
		require.NoError(t, err)
		for term, want := range map[string][]string{
			"straße": {"Straße Fern"},
			"är":     {"Straße Fern"},
			"échev":  {},
		} {
			got, err := s.Find(ctx, query.Build(query.Params{Search: term}))
			require.NoError(t, err)
			assert.Equal(t, want, names(got), term)
		}
	})

	t.Run("UpdateMutatesAtomically", func(t *testing.T) {
		s, _ := newStore(t)
		orig, err := s.Insert(ctx, plant("Fern", 120, true, "Foliage"))
		require.NoError(t, err)

		got, err := s.Update(ctx, orig.ID, func(p *domain.Plant) error {
			p.Price = 150
			p.Categories = []string{"Foliage", "Indoor"}
			p.ID = "hijack"
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, orig.ID, got.ID)
		assert.Equal(t, 150.0, got.Price)
		assert.True(t, got.CreatedAt.Equal(orig.CreatedAt))
		assert.True(t, got.UpdatedAt.After(orig.UpdatedAt))

		loaded, err := s.Get(ctx, orig.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"Foliage", "Indoor"}, loaded.Categories)
		assert.True(t, got.UpdatedAt.Equal(loaded.UpdatedAt))
	})

	t.Run("UpdateMovesClockForward", func(t *testing.T) {
		s, clock := newStore(t)
		clock.Freeze()
		orig, err := s.Insert(ctx, plant("Fern", 120, true, "Foliage"))
		require.NoError(t, err)
		got, err := s.Update(ctx, orig.ID, func(p *domain.Plant) error { return nil })
		require.NoError(t, err)
		assert.True(t, got.UpdatedAt.After(orig.UpdatedAt))
	})

	t.Run("UpdateAbortsOnError", func(t *testing.T) {
		s, _ := newStore(t)
		orig, err := s.Insert(ctx, plant("Fern", 120, true, "Foliage"))
		require.NoError(t, err)
		boom := errors.New("boom")
		_, err = s.Update(ctx, orig.ID, func(p *domain.Plant) error {
			p.Name = "Changed"
			return boom
		})
		assert.ErrorIs(t, err, boom)
		loaded, err := s.Get(ctx, orig.ID)
		require.NoError(t, err)
		assert.Equal(t, "Fern", loaded.Name)
	})

	t.Run("UpdateUnknown", func(t *testing.T) {
		s, _ := newStore(t)
		_, err := s.Update(ctx, "nope", func(p *domain.Plant) error { return nil })
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		s, _ := newStore(t)
		orig, err := s.Insert(ctx, plant("Fern", 120, true, "Foliage"))
		require.NoError(t, err)
		require.NoError(t, s.Delete(ctx, orig.ID))
		_, err = s.Get(ctx, orig.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.ErrorIs(t, s.Delete(ctx, orig.ID), store.ErrNotFound)

		cats, err := s.Categories(ctx)
		require.NoError(t, err)
		assert.Empty(t, cats)
	})

	t.Run("CategoriesDistinct", func(t *testing.T) {
		s, _ := newStore(t)
		seed(t, s)
		cats, err := s.Categories(ctx)
		require.NoError(t, err)
		sort.Strings(cats)
		assert.Equal(t, []string{
			"Air Purifying", "Cactus", "Flowering", "Home Decor", "Indoor", "Outdoor", "Succulent",
		}, cats)
	})

	t.Run("ReturnedValuesAreCopies", func(t *testing.T) {
		s, _ := newStore(t)
		orig, err := s.Insert(ctx, plant("Fern", 120, true, "Foliage"))
		require.NoError(t, err)
		orig.Categories[0] = "Mutated"
		loaded, err := s.Get(ctx, orig.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"Foliage"}, loaded.Categories)
	})
}
