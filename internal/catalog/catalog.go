// Package catalog implements the Resource API operations over a document
// store. Every record leaving the service has been normalized.
package catalog

import (
	"context"
	"sort"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/talkincode/plantcatalog/internal/domain"
	"github.com/talkincode/plantcatalog/internal/query"
	"github.com/talkincode/plantcatalog/internal/schema"
	"github.com/talkincode/plantcatalog/internal/store"
)

// ErrNotFound is returned when the identifier matches no plant
var ErrNotFound = errors.New("Plant not found")

// StoreError wraps a persistence failure. Its message is the underlying
// error text, unchanged.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return e.Err.Error() }

func (e *StoreError) Unwrap() error { return e.Err }

// Cause lets errors.Cause reach the driver error
func (e *StoreError) Cause() error { return e.Err }

// Stats summarizes the plants matching a filter
type Stats = domain.Stats

type Service struct {
	store store.Store
	log   *zap.Logger
}

func NewService(s store.Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.L()
	}
	return &Service{store: s, log: log.Named("catalog")}
}

// Store returns the underlying document store
func (s *Service) Store() store.Store {
	return s.store
}

func (s *Service) fail(op string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		return verr
	}
	s.log.Error("store operation failed", zap.String("op", op), zap.Error(err))
	return &StoreError{Op: op, Err: err}
}

func normalizeAll(ps []domain.Plant) []domain.Plant {
	out := make([]domain.Plant, len(ps))
	for i, p := range ps {
		out[i] = schema.Normalize(p)
	}
	return out
}

// List returns every plant matching p, newest first. An empty match is an
// empty slice, never an error.
func (s *Service) List(ctx context.Context, p query.Params) ([]domain.Plant, error) {
	ps, err := s.store.Find(ctx, query.Build(p))
	if err != nil {
		return nil, s.fail("list", err)
	}
	return normalizeAll(ps), nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Plant, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return domain.Plant{}, s.fail("get", err)
	}
	return schema.Normalize(p), nil
}

// Create validates the candidate and persists it. Nothing is written when
// validation fails.
func (s *Service) Create(ctx context.Context, patch schema.Patch) (domain.Plant, error) {
	if err := patch.ValidateCreate(); err != nil {
		return domain.Plant{}, err
	}
	p, err := s.store.Insert(ctx, patch.NewPlant())
	if err != nil {
		return domain.Plant{}, s.fail("create", err)
	}
	s.log.Debug("plant created", zap.String("id", p.ID), zap.String("name", p.Name))
	return schema.Normalize(p), nil
}

// Update merges the provided fields into an existing plant. The patch is
// validated before the identifier is looked up.
func (s *Service) Update(ctx context.Context, id string, patch schema.Patch) (domain.Plant, error) {
	if err := patch.ValidateUpdate(); err != nil {
		return domain.Plant{}, err
	}
	p, err := s.store.Update(ctx, id, func(cur *domain.Plant) error {
		*cur = schema.Normalize(*cur)
		patch.Apply(cur)
		return nil
	})
	if err != nil {
		return domain.Plant{}, s.fail("update", err)
	}
	s.log.Debug("plant updated", zap.String("id", p.ID))
	return schema.Normalize(p), nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return s.fail("delete", err)
	}
	s.log.Debug("plant deleted", zap.String("id", id))
	return nil
}

// Categories returns the tags in use, sorted and without duplicates
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	tags, err := s.store.Categories(ctx)
	if err != nil {
		return nil, s.fail("categories", err)
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}

// Stats computes price statistics over the plants matching p
func (s *Service) Stats(ctx context.Context, p query.Params) (Stats, error) {
	ps, err := s.List(ctx, p)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{Count: len(ps)}
	if len(ps) == 0 {
		return st, nil
	}
	prices := make(stats.Float64Data, 0, len(ps))
	for _, p := range ps {
		prices = append(prices, p.Price)
		if p.StockAvailable {
			st.InStock++
		}
	}
	// none of these fail on a non-empty input
	st.MinPrice, _ = stats.Min(prices)
	st.MaxPrice, _ = stats.Max(prices)
	st.MeanPrice, _ = stats.Mean(prices)
	st.MedianPrice, _ = stats.Median(prices)
	return st, nil
}

// Count returns the number of stored plants
func (s *Service) Count(ctx context.Context) (int64, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return 0, s.fail("count", err)
	}
	return n, nil
}
