// Package memstore is an in-process engine keeping documents in a btree
// ordered the way listings are returned.
package memstore

import (
	"context"
	"sync"

	"github.com/google/btree"

	"github.com/talkincode/plantcatalog/internal/domain"
	"github.com/talkincode/plantcatalog/internal/query"
	"github.com/talkincode/plantcatalog/internal/store"
)

const degree = 16

type Option func(*Store)

// WithClock overrides the timestamp source
func WithClock(c store.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithIDs overrides the identifier generator
func WithIDs(ids store.IDGenerator) Option {
	return func(s *Store) { s.ids = ids }
}

// Store is safe for concurrent use
type Store struct {
	mu    sync.RWMutex
	tree  *btree.BTreeG[domain.Plant]
	byID  map[string]domain.Plant
	ids   store.IDGenerator
	clock store.Clock
}

var _ store.Store = (*Store)(nil)

func New(ids store.IDGenerator, opts ...Option) *Store {
	s := &Store{
		tree: btree.NewG[domain.Plant](degree, query.Less),
		byID: make(map[string]domain.Plant),
		ids:  ids,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) Find(_ context.Context, q query.Query) ([]domain.Plant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Plant, 0)
	s.tree.Ascend(func(p domain.Plant) bool {
		if q.Match(p) {
			out = append(out, p.Clone())
		}
		return true
	})
	return out, nil
}

func (s *Store) Get(_ context.Context, id string) (domain.Plant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[id]
	if !ok {
		return domain.Plant{}, store.ErrNotFound
	}
	return p.Clone(), nil
}

func (s *Store) Insert(_ context.Context, p domain.Plant) (domain.Plant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p = store.Stamp(p, s.ids, s.clock)
	s.tree.ReplaceOrInsert(p)
	s.byID[p.ID] = p
	return p.Clone(), nil
}

func (s *Store) Update(_ context.Context, id string, fn store.MutateFunc) (domain.Plant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.byID[id]
	if !ok {
		return domain.Plant{}, store.ErrNotFound
	}
	next, err := store.ApplyUpdate(cur, fn, s.clock)
	if err != nil {
		return domain.Plant{}, err
	}
	s.tree.Delete(cur)
	s.tree.ReplaceOrInsert(next)
	s.byID[id] = next
	return next.Clone(), nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	s.tree.Delete(cur)
	delete(s.byID, id)
	return nil
}

func (s *Store) Categories(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, p := range s.byID {
		for _, c := range p.Categories {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.byID)), nil
}

func (s *Store) Close() error {
	return nil
}
