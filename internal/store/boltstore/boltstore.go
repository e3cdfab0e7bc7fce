// Package boltstore keeps plants as JSON documents in a bbolt file
package boltstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/talkincode/plantcatalog/internal/domain"
	"github.com/talkincode/plantcatalog/internal/query"
	"github.com/talkincode/plantcatalog/internal/store"
)

var bucketPlants = []byte("plants")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Option func(*Store)

// WithClock overrides the timestamp source
func WithClock(c store.Clock) Option {
	return func(s *Store) { s.clock = c }
}

type Store struct {
	db    *bolt.DB
	ids   store.IDGenerator
	clock store.Clock
}

var (
	_ store.Store       = (*Store)(nil)
	_ store.Snapshotter = (*Store)(nil)
)

// Open opens or creates the data file at path
func Open(path string, ids store.IDGenerator, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create data directory")
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketPlants)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create bucket")
	}
	s := &Store{db: db, ids: ids}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// decode starts from a record whose stock flag is already true so that
// documents written without the field keep the default
func decode(data []byte) (domain.Plant, error) {
	p := domain.Plant{StockAvailable: true}
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.Plant{}, errors.Wrap(err, "decode document")
	}
	return p, nil
}

func put(b *bolt.Bucket, p domain.Plant) error {
	data, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "encode document")
	}
	return b.Put([]byte(p.ID), data)
}

func (s *Store) Find(ctx context.Context, q query.Query) ([]domain.Plant, error) {
	out := make([]domain.Plant, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPlants).ForEach(func(_, v []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := decode(v)
			if err != nil {
				return err
			}
			if q.Match(p) {
				out = append(out, p)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, query.Compare)
	return out, nil
}

func (s *Store) Get(_ context.Context, id string) (domain.Plant, error) {
	var p domain.Plant
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketPlants).Get([]byte(id))
		if v == nil {
			return store.ErrNotFound
		}
		var err error
		p, err = decode(v)
		return err
	})
	return p, err
}

func (s *Store) Insert(_ context.Context, p domain.Plant) (domain.Plant, error) {
	p = store.Stamp(p, s.ids, s.clock)
	err := s.db.Update(func(tx *bolt.Tx) error {
		return put(tx.Bucket(bucketPlants), p)
	})
	if err != nil {
		return domain.Plant{}, err
	}
	return p, nil
}

func (s *Store) Update(_ context.Context, id string, fn store.MutateFunc) (domain.Plant, error) {
	var next domain.Plant
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPlants)
		v := b.Get([]byte(id))
		if v == nil {
			return store.ErrNotFound
		}
		cur, err := decode(v)
		if err != nil {
			return err
		}
		next, err = store.ApplyUpdate(cur, fn, s.clock)
		if err != nil {
			return err
		}
		return put(b, next)
	})
	if err != nil {
		return domain.Plant{}, err
	}
	return next, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPlants)
		if b.Get([]byte(id)) == nil {
			return store.ErrNotFound
		}
		return b.Delete([]byte(id))
	})
}

func (s *Store) Categories(_ context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPlants).ForEach(func(_, v []byte) error {
			var doc struct {
				Categories []string `json:"categories"`
			}
			if err := json.Unmarshal(v, &doc); err != nil {
				return errors.Wrap(err, "decode document")
			}
			for _, c := range doc.Categories {
				if _, ok := seen[c]; !ok {
					seen[c] = struct{}{}
					out = append(out, c)
				}
			}
			return nil
		})
	})
	return out, err
}

func (s *Store) Count(_ context.Context) (int64, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketPlants).Stats().KeyN
		return nil
	})
	return int64(n), err
}

// Snapshot writes a consistent copy of the data file to w
func (s *Store) Snapshot(w io.Writer) (int64, error) {
	var n int64
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		n, err = tx.WriteTo(w)
		return err
	})
	return n, err
}

func (s *Store) Close() error {
	return s.db.Close()
}
