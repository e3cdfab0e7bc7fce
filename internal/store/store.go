// Package store defines the document store used by the catalog and the
// helpers shared by its engines.
package store

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/talkincode/plantcatalog/internal/domain"
	"github.com/talkincode/plantcatalog/internal/query"
)

// ErrNotFound is returned when no document has the requested identifier
var ErrNotFound = errors.New("document not found")

// MutateFunc edits a document in place inside an atomic update
type MutateFunc func(p *domain.Plant) error

// Store is a document store of plants. Every method touches at most one
// document atomically; there are no cross-document transactions.
type Store interface {
	// Find returns every document matching q in query.Compare order
	Find(ctx context.Context, q query.Query) ([]domain.Plant, error)

	// Get returns one document or ErrNotFound
	Get(ctx context.Context, id string) (domain.Plant, error)

	// Insert assigns identifier and timestamps, persists and returns the document
	Insert(ctx context.Context, p domain.Plant) (domain.Plant, error)

	// Update reads, mutates and writes back one document atomically and
	// refreshes its last-modified timestamp. Returns ErrNotFound if absent.
	Update(ctx context.Context, id string, fn MutateFunc) (domain.Plant, error)

	// Delete removes one document or returns ErrNotFound
	Delete(ctx context.Context, id string) error

	// Categories returns the distinct tags in use, unordered
	Categories(ctx context.Context) ([]string, error)

	// Count returns the number of stored documents
	Count(ctx context.Context) (int64, error)

	Close() error
}

// Snapshotter is implemented by engines that can stream a consistent copy
// of their data file
type Snapshotter interface {
	Snapshot(w io.Writer) (int64, error)
}

// IDGenerator hands out opaque, unique document identifiers
type IDGenerator interface {
	NextID() string
}

// SnowflakeIDs generates time ordered identifiers
type SnowflakeIDs struct {
	node *snowflake.Node
}

// NewSnowflakeIDs creates a generator for the given node number (0-1023)
func NewSnowflakeIDs(node int64) (*SnowflakeIDs, error) {
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, err
	}
	return &SnowflakeIDs{node: n}, nil
}

func (g *SnowflakeIDs) NextID() string {
	return g.node.Generate().String()
}

// Clock returns the current time
type Clock func() time.Time

// Precision is the resolution timestamps are stored with
const Precision = time.Millisecond

// Now reads c truncated to Precision, falling back to time.Now
func (c Clock) Now() time.Time {
	if c == nil {
		return time.Now().UTC().Truncate(Precision)
	}
	return c().UTC().Truncate(Precision)
}

// Touch returns the next last-modified value for a document last written
// at prev: the current time, or one tick after prev if the clock has not
// moved past it.
func Touch(prev, now time.Time) time.Time {
	if now.After(prev) {
		return now
	}
	return prev.Add(Precision)
}

// Stamp prepares a new document for insertion
func Stamp(p domain.Plant, ids IDGenerator, clock Clock) domain.Plant {
	p = p.Clone()
	p.ID = ids.NextID()
	now := clock.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	return p
}

// ApplyUpdate runs fn on a copy of cur and restores the immutable fields
func ApplyUpdate(cur domain.Plant, fn MutateFunc, clock Clock) (domain.Plant, error) {
	next := cur.Clone()
	if err := fn(&next); err != nil {
		return domain.Plant{}, err
	}
	next.ID = cur.ID
	next.CreatedAt = cur.CreatedAt
	next.UpdatedAt = Touch(cur.UpdatedAt, clock.Now())
	return next, nil
}
