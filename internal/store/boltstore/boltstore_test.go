package boltstore

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/talkincode/plantcatalog/internal/domain"
	"github.com/talkincode/plantcatalog/internal/store"
	"github.com/talkincode/plantcatalog/internal/store/storetest"
)

func TestBoltStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T, clock store.Clock, ids store.IDGenerator) store.Store {
		s, err := Open(filepath.Join(t.TempDir(), "data", "plants.db"), ids, WithClock(clock))
		require.NoError(t, err)
		return s
	})
}

func TestDecodeKeepsStockDefault(t *testing.T) {
	p, err := decode([]byte(`{"_id":"1","name":"Fern","price":10}`))
	require.NoError(t, err)
	assert.True(t, p.StockAvailable)

	p, err = decode([]byte(`{"_id":"1","name":"Fern","price":10,"stockAvailable":false}`))
	require.NoError(t, err)
	assert.False(t, p.StockAvailable)
}

func TestSnapshotReopens(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "plants.db"), &storetest.SeqIDs{})
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Insert(context.Background(), domain.Plant{Name: "Fern", Price: 10, Categories: []string{"Foliage"}})
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := s.Snapshot(&buf)
	require.NoError(t, err)
	assert.EqualValues(t, buf.Len(), n)

	copyPath := filepath.Join(dir, "copy.db")
	require.NoError(t, os.WriteFile(copyPath, buf.Bytes(), 0o600))
	db, err := bolt.Open(copyPath, 0o600, nil)
	require.NoError(t, err)
	defer db.Close()
	err = db.View(func(tx *bolt.Tx) error {
		assert.Equal(t, 1, tx.Bucket(bucketPlants).Stats().KeyN)
		return nil
	})
	require.NoError(t, err)
}
