package memstore

import (
	"testing"

	"github.com/talkincode/plantcatalog/internal/store"
	"github.com/talkincode/plantcatalog/internal/store/storetest"
)

func TestMemStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T, clock store.Clock, ids store.IDGenerator) store.Store {
		return New(ids, WithClock(clock))
	})
}
