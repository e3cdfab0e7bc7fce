// Package catalogstate holds the client side view of the catalog: the
// current filters, the last fetched plants and the request status.
//
// State changes go through Reduce, a pure function. Store owns a State,
// talks to the API and publishes every new State to its subscribers.
package catalogstate

import (
	"github.com/talkincode/plantcatalog/internal/domain"
	"github.com/talkincode/plantcatalog/internal/query"
)

// State is an immutable snapshot. Slices are never modified in place once
// a State has been handed out.
type State struct {
	// Filters are the committed filter parameters the plant list reflects
	Filters query.Params
	// SearchInput is the search text as typed, committed after a quiet period
	SearchInput string

	Plants     []domain.Plant
	Categories []string

	Loading bool
	// Err holds the latest failure; a new failure replaces it
	Err error

	// Token identifies the latest list request; responses carrying any
	// other token are dropped
	Token uint64
	// Version increases with every dispatched action
	Version uint64
}

// Initial is the state before anything was fetched
func Initial() State {
	return State{
		Filters:    query.DefaultParams(),
		Plants:     []domain.Plant{},
		Categories: []string{},
	}
}

// ErrMessage returns the error text or "" when there is none
func (s State) ErrMessage() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

// Find returns the held plant with id
func (s State) Find(id string) (domain.Plant, bool) {
	for _, p := range s.Plants {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Plant{}, false
}
