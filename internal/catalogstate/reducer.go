package catalogstate

import (
	"github.com/talkincode/plantcatalog/internal/domain"
	"github.com/talkincode/plantcatalog/internal/query"
)

// Action is an input to Reduce
type Action interface {
	isAction()
}

type (
	// SetSearchInput records typed text without committing it
	SetSearchInput struct{ Text string }
	// CommitSearch makes the typed text the active search filter
	CommitSearch struct{}
	SetCategory  struct{ Category string }
	// SetPriceRange sets both bounds; nil clears a bound
	SetPriceRange   struct{ Min, Max *float64 }
	SetAvailability struct{ AvailableOnly bool }
	ResetFilters    struct{}

	FetchStarted   struct{ Token uint64 }
	FetchSucceeded struct {
		Token  uint64
		Plants []domain.Plant
	}
	FetchFailed struct {
		Token uint64
		Err   error
	}
	CategoriesLoaded struct{ Categories []string }

	PlantCreated struct{ Plant domain.Plant }
	PlantUpdated struct{ Plant domain.Plant }
	PlantDeleted struct{ ID string }

	// Failed puts a non-list failure into the error slot
	Failed     struct{ Err error }
	ClearError struct{}
)

func (SetSearchInput) isAction()   {}
func (CommitSearch) isAction()     {}
func (SetCategory) isAction()      {}
func (SetPriceRange) isAction()    {}
func (SetAvailability) isAction()  {}
func (ResetFilters) isAction()     {}
func (FetchStarted) isAction()     {}
func (FetchSucceeded) isAction()   {}
func (FetchFailed) isAction()      {}
func (CategoriesLoaded) isAction() {}
func (PlantCreated) isAction()     {}
func (PlantUpdated) isAction()     {}
func (PlantDeleted) isAction()     {}
func (Failed) isAction()           {}
func (ClearError) isAction()       {}

func copyBound(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// Reduce returns the state that follows s after a. It does no I/O and
// does not touch Version.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SetSearchInput:
		s.SearchInput = a.Text
	case CommitSearch:
		s.Filters.Search = s.SearchInput
	case SetCategory:
		s.Filters.Category = a.Category
		if s.Filters.Category == "" {
			s.Filters.Category = domain.AllCategories
		}
	case SetPriceRange:
		s.Filters.MinPrice = copyBound(a.Min)
		s.Filters.MaxPrice = copyBound(a.Max)
	case SetAvailability:
		s.Filters.AvailableOnly = a.AvailableOnly
	case ResetFilters:
		s.Filters = query.DefaultParams()
		s.SearchInput = ""

	case FetchStarted:
		s.Token = a.Token
		s.Loading = true
	case FetchSucceeded:
		if a.Token != s.Token {
			return s
		}
		s.Plants = append([]domain.Plant{}, a.Plants...)
		s.Loading = false
		s.Err = nil
	case FetchFailed:
		if a.Token != s.Token {
			return s
		}
		s.Loading = false
		s.Err = a.Err
	case CategoriesLoaded:
		s.Categories = append([]string{}, a.Categories...)

	case PlantCreated:
		plants := make([]domain.Plant, 0, len(s.Plants)+1)
		plants = append(plants, a.Plant)
		for _, p := range s.Plants {
			if p.ID != a.Plant.ID {
				plants = append(plants, p)
			}
		}
		s.Plants = plants
	case PlantUpdated:
		plants := make([]domain.Plant, len(s.Plants))
		for i, p := range s.Plants {
			if p.ID == a.Plant.ID {
				p = a.Plant
			}
			plants[i] = p
		}
		s.Plants = plants
	case PlantDeleted:
		plants := make([]domain.Plant, 0, len(s.Plants))
		for _, p := range s.Plants {
			if p.ID != a.ID {
				plants = append(plants, p)
			}
		}
		s.Plants = plants

	case Failed:
		s.Err = a.Err
	case ClearError:
		s.Err = nil
	}
	return s
}
