// Package query turns catalog filter parameters into a store query.
//
// All supplied filters are ANDed; an absent filter imposes no constraint.
// Results are ordered newest first with the identifier as tie-breaker.
package query

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cast"
	"golang.org/x/text/cases"

	"github.com/talkincode/plantcatalog/internal/domain"
	"github.com/talkincode/plantcatalog/internal/schema"
)

// Params are the five catalog filter parameters
type Params struct {
	Search        string   `json:"search,omitempty"`
	Category      string   `json:"category,omitempty"`
	MinPrice      *float64 `json:"minPrice,omitempty"`
	MaxPrice      *float64 `json:"maxPrice,omitempty"`
	AvailableOnly bool     `json:"available,omitempty"`
}

// DefaultParams is the unfiltered state
func DefaultParams() Params {
	return Params{Category: domain.AllCategories}
}

// Query is the store-facing form of Params. Engines either evaluate Match
// or translate the accessors into their native query language.
type Query struct {
	search     string
	foldSearch string
	category   string
	minPrice   *float64
	maxPrice   *float64
	inStock    bool
}

// Build converts params into a query. It never fails: an inverted price
// range simply matches nothing.
func Build(p Params) Query {
	q := Query{
		search:   p.Search,
		inStock:  p.AvailableOnly,
		minPrice: copyFloat(p.MinPrice),
		maxPrice: copyFloat(p.MaxPrice),
	}
	if p.Search != "" {
		q.foldSearch = Fold(p.Search)
	}
	if p.Category != "" && p.Category != domain.AllCategories {
		q.category = p.Category
	}
	return q
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// Fold returns the caseless form search terms are compared in. Engines that
// index text themselves must store values folded the same way.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// Search returns the raw search term, empty when unset
func (q Query) Search() string { return q.search }

// FoldedSearch returns the search term in Fold form, empty when unset
func (q Query) FoldedSearch() string { return q.foldSearch }

// Category returns the required tag, empty when unset
func (q Query) Category() string { return q.category }

// PriceRange returns the inclusive bounds; nil means unbounded
func (q Query) PriceRange() (lo, hi *float64) { return q.minPrice, q.maxPrice }

// InStockOnly reports whether only available plants match
func (q Query) InStockOnly() bool { return q.inStock }

// Match evaluates the query against one record
func (q Query) Match(p domain.Plant) bool {
	if q.category != "" && !p.HasCategory(q.category) {
		return false
	}
	if q.minPrice != nil && p.Price < *q.minPrice {
		return false
	}
	if q.maxPrice != nil && p.Price > *q.maxPrice {
		return false
	}
	if q.inStock && !p.StockAvailable {
		return false
	}
	if q.foldSearch != "" && !q.matchSearch(p) {
		return false
	}
	return true
}

func (q Query) matchSearch(p domain.Plant) bool {
	if strings.Contains(Fold(p.Name), q.foldSearch) {
		return true
	}
	for _, c := range p.Categories {
		if strings.Contains(Fold(c), q.foldSearch) {
			return true
		}
	}
	return false
}

// Compare orders records newest first, then by identifier descending
func Compare(a, b domain.Plant) int {
	switch {
	case a.CreatedAt.After(b.CreatedAt):
		return -1
	case a.CreatedAt.Before(b.CreatedAt):
		return 1
	}
	return -strings.Compare(a.ID, b.ID)
}

// Less reports whether a sorts before b
func Less(a, b domain.Plant) bool {
	return Compare(a, b) < 0
}

// ParseValues reads params from a request query string. "available" only
// counts when it is the literal "true"; an empty price bound is absent.
func ParseValues(v url.Values) (Params, error) {
	p := Params{
		Search:        v.Get("search"),
		Category:      v.Get("category"),
		AvailableOnly: v.Get("available") == "true",
	}
	if p.Category == "" {
		p.Category = domain.AllCategories
	}
	verr := &schema.ValidationError{}
	p.MinPrice = parseBound(verr, "minPrice", v.Get("minPrice"))
	p.MaxPrice = parseBound(verr, "maxPrice", v.Get("maxPrice"))
	return p, verr.OrNil()
}

func parseBound(verr *schema.ValidationError, field, raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	f, err := cast.ToFloat64E(raw)
	if err != nil || math.IsNaN(f) {
		verr.Add(field, field+" must be a number")
		return nil
	}
	return &f
}

// Values encodes params the way ParseValues reads them, leaving out
// anything that imposes no constraint
func (p Params) Values() url.Values {
	v := url.Values{}
	if p.Search != "" {
		v.Set("search", p.Search)
	}
	if p.Category != "" && p.Category != domain.AllCategories {
		v.Set("category", p.Category)
	}
	if p.MinPrice != nil {
		v.Set("minPrice", strconv.FormatFloat(*p.MinPrice, 'f', -1, 64))
	}
	if p.MaxPrice != nil {
		v.Set("maxPrice", strconv.FormatFloat(*p.MaxPrice, 'f', -1, 64))
	}
	if p.AvailableOnly {
		v.Set("available", "true")
	}
	return v
}

// Equal reports whether two parameter sets describe the same filter
func (p Params) Equal(o Params) bool {
	return p.Values().Encode() == o.Values().Encode()
}

// Active counts the filters that constrain the result
func (p Params) Active() int {
	return len(p.Values())
}
