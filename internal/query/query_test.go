package query

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkincode/plantcatalog/internal/domain"
	"github.com/talkincode/plantcatalog/internal/schema"
)

func fp(v float64) *float64 { return &v }

var aloe = domain.Plant{
	ID:             "1",
	Name:           "Aloe Vera",
	Price:          199,
	Categories:     []string{"Indoor", "Succulent"},
	StockAvailable: true,
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		want   bool
	}{
		{"no filters", Params{}, true},
		{"all sentinel", DefaultParams(), true},
		{"category hit", Params{Category: "Succulent"}, true},
		{"category miss", Params{Category: "Outdoor"}, false},
		{"min price excludes", Params{MinPrice: fp(200)}, false},
		{"bounds inclusive", Params{MinPrice: fp(199), MaxPrice: fp(199)}, true},
		{"inverted range", Params{MinPrice: fp(300), MaxPrice: fp(100)}, false},
		{"available default stock", Params{AvailableOnly: true}, true},
		{"search name folded", Params{Search: "ALOE v"}, true},
		{"search tag", Params{Search: "succ"}, true},
		{"search no regex", Params{Search: "Al.e"}, false},
		{"search miss", Params{Search: "rose"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Build(tt.params).Match(aloe))
		})
	}
}

func TestMatchStock(t *testing.T) {
	p := aloe
	p.StockAvailable = false
	assert.False(t, Build(Params{AvailableOnly: true}).Match(p))
	assert.True(t, Build(Params{}).Match(p))
}

func TestCompare(t *testing.T) {
	now := time.Now()
	older := domain.Plant{ID: "9", CreatedAt: now.Add(-time.Minute)}
	newer := domain.Plant{ID: "1", CreatedAt: now}
	tieA := domain.Plant{ID: "5", CreatedAt: now}

	assert.True(t, Less(newer, older))
	assert.False(t, Less(older, newer))
	assert.True(t, Less(tieA, newer))
	assert.Equal(t, 0, Compare(tieA, tieA))
}

func TestParseValues(t *testing.T) {
	v, _ := url.ParseQuery("search=aloe&category=&minPrice=10&maxPrice=&available=yes")
	p, err := ParseValues(v)
	require.NoError(t, err)
	assert.Equal(t, "aloe", p.Search)
	assert.Equal(t, domain.AllCategories, p.Category)
	require.NotNil(t, p.MinPrice)
	assert.Equal(t, 10.0, *p.MinPrice)
	assert.Nil(t, p.MaxPrice)
	assert.False(t, p.AvailableOnly)

	v, _ = url.ParseQuery("available=true")
	p, err = ParseValues(v)
	require.NoError(t, err)
	assert.True(t, p.AvailableOnly)
}

func TestParseValuesRejectsBadBounds(t *testing.T) {
	v, _ := url.ParseQuery("minPrice=abc&maxPrice=NaN")
	_, err := ParseValues(v)
	require.Error(t, err)
	verr, ok := err.(*schema.ValidationError)
	require.True(t, ok)
	assert.Equal(t, map[string]string{
		"minPrice": "minPrice must be a number",
		"maxPrice": "maxPrice must be a number",
	}, verr.Map())
}

func TestValuesRoundTrip(t *testing.T) {
	p := Params{Search: "fern", Category: "Foliage", MinPrice: fp(0), MaxPrice: fp(99.5), AvailableOnly: true}
	back, err := ParseValues(p.Values())
	require.NoError(t, err)
	assert.True(t, p.Equal(back))
	assert.Equal(t, 5, p.Active())
	assert.Equal(t, 0, DefaultParams().Active())
	assert.True(t, DefaultParams().Equal(Params{}))
}
