package browse

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/talkincode/plantcatalog/internal/catalogstate"
	"github.com/talkincode/plantcatalog/internal/domain"
	"github.com/talkincode/plantcatalog/internal/query"
	"github.com/talkincode/plantcatalog/internal/schema"
)

type stubAPI struct {
	plants  []domain.Plant
	deleted []string
}

func (s *stubAPI) List(context.Context, query.Params) ([]domain.Plant, error) {
	return s.plants, nil
}

func (s *stubAPI) Categories(context.Context) ([]string, error) {
	return []string{"Indoor", "Succulent"}, nil
}

func (s *stubAPI) Create(context.Context, schema.Patch) (domain.Plant, error) {
	return domain.Plant{}, errors.New("not supported")
}

func (s *stubAPI) Update(context.Context, string, schema.Patch) (domain.Plant, error) {
	return domain.Plant{}, errors.New("not supported")
}

func (s *stubAPI) Delete(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func newTestModel(t *testing.T) (Model, *catalogstate.Store, *stubAPI) {
	t.Helper()
	api := &stubAPI{plants: []domain.Plant{
		{ID: "2", Name: "Snake Plant", Price: 399, Categories: []string{"Indoor"}, StockAvailable: true},
		{ID: "1", Name: "Aloe Vera", Price: 199, Categories: []string{"Indoor", "Succulent"}},
	}}
	store := catalogstate.New(api, catalogstate.WithDebounce(time.Millisecond), catalogstate.WithLogger(zap.NewNop()))
	t.Cleanup(store.Close)
	states, stop, err := Watch(store)
	require.NoError(t, err)
	t.Cleanup(stop)

	store.Refresh()
	store.Wait()
	m := NewModel(store, states)
	m.state = store.State()
	return m, store, api
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m Model, keys ...string) Model {
	for _, k := range keys {
		next, _ := m.Update(key(k))
		m = next.(Model)
	}
	return m
}

func TestParsePriceRange(t *testing.T) {
	tests := []struct {
		in      string
		lo, hi  *float64
		wantErr bool
	}{
		{in: ""},
		{in: "100-500", lo: ptr(100), hi: ptr(500)},
		{in: "100-", lo: ptr(100)},
		{in: "-500", hi: ptr(500)},
		{in: " 10.5 - 20 ", lo: ptr(10.5), hi: ptr(20)},
		{in: "500", wantErr: true},
		{in: "abc-10", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			lo, hi, err := ParsePriceRange(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.lo, lo)
			assert.Equal(t, tt.hi, hi)
		})
	}
}

func ptr(f float64) *float64 { return &f }

func TestNextCategoryCycles(t *testing.T) {
	cats := []string{"Indoor", "Succulent"}
	assert.Equal(t, "Indoor", nextCategory(domain.AllCategories, cats))
	assert.Equal(t, "Succulent", nextCategory("Indoor", cats))
	assert.Equal(t, domain.AllCategories, nextCategory("Succulent", cats))
	assert.Equal(t, domain.AllCategories, nextCategory("Removed", cats))
}

func TestStaleStateIsIgnored(t *testing.T) {
	m, _, _ := newTestModel(t)
	current := m.state

	old := current
	old.Version = current.Version - 1
	old.Plants = nil
	next, _ := m.Update(stateMsg(old))
	assert.Len(t, next.(Model).state.Plants, 2)

	newer := current
	newer.Version = current.Version + 1
	newer.Plants = newer.Plants[:1]
	next, _ = m.Update(stateMsg(newer))
	assert.Len(t, next.(Model).state.Plants, 1)
}

func TestFilterKeysDriveStore(t *testing.T) {
	m, store, _ := newTestModel(t)

	m = press(m, "a")
	assert.True(t, store.State().Filters.AvailableOnly)

	m = press(m, "c")
	assert.Equal(t, "Indoor", store.State().Filters.Category)

	m = press(m, "p", "1", "0", "0", "-", "3", "0", "0", "enter")
	f := store.State().Filters
	require.NotNil(t, f.MinPrice)
	require.NotNil(t, f.MaxPrice)
	assert.Equal(t, 100.0, *f.MinPrice)
	assert.Equal(t, 300.0, *f.MaxPrice)

	m = press(m, "/", "a", "l", "o", "enter")
	assert.Equal(t, "alo", store.State().Filters.Search)

	press(m, "x")
	assert.Equal(t, query.DefaultParams(), store.State().Filters)
	store.Wait()
}

func TestInvalidPriceKeepsEditing(t *testing.T) {
	m, store, _ := newTestModel(t)
	m = press(m, "p", "x", "enter")
	assert.Equal(t, modePrice, m.mode)
	assert.NotEmpty(t, m.notice)
	assert.Nil(t, store.State().Filters.MinPrice)
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	m, store, api := newTestModel(t)

	m = press(m, "down", "d", "n")
	assert.Equal(t, modeList, m.mode)
	assert.Empty(t, api.deleted)

	m = press(m, "d")
	next, cmd := m.Update(key("y"))
	require.NotNil(t, cmd)
	msg := cmd()
	assert.Equal(t, deletedMsg{id: "1"}, msg)
	next, _ = next.Update(msg)

	assert.Equal(t, []string{"1"}, api.deleted)
	assert.Equal(t, "Plant deleted successfully", next.(Model).notice)
	assert.Len(t, store.State().Plants, 1)
	store.Wait()
}

func TestViewShowsPlantsAndErrors(t *testing.T) {
	m, _, _ := newTestModel(t)
	out := m.View()
	assert.Contains(t, out, "Snake Plant")
	assert.Contains(t, out, "Aloe Vera")
	assert.Contains(t, out, "out of stock")

	m.state.Err = errors.New("connection refused")
	m.state.Plants = nil
	out = m.View()
	assert.Contains(t, out, "connection refused")
	assert.True(t, strings.Contains(out, "No plants match"))
}

func TestDetailToggle(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = press(m, "enter")
	assert.True(t, m.detail)
	assert.Contains(t, m.View(), "id 2")
}
