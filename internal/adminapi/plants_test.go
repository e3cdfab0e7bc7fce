package adminapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/talkincode/plantcatalog/config"
	"github.com/talkincode/plantcatalog/internal/catalog"
	"github.com/talkincode/plantcatalog/internal/domain"
	"github.com/talkincode/plantcatalog/internal/query"
	"github.com/talkincode/plantcatalog/internal/store"
	"github.com/talkincode/plantcatalog/internal/store/memstore"
	"github.com/talkincode/plantcatalog/internal/store/storetest"
	"github.com/talkincode/plantcatalog/internal/webserver"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type testApp struct {
	svc      *catalog.Service
	backedUp int
}

func (a *testApp) Catalog() *catalog.Service { return a.svc }

func (a *testApp) RunBackupNow() (string, error) {
	a.backedUp++
	return "/var/backup/plants-1.db", nil
}

type fixture struct {
	t   *testing.T
	app *testApp
	h   http.Handler
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithStore(t, memstore.New(&storetest.SeqIDs{}, memstore.WithClock(storetest.NewFakeClock().Now)))
}

func newFixtureWithStore(t *testing.T, s store.Store) *fixture {
	t.Helper()
	Init()
	app := &testApp{svc: catalog.NewService(s, zap.NewNop())}
	srv := webserver.New(config.WebConfig{Host: "127.0.0.1", Port: 0}, app, zap.NewNop())
	return &fixture{t: t, app: app, h: srv.Handler()}
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	f.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (f *fixture) create(body string) domain.Plant {
	f.t.Helper()
	rec := f.do(http.MethodPost, "/api/plants", body)
	require.Equal(f.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[domain.Plant](f.t, rec)
}

const aloeJSON = `{"name":"Aloe Vera","price":199,"categories":["Indoor","Succulent"]}`

func TestAloeScenario(t *testing.T) {
	f := newFixture(t)
	created := f.create(aloeJSON)
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.StockAvailable)
	assert.Equal(t, domain.DefaultImageURL, created.ImageURL)

	cases := []struct {
		query string
		want  int
	}{
		{"category=Succulent", 1},
		{"category=Outdoor", 0},
		{"minPrice=200", 0},
		{"available=true", 1},
		{"available=false", 1},
		{"search=ALOE", 1},
		{"category=all&maxPrice=199", 1},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			rec := f.do(http.MethodGet, "/api/plants?"+tc.query, "")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Len(t, decode[[]domain.Plant](t, rec), tc.want)
		})
	}
}

func TestListEmptyIsArray(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/plants", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListBadPriceBound(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/plants?minPrice=cheap", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, "minPrice must be a number", body.Fields["minPrice"])
}

func TestCreateNegativePrice(t *testing.T) {
	f := newFixture(t)
	f.create(aloeJSON)

	rec := f.do(http.MethodPost, "/api/plants", `{"name":"Bad","price":-5,"categories":["Indoor"]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Contains(t, body.Error, "Price")
	assert.Equal(t, "Price cannot be negative", body.Fields["price"])

	rec = f.do(http.MethodGet, "/api/plants", "")
	assert.Len(t, decode[[]domain.Plant](t, rec), 1)
}

func TestCreateMalformedJSON(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/api/plants", `{"name":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decode[errorBody](t, rec).Error)

	rec = f.do(http.MethodPost, "/api/plants", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, decode[errorBody](t, rec).Fields, 3)
}

func TestGetUpdateDelete(t *testing.T) {
	f := newFixture(t)
	created := f.create(aloeJSON)
	path := "/api/plants/" + created.ID

	rec := f.do(http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.Name, decode[domain.Plant](t, rec).Name)

	rec = f.do(http.MethodPut, path, `{"price":149,"stockAvailable":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[domain.Plant](t, rec)
	assert.Equal(t, 149.0, updated.Price)
	assert.False(t, updated.StockAvailable)
	assert.Equal(t, created.Categories, updated.Categories)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	rec = f.do(http.MethodPut, path, `{"categories":[]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodDelete, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Plant deleted successfully"}`, rec.Body.String())

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rec = f.do(method, path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Plant not found", decode[errorBody](t, rec).Error)
	}
	rec = f.do(http.MethodPut, path, `{"price":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCategories(t *testing.T) {
	f := newFixture(t)
	f.create(aloeJSON)
	f.create(`{"name":"Rose","price":99,"categories":["Outdoor","Flowering","Outdoor"]}`)
	f.create(`{"name":"Tulsi","price":49,"categories":"Herb"}`)

	for _, path := range []string{"/api/categories", "/api/plants/categories/list"} {
		rec := f.do(http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"Flowering", "Herb", "Indoor", "Outdoor", "Succulent"}, decode[[]string](t, rec))
	}
}

func TestStatsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.create(aloeJSON)
	f.create(`{"name":"Rose","price":99,"categories":["Outdoor"],"stockAvailable":false}`)

	rec := f.do(http.MethodGet, "/api/plants/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[catalog.Stats](t, rec)
	assert.Equal(t, catalog.Stats{Count: 2, InStock: 1, MinPrice: 99, MaxPrice: 199, MeanPrice: 149, MedianPrice: 149}, st)

	rec = f.do(http.MethodGet, "/api/plants/stats?category=Cactus", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, catalog.Stats{}, decode[catalog.Stats](t, rec))
}

type failingStore struct {
	store.Store
}

func (failingStore) Find(context.Context, query.Query) ([]domain.Plant, error) {
	return nil, assert.AnError
}

func (failingStore) Categories(context.Context) ([]string, error) {
	return nil, assert.AnError
}

func TestStoreErrorsAre500(t *testing.T) {
	f := newFixtureWithStore(t, failingStore{})
	for _, path := range []string{"/api/plants", "/api/categories"} {
		rec := f.do(http.MethodGet, path, "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, assert.AnError.Error(), decode[errorBody](t, rec).Error)
	}
}

func TestSystemRoutes(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/health", "")
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	// the memory engine cannot snapshot
	rec = f.do(http.MethodGet, "/api/system/backup", "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	rec = f.do(http.MethodPost, "/api/system/backup/run", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"file":"plants-1.db"}`, rec.Body.String())
	assert.Equal(t, 1, f.app.backedUp)
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/nothing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, decode[errorBody](t, rec).Error)
}
