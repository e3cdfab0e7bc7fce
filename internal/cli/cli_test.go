package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/talkincode/plantcatalog/config"
	"github.com/talkincode/plantcatalog/internal/adminapi"
	"github.com/talkincode/plantcatalog/internal/app/seed"
	"github.com/talkincode/plantcatalog/internal/catalog"
	"github.com/talkincode/plantcatalog/internal/catalogclient"
	"github.com/talkincode/plantcatalog/internal/domain"
	"github.com/talkincode/plantcatalog/internal/query"
	"github.com/talkincode/plantcatalog/internal/schema"
	"github.com/talkincode/plantcatalog/internal/store/memstore"
	"github.com/talkincode/plantcatalog/internal/store/storetest"
	"github.com/talkincode/plantcatalog/internal/webserver"
)

type serverApp struct {
	svc *catalog.Service
}

func (a serverApp) Catalog() *catalog.Service { return a.svc }

func (a serverApp) RunBackupNow() (string, error) { return "", nil }

func startServer(t *testing.T) string {
	t.Helper()
	adminapi.Init()
	svc := catalog.NewService(memstore.New(&storetest.SeqIDs{}, memstore.WithClock(storetest.NewFakeClock().Now)), zap.NewNop())
	srv := webserver.New(config.WebConfig{}, serverApp{svc: svc}, zap.NewNop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

// run executes plantctl against server and returns stdout
func run(t *testing.T, server string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--server", server))
	err := cmd.Execute()
	return out.String(), err
}

func TestAddListUpdateDelete(t *testing.T) {
	server := startServer(t)

	out, err := run(t, server, "add", "--name", "Aloe Vera", "--price", "199", "--category", "Indoor,Succulent")
	require.NoError(t, err)
	assert.Contains(t, out, "Plant created: p-0001")

	_, err = run(t, server, "add", "--name", "Rose", "--price", "450", "--category", "Outdoor", "--in-stock=false")
	require.NoError(t, err)

	out, err = run(t, server, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Aloe Vera")
	assert.Contains(t, out, "Rose")
	assert.Contains(t, out, "2 plant(s)")
	// newest first
	assert.Less(t, strings.Index(out, "Rose"), strings.Index(out, "Aloe Vera"))

	out, err = run(t, server, "list", "--available", "--max-price", "300")
	require.NoError(t, err)
	assert.Contains(t, out, "Aloe Vera")
	assert.NotContains(t, out, "Rose")

	out, err = run(t, server, "list", "--search", "tulip")
	require.NoError(t, err)
	assert.Contains(t, out, "No plants match")

	out, err = run(t, server, "update", "p-0001", "--price", "149")
	require.NoError(t, err)
	assert.Contains(t, out, "₹149.00")
	assert.Contains(t, out, "Indoor, Succulent")

	out, err = run(t, server, "get", "p-0001")
	require.NoError(t, err)
	assert.Contains(t, out, "₹149.00")

	out, err = run(t, server, "delete", "p-0002")
	require.NoError(t, err)
	assert.Contains(t, out, "Plant deleted: p-0002")

	_, err = run(t, server, "get", "p-0002")
	assert.True(t, catalogclient.IsNotFound(err))
}

func TestAddValidationFailure(t *testing.T) {
	server := startServer(t)
	_, err := run(t, server, "add", "--name", "Aloe", "--price", "-5", "--category", "Indoor")
	var apiErr *catalogclient.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Price cannot be negative", apiErr.Fields["price"])

	var buf bytes.Buffer
	printError(&buf, err)
	assert.Contains(t, buf.String(), "Error (400)")
	assert.Contains(t, buf.String(), "price: Price cannot be negative")
}

func TestUpdateWithoutFields(t *testing.T) {
	server := startServer(t)
	_, err := run(t, server, "update", "p-0001")
	assert.ErrorContains(t, err, "nothing to update")
}

func TestCategoriesAndStats(t *testing.T) {
	server := startServer(t)
	for _, args := range [][]string{
		{"add", "--name", "Aloe", "--price", "100", "--category", "Succulent,Indoor"},
		{"add", "--name", "Fern", "--price", "300", "--category", "Indoor", "--in-stock=false"},
	} {
		_, err := run(t, server, args...)
		require.NoError(t, err)
	}

	out, err := run(t, server, "categories")
	require.NoError(t, err)
	assert.Equal(t, "Indoor\nSucculent\n", out)

	out, err = run(t, server, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "₹200.00")
	assert.Contains(t, out, "₹300.00")

	out, err = run(t, server, "stats", "--category", "Cactus")
	require.NoError(t, err)
	assert.NotContains(t, out, "Mean")
}

func TestExportCSV(t *testing.T) {
	server := startServer(t)
	_, err := run(t, server, "add", "--name", "Aloe Vera", "--price", "199", "--category", "Indoor,Succulent")
	require.NoError(t, err)

	out, err := run(t, server, "export", "--format", "csv")
	require.NoError(t, err)

	var rows []ExportRow
	require.NoError(t, gocsv.UnmarshalString(out, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "p-0001", rows[0].ID)
	assert.Equal(t, "Indoor|Succulent", rows[0].Categories)
	assert.Equal(t, 199.0, rows[0].Price)
	assert.True(t, rows[0].StockAvailable)
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, strings.Join(exportHeader, ",")+"\n", buf.String())
}

func TestWriteXLSX(t *testing.T) {
	plants := []domain.Plant{
		{ID: "a", Name: "Aloe Vera", Price: 199, Categories: []string{"Indoor"}, StockAvailable: true},
		{ID: "b", Name: "Basil", Price: 99, Categories: []string{"Herb"}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, plants))
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("PK")))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "id", f.GetCellValue(xlsxSheet, "A1"))
	assert.Equal(t, "Aloe Vera", f.GetCellValue(xlsxSheet, "B2"))
	assert.Equal(t, "Basil", f.GetCellValue(xlsxSheet, "B3"))
}

func TestExportUnknownFormat(t *testing.T) {
	_, err := run(t, startServer(t), "export", "--format", "pdf")
	assert.ErrorContains(t, err, "unsupported format")
}

func TestColumnName(t *testing.T) {
	for i, want := range map[int]string{0: "A", 12: "M", 25: "Z", 26: "AA", 27: "AB", 701: "ZZ", 702: "AAA"} {
		assert.Equal(t, want, columnName(i))
	}
}

func TestSeedThroughAPI(t *testing.T) {
	server := startServer(t)
	_, err := run(t, server, "add", "--name", "Leftover", "--price", "1", "--category", "Indoor")
	require.NoError(t, err)

	out, err := run(t, server, "seed", "--wipe", "--workers", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted 1 plant(s)")
	assert.Contains(t, out, "created 50 of 50 plant(s)")

	plants, err := catalogclient.New(server).List(context.Background(), query.DefaultParams())
	require.NoError(t, err)
	assert.Len(t, plants, 50)
	for _, p := range plants {
		assert.NotEqual(t, "Leftover", p.Name)
	}
}

// flakyAPI fails every create after the first few
type flakyAPI struct {
	mu      sync.Mutex
	created int
}

func (f *flakyAPI) List(context.Context, query.Params) ([]domain.Plant, error) { return nil, nil }

func (f *flakyAPI) Delete(context.Context, string) error { return nil }

func (f *flakyAPI) Create(context.Context, schema.Patch) (domain.Plant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.created >= 3 {
		return domain.Plant{}, errors.New("database is locked")
	}
	f.created++
	return domain.Plant{}, nil
}

func TestSeedReportsFirstError(t *testing.T) {
	patches, err := seed.Patches()
	require.NoError(t, err)
	res, err := Seed(context.Background(), &flakyAPI{}, patches, 2, false)
	assert.ErrorContains(t, err, "database is locked")
	assert.EqualValues(t, 3, res.Created)
}

func TestUnreachableServer(t *testing.T) {
	ts := httptest.NewServer(nil)
	url := ts.URL
	ts.Close()
	_, err := run(t, url, "list")
	require.Error(t, err)
	var apiErr *catalogclient.APIError
	assert.False(t, errors.As(err, &apiErr))
}
