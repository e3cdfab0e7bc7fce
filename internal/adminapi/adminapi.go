package adminapi

import (
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/talkincode/plantcatalog/internal/catalog"
	"github.com/talkincode/plantcatalog/internal/schema"
	"github.com/talkincode/plantcatalog/internal/webserver"
)

// AppContext is what the handlers need from the application
type AppContext interface {
	Catalog() *catalog.Service
	// RunBackupNow writes a store snapshot into the backup directory and
	// returns the file written
	RunBackupNow() (string, error)
}

var initOnce sync.Once

// Init registers every api route with the web server. It must run before
// webserver.New; repeated calls are ignored.
func Init() {
	initOnce.Do(func() {
		registerPlantRoutes()
		registerCategoryRoutes()
		registerSystemRoutes()
	})
}

// GetAppContext returns the application bound to the request
func GetAppContext(c echo.Context) AppContext {
	appCtx, ok := c.Get(webserver.AppContextKey).(AppContext)
	if !ok {
		panic("adminapi: application context missing from request")
	}
	return appCtx
}

// GetCatalog returns the catalog service bound to the request
func GetCatalog(c echo.Context) *catalog.Service {
	return GetAppContext(c).Catalog()
}

// errorBody is the shape of every failed response
type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func fail(c echo.Context, status int, msg string, fields map[string]string) error {
	return c.JSON(status, errorBody{Error: msg, Fields: fields})
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, data)
}

// respondError maps catalog errors onto status codes
func respondError(c echo.Context, err error) error {
	var verr *schema.ValidationError
	switch {
	case errors.As(err, &verr):
		return fail(c, http.StatusBadRequest, verr.Error(), verr.Map())
	case errors.Is(err, catalog.ErrNotFound):
		return fail(c, http.StatusNotFound, catalog.ErrNotFound.Error(), nil)
	default:
		return fail(c, http.StatusInternalServerError, err.Error(), nil)
	}
}

// decodeBody reads a JSON object regardless of the declared content type.
// An empty body decodes to an empty object.
func decodeBody(c echo.Context) (map[string]interface{}, error) {
	body := map[string]interface{}{}
	if c.Request().ContentLength == 0 {
		return body, nil
	}
	if err := c.Echo().JSONSerializer.Deserialize(c, &body); err != nil {
		return nil, err
	}
	if body == nil {
		body = map[string]interface{}{}
	}
	return body, nil
}
