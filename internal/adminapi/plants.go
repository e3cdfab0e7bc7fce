package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/talkincode/plantcatalog/internal/query"
	"github.com/talkincode/plantcatalog/internal/schema"
	"github.com/talkincode/plantcatalog/internal/webserver"
)

// registerPlantRoutes registers plant CRUD, listing and stats endpoints
func registerPlantRoutes() {
	webserver.ApiGET("/plants", listPlants)
	webserver.ApiGET("/plants/stats", plantStats)
	webserver.ApiGET("/plants/:id", getPlant)
	webserver.ApiPOST("/plants", createPlant)
	webserver.ApiPUT("/plants/:id", updatePlant)
	webserver.ApiDELETE("/plants/:id", deletePlant)
}

func invalidBody(c echo.Context, err error) error {
	msg := "Invalid JSON body"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if s, isStr := he.Message.(string); isStr {
			msg = s
		}
	}
	return fail(c, http.StatusBadRequest, msg, nil)
}

// listPlants returns every plant matching search, category, minPrice,
// maxPrice and available. No pagination.
func listPlants(c echo.Context) error {
	params, err := query.ParseValues(c.QueryParams())
	if err != nil {
		return respondError(c, err)
	}
	plants, err := GetCatalog(c).List(c.Request().Context(), params)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, plants)
}

func plantStats(c echo.Context) error {
	params, err := query.ParseValues(c.QueryParams())
	if err != nil {
		return respondError(c, err)
	}
	st, err := GetCatalog(c).Stats(c.Request().Context(), params)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, st)
}

func getPlant(c echo.Context) error {
	p, err := GetCatalog(c).Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, p)
}

func createPlant(c echo.Context) error {
	body, err := decodeBody(c)
	if err != nil {
		return invalidBody(c, err)
	}
	p, err := GetCatalog(c).Create(c.Request().Context(), schema.DecodePatch(body))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func updatePlant(c echo.Context) error {
	body, err := decodeBody(c)
	if err != nil {
		return invalidBody(c, err)
	}
	p, err := GetCatalog(c).Update(c.Request().Context(), c.Param("id"), schema.DecodePatch(body))
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, p)
}

func deletePlant(c echo.Context) error {
	if err := GetCatalog(c).Delete(c.Request().Context(), c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return ok(c, map[string]string{"message": "Plant deleted successfully"})
}
