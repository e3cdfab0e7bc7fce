package adminapi

import (
	"github.com/labstack/echo/v4"

	"github.com/talkincode/plantcatalog/internal/webserver"
)

func registerCategoryRoutes() {
	webserver.ApiGET("/categories", listCategories)
	// older clients read the list from here
	webserver.ApiGET("/plants/categories/list", listCategories)
}

// listCategories returns the tags in use, sorted, without duplicates
func listCategories(c echo.Context) error {
	cats, err := GetCatalog(c).Categories(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, cats)
}
