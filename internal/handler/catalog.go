package handler

import "github.com/labstack/echo/v4"

// CatalogList is a representative guarded resource endpoint. The real
// catalog service lives elsewhere; this handler exists so each platform
// tree has an RBAC-checked route to exercise end to end.
func CatalogList(c echo.Context) error {
	return success(c, "catalog", echo.Map{
		"items": []echo.Map{
			{"id": 1, "name": "starter"},
			{"id": 2, "name": "standard"},
		},
	})
}
