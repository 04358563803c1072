package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is a liveness check for load balancers. It returns a plain "ok".
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Hello answers the root path.
func Hello(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"message": "Hello World!!!"})
}
