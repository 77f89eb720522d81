package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"scena-market/pkg/models"
)

// errorResponse представляет тело ответа с ошибкой
type errorResponse struct {
	Error string `json:"error"`
}

// writeError отображает категорию ошибки на HTTP статус:
// валидация — 400, аутентификация и права — 401/403, отсутствие — 404,
// недопустимый переход состояния — 409, бизнес-инвариант — 422.
func writeError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case models.IsValidation(err):
		status = http.StatusBadRequest
	case models.IsUnauthorized(err):
		status = http.StatusForbidden
	case models.IsNotFound(err):
		status = http.StatusNotFound
	case models.IsState(err):
		status = http.StatusConflict
	case models.IsInvariant(err):
		status = http.StatusUnprocessableEntity
	}
	return c.JSON(status, errorResponse{Error: err.Error()})
}
