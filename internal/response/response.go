package response

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// APIResponse is the standard success response shape.
type APIResponse struct {
	Data    any    `json:"data"`
	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
}

// APIError is the standard error response shape.
type APIError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Status  int    `json:"status"`
}

// OK sends a 200 response with data.
func OK(c echo.Context, data any, message string) error {
	return c.JSON(http.StatusOK, APIResponse{Data: data, Status: http.StatusOK, Message: message})
}

// Created sends a 201 response with data.
func Created(c echo.Context, data any, message string) error {
	return c.JSON(http.StatusCreated, APIResponse{Data: data, Status: http.StatusCreated, Message: message})
}

// Error sends a JSON error response using APIError.
func Error(c echo.Context, status int, message, errDetail string) error {
	return c.JSON(status, APIError{Message: message, Error: errDetail, Status: status})
}

// BadRequest sends 400 with message and error detail.
func BadRequest(c echo.Context, message, errDetail string) error {
	return Error(c, http.StatusBadRequest, message, errDetail)
}

// NotFound sends 404 with message and error detail.
func NotFound(c echo.Context, message, errDetail string) error {
	return Error(c, http.StatusNotFound, message, errDetail)
}

// Unavailable sends 503, for endpoints that need an optional
// collaborator (e.g. the provenance database) that is not configured.
func Unavailable(c echo.Context, message string) error {
	return Error(c, http.StatusServiceUnavailable, message, message)
}

// InternalError sends 500 with message and error detail.
func InternalError(c echo.Context, message, errDetail string) error {
	return Error(c, http.StatusInternalServerError, message, errDetail)
}
