// Package response writes the JSON envelopes returned by every handler.
package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moplan-logistics/service-routing/internal/platform/apperr"
)

// ErrorBody is the error part of the envelope.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Envelope is the response body written by every helper.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// Success writes 200 with data.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// BadRequest writes 400.
func BadRequest(c *gin.Context, message string) {
	abort(c, http.StatusBadRequest, "bad_request", message)
}

// Error maps err onto a status code and writes it.
func Error(c *gin.Context, err error) {
	_ = c.Error(err)

	var appErr *apperr.Error
	hasAppErr := errors.As(err, &appErr)

	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		code := "validation_error"
		msg := err.Error()
		if hasAppErr {
			code, msg = appErr.Code, appErr.Message
		}
		abort(c, http.StatusUnprocessableEntity, code, msg)
	case apperr.KindNotFound:
		abort(c, http.StatusNotFound, "not_found", err.Error())
	case apperr.KindConflict:
		abort(c, http.StatusConflict, "conflict", err.Error())
	case apperr.KindUnauthorized:
		abort(c, http.StatusUnauthorized, "unauthorized", "unauthorized")
	case apperr.KindForbidden:
		abort(c, http.StatusForbidden, "forbidden", "forbidden")
	case apperr.KindNoRoute:
		abort(c, http.StatusBadGateway, "no_route", "no route found")
	case apperr.KindUnavailable:
		abort(c, http.StatusServiceUnavailable, "unavailable", "system unavailable")
	default:
		abort(c, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, Envelope{
		Success: false,
		Error:   &ErrorBody{Code: code, Message: message},
	})
}
