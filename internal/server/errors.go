package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"google.golang.org/api/googleapi"

	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/ai"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/filters"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/google"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/meeting"
)

// apiError is the JSON error body returned by the gateway.
type apiError struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
	Detail  string `json:"detail,omitempty"`
}

func (e *apiError) Error() string {
	if e.Detail != "" {
		return e.Message + ": " + e.Detail
	}
	return e.Message
}

func newAPIError(status int, message string) *apiError {
	return &apiError{Status: status, Message: message}
}

// toAPIError maps an error to a response. message describes the failed
// operation and is used when err carries no better one.
func toAPIError(err error, message string) *apiError {
	var ae *apiError
	if errors.As(err, &ae) {
		return ae
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		status := gerr.Code
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		detail := gerr.Message
		if detail == "" {
			detail = http.StatusText(gerr.Code)
		}
		return &apiError{Status: status, Message: message, Detail: detail}
	}

	if backendErr, ok := ai.IsAPIError(err); ok {
		return &apiError{Status: http.StatusBadGateway, Message: message, Detail: backendErr.Detail}
	}

	switch {
	case errors.Is(err, ai.ErrUnavailable):
		return &apiError{Status: http.StatusServiceUnavailable, Message: message, Detail: err.Error()}
	case errors.Is(err, google.ErrNoToken):
		return &apiError{Status: http.StatusUnauthorized, Message: "not authenticated"}
	case errors.Is(err, meeting.ErrNotSchedulable), errors.Is(err, meeting.ErrAlreadyScheduled):
		return &apiError{Status: http.StatusConflict, Message: message, Detail: err.Error()}
	case errors.Is(err, filters.ErrInvalid):
		return &apiError{Status: http.StatusBadRequest, Message: message, Detail: err.Error()}
	}

	return &apiError{Status: http.StatusInternalServerError, Message: message, Detail: err.Error()}
}

// abortWithError writes err as JSON and stops the handler chain.
func abortWithError(c *gin.Context, err error, message string) {
	ae := toAPIError(err, message)
	_ = c.Error(err)
	c.AbortWithStatusJSON(ae.Status, ae)
}
