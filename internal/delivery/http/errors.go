package http

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/importlens/backend/internal/domain"
)

// ErrorBody is the JSON error envelope returned by every endpoint
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed request
type ErrorDetail struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// statusForKind maps failure kinds to HTTP status codes
func statusForKind(kind string) int {
	switch kind {
	case domain.KindInvalidRequest:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindUnsupportedSource:
		return http.StatusUnprocessableEntity
	case domain.KindFetchFailure:
		return http.StatusBadGateway
	case domain.KindRateUnavailable:
		return http.StatusServiceUnavailable
	case domain.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error envelope for err and aborts the chain
func respondError(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	status := statusForKind(kind)

	message := err.Error()
	if kind == domain.KindInternal {
		log.Printf("[HTTP] Internal error on %s %s: %v", c.Request.Method, c.FullPath(), err)
		message = "internal error"
	}

	c.AbortWithStatusJSON(status, ErrorBody{Error: ErrorDetail{
		Kind:      kind,
		Message:   message,
		Retryable: domain.IsRetryable(err),
	}})
}
