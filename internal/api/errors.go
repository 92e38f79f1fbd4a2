package api

import (
	"errors"
	"net/http"

	"barbeapp/internal/domain"

	"github.com/rs/zerolog"
)

const internalErrorMessage = "Internal server error"

// statusFor maps an error kind to its HTTP status. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrDomain):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAuthorization):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError writes {"error": message}. Internal failures are logged and hidden.
func writeDomainError(w http.ResponseWriter, logger *zerolog.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Msg("request failed")
		writeError(w, status, internalErrorMessage)
		return
	}

	msg := err.Error()
	var de *domain.Error
	if errors.As(err, &de) {
		msg = de.Error()
	}
	writeError(w, status, msg)
}
