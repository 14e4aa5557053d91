package httpx

import (
	"errors"
	"net/http"

	"github.com/cartera-salud/glosas/internal/glosas"
)

// RespondError maps domain errors to failure envelopes. message is the
// caller-facing summary of the failed operation.
func RespondError(w http.ResponseWriter, message string, err error) {
	var dsErr *glosas.DataSourceError
	switch {
	case errors.Is(err, glosas.ErrValidation):
		Fail(w, http.StatusBadRequest, err.Error(), "")
	case errors.Is(err, glosas.ErrNotFound):
		Fail(w, http.StatusNotFound, message, err.Error())
	case errors.As(err, &dsErr):
		Fail(w, http.StatusBadGateway, message, dsErr.Error())
	default:
		Fail(w, http.StatusInternalServerError, message, err.Error())
	}
}
