package server

import (
	"errors"
	"net/http"

	"github.com/jonathan/bookforge/internal/pipeline"
	"github.com/jonathan/bookforge/internal/store"
)

// HTTPStatus maps pipeline and store errors onto HTTP status codes.
func HTTPStatus(err error) int {
	var (
		validation *pipeline.ValidationError
		notFound   *pipeline.RunNotFoundError
		notReady   *pipeline.NotReadyError
		failed     *pipeline.FailedError
		artMissing *store.NotFoundError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &notFound), errors.As(err, &artMissing):
		return http.StatusNotFound
	case errors.As(err, &notReady):
		return http.StatusConflict
	case errors.As(err, &failed):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}
