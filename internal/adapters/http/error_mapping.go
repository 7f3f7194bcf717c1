package httpadapter

import (
	"net/http"

	"github.com/eliasbrown99/solicitation-dashboard/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrDocumentNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrUploadInProgress),
		domain.IsKind(err, domain.ErrConfirmationPending),
		domain.IsKind(err, domain.ErrStaleResult):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrSubmission),
		domain.IsKind(err, domain.ErrDelete):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
