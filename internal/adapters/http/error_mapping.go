package httpadapter

import (
	"net/http"

	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrCredentialMissing), domain.IsKind(err, domain.ErrCredentialInvalid):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrImageNotFound), domain.IsKind(err, domain.ErrBatchNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrNothingToExport):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrTransport), domain.IsKind(err, domain.ErrMalformedResponse):
		return http.StatusBadGateway
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
