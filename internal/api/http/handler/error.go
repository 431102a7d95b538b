package handler

import (
	"github.com/dtroode/authkeeper/internal/apperr"
)

type errorResponse struct {
	Success *bool  `json:"success,omitempty"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// handleError maps err to a status and body. Errors that are not APIErrors are
// reported as internal. Only internal errors expose the underlying detail.
func handleError(err error) (int, errorResponse) {
	apiErr, ok := apperr.As(err)
	if !ok {
		apiErr = apperr.NewErrInternal(err)
	}

	resp := errorResponse{Message: apiErr.Message}
	if apiErr.Kind == apperr.KindInternal {
		resp.Error = apiErr.Detail()
	}
	return apiErr.HTTPStatus, resp
}
