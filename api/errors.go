package api

import (
	"errors"
	"net/http"

	"github.com/jacentio/projects/project"
	"github.com/jacentio/projects/store"
)

var errBadRequest = errors.New("bad request")

// statusFor maps an operation error to an HTTP status and a caller-safe message.
// Authorization denials share one message so they reveal nothing about the target.
func statusFor(err error) (int, string) {
	var policy *project.PolicyError
	switch {
	case errors.As(err, &policy):
		return http.StatusForbidden, policy.Reason
	case errors.Is(err, project.ErrNotAuthorized):
		return http.StatusForbidden, "not authorized"
	case errors.Is(err, project.ErrNotFound):
		return http.StatusNotFound, "project not found"
	case errors.Is(err, project.ErrOrganizationNotFound):
		return http.StatusNotFound, "organization not found"
	case errors.Is(err, project.ErrInvalidInput),
		errors.Is(err, store.ErrInvalidToken),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, project.ErrUnsupportedOperation):
		return http.StatusMethodNotAllowed, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
