package project

import "errors"

var (
	// ErrNotAuthorized is the uniform denial for membership, role and team checks.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrNotFound is returned when the project row doesn't exist.
	ErrNotFound = errors.New("project not found")

	// ErrOrganizationNotFound is returned when the organization row doesn't exist.
	ErrOrganizationNotFound = errors.New("organization not found")

	// ErrPolicyViolation matches every *PolicyError.
	ErrPolicyViolation = errors.New("policy violation")

	// ErrUnsupportedOperation is returned for operations outside the defined set.
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrInvalidInput is returned when a payload is missing required fields.
	ErrInvalidInput = errors.New("invalid input")
)

// Policy denials. Their messages are safe to show to the caller.
var (
	ErrPublicProjectsDisabled error = &PolicyError{Reason: "Public projects are disabled for this organization"}
	ErrProjectInactive        error = &PolicyError{Reason: "Project is not active"}
)

// PolicyError is a descriptive denial caused by a project policy rule.
type PolicyError struct {
	Reason string
}

func (e *PolicyError) Error() string {
	return e.Reason
}

// Is makes every PolicyError match ErrPolicyViolation.
func (e *PolicyError) Is(target error) bool {
	return target == ErrPolicyViolation
}
