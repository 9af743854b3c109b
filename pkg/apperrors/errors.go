package apperrors

import "errors"

var (
	// ErrNoPlan means the planner could not derive a query plan for the
	// classified intent. Callers surface this as a "please rephrase"
	// answer, never as a hard failure.
	ErrNoPlan = errors.New("no query plan")

	ErrNotFound      = errors.New("not found")
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	ErrMissingTenant = errors.New("tenant_id is required")
	ErrMissingQuery  = errors.New("query is required")
)
