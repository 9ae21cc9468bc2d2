package exam

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidSubmission = errors.New("invalid submission")
	ErrInvalidQuestion   = errors.New("invalid question")
)
