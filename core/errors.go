package core

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("not authorized")
	ErrMissingID    = errors.New("image id is required")
	// ErrPrivateImage is returned when a persistent link is requested for a private image.
	ErrPrivateImage = errors.New("persistent links are only available for public images")
	ErrNotRevocable = errors.New("inline links cannot be revoked")
)
