package incident

import "errors"

// Common errors
var (
	ErrNotFound   = errors.New("not found")
	ErrNoLocation = errors.New("entry has no location")
)
