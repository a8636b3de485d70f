package repository

import "errors"

// ErrNotFound is returned when a row does not exist or is not owned by
// the requesting user. Services translate it into their own sentinels.
var ErrNotFound = errors.New("not found")
