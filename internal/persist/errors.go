package persist

import "errors"

// ErrNotFound is returned by Store.Read when nothing is stored under a key.
var ErrNotFound = errors.New("persist: not found")
