package state

import "errors"

// ErrLockUnavailable is returned when the caller's context ends before the
// shared-state lock could be acquired.
var ErrLockUnavailable = errors.New("state: lock unavailable")
