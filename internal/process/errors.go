package process

import "errors"

// Sentinel errors for process supervision.
var (
	// ErrAlreadyRunning is returned by Start when the process is running.
	ErrAlreadyRunning = errors.New("process already running")

	// ErrNoBinary is returned by Start when Config.Binary is empty.
	ErrNoBinary = errors.New("process binary not configured")

	// ErrNotReady is returned by Start when the ready probe never succeeded.
	ErrNotReady = errors.New("process did not become ready")
)

// RecoverableError lets an exit error say whether a restart can help.
type RecoverableError interface {
	error
	IsRecoverable() bool
}

// IsRecoverable reports whether err allows a restart. Errors that do not
// implement RecoverableError are treated as recoverable.
func IsRecoverable(err error) bool {
	if err == nil {
		return true
	}
	var re RecoverableError
	if errors.As(err, &re) {
		return re.IsRecoverable()
	}
	return true
}
