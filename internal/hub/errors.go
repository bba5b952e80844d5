package hub

import "errors"

var (
	// ErrNilModule is returned by Register for a nil module.
	ErrNilModule = errors.New("hub: nil module")

	// ErrInboxFull is returned by Inbox.Message when the event loop is
	// too far behind; the message is dropped.
	ErrInboxFull = errors.New("hub: inbox full, message dropped")

	// ErrInboxClosed is returned by Inbox.Message after Close.
	ErrInboxClosed = errors.New("hub: inbox closed")
)
