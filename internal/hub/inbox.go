package hub

import "sync"

// DefaultInboxSize is the number of events an Inbox buffers.
const DefaultInboxSize = 256

// EventKind distinguishes transport events.
type EventKind int

const (
	// EventConnected means the transport (re)connected.
	EventConnected EventKind = iota + 1

	// EventMessage carries one inbound message.
	EventMessage
)

// Event is one transport event queued for the event loop.
type Event struct {
	Kind    EventKind
	Topic   string
	Payload string
}

// Inbox buffers transport events for Run.
//
// Message never blocks: when the buffer is full the message is dropped and
// ErrInboxFull returned, so the transport's delivery goroutine keeps
// running. Connected blocks until queued or the inbox is closed; connect
// events are rare and must not be lost.
type Inbox struct {
	events    chan Event
	done      chan struct{}
	closeOnce sync.Once

	// onDrop is called for each dropped message.
	onDrop func()
}

// NewInbox returns an Inbox buffering up to size events.
func NewInbox(size int) *Inbox {
	if size <= 0 {
		size = DefaultInboxSize
	}
	return &Inbox{
		events: make(chan Event, size),
		done:   make(chan struct{}),
	}
}

// SetOnDrop sets a callback run for each dropped message. Call it before
// the inbox is handed to the transport.
func (i *Inbox) SetOnDrop(fn func()) {
	i.onDrop = fn
}

// Events is the channel Run drains.
func (i *Inbox) Events() <-chan Event {
	return i.events
}

// Connected queues a connected event. Its signature fits mqtt.WithOnConnect.
func (i *Inbox) Connected() {
	select {
	case i.events <- Event{Kind: EventConnected}:
	case <-i.done:
	}
}

// Message queues an inbound message. Its signature fits mqtt.MessageHandler.
func (i *Inbox) Message(topic string, payload []byte) error {
	select {
	case <-i.done:
		return ErrInboxClosed
	default:
	}

	select {
	case i.events <- Event{Kind: EventMessage, Topic: topic, Payload: string(payload)}:
		return nil
	default:
		if i.onDrop != nil {
			i.onDrop()
		}
		return ErrInboxFull
	}
}

// Close stops the inbox accepting events. The events channel itself stays
// open; Run exits on its context.
func (i *Inbox) Close() {
	i.closeOnce.Do(func() { close(i.done) })
}
