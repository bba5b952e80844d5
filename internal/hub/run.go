package hub

import "context"

// Run is the hub's event loop. It drains inbox, initializing on every
// EventConnected and dispatching every EventMessage, one event at a time,
// in arrival order. Subscriptions made during initialization deliver into
// the same inbox.
//
// Run returns nil when ctx is cancelled. An event received after
// cancellation is not processed. A handler already running when ctx is
// cancelled finishes with a context that is not cancelled.
func (r *Registry) Run(ctx context.Context, t Transport, inbox *Inbox) error {
	handlerCtx := context.WithoutCancel(ctx)
	events := inbox.Events()

	r.logger.Info("event loop started", "modules", len(r.modules))
	defer r.logger.Info("event loop stopped")

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev := <-events:
			if ctx.Err() != nil {
				return nil
			}
			r.handle(handlerCtx, t, inbox, ev)
		}
	}
}

func (r *Registry) handle(ctx context.Context, t Transport, inbox *Inbox, ev Event) {
	switch ev.Kind {
	case EventConnected:
		r.metrics.Connects.Inc()
		r.logger.Info("transport connected, publishing settings", "settings", len(r.configs))
		r.Initialize(t, inbox.Message)

	case EventMessage:
		r.metrics.MessagesReceived.Inc()
		r.logger.Debug("message received", "topic", ev.Topic)
		r.Dispatch(ctx, ev.Topic, ev.Payload)

	default:
		r.logger.Warn("unknown event ignored", "kind", int(ev.Kind))
	}
}
