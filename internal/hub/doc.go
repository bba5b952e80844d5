// Package hub routes transport events to modules.
//
// A Registry is filled once at startup with Register and is read-only
// afterwards. Run is the hub's single event loop: on every Connected event
// it publishes all module settings as retained messages under
// "settings/<topic>/<field>" and subscribes to "<topic>/#" for every
// module; on every Message event it calls Handle on each module whose
// topic is a substring of the message topic, in registration order, one
// at a time.
//
// Transport callbacks never call into modules directly. They feed an Inbox,
// and Run drains it, so module handlers may publish without blocking the
// transport's delivery goroutine.
//
//	reg := hub.NewRegistry(hub.WithLogger(logger))
//	reg.Register(sensor)
//	reg.Register(watering)
//	inbox := hub.NewInbox(hub.DefaultInboxSize)
//	client, _ := mqtt.Connect(cfg.MQTT, mqtt.WithOnConnect(inbox.Connected))
//	err := reg.Run(ctx, client, inbox)
package hub
