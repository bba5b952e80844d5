// Package process supervises child processes the hub depends on.
//
// The hub uses it to run a local MQTT broker when broker.managed is set:
// the broker is started before the MQTT client connects, restarted with
// exponential backoff if it dies, and stopped (SIGTERM, then SIGKILL) once
// the event loop has exited.
//
//	mgr := process.NewManager(process.FromBroker(cfg.Broker, "127.0.0.1:1883"))
//	mgr.SetLogger(logger)
//	if err := mgr.Start(ctx); err != nil {
//	    return err
//	}
//	defer mgr.Stop()
package process
