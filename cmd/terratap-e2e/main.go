// TerraTap end-to-end driver
//
// terratap-e2e connects to the broker as an independent MQTT v5 client,
// waits for the hub's retained settings and then plays the part of the
// garden devices: it queries the watering flag, reports a dry sensor
// reading and checks the hub answers accordingly.
//
// Usage:
//
//	terratap-e2e [-broker mqtt://127.0.0.1:1883] [-hub ./terratap] [-double-query]
package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"github.com/google/uuid"

	"github.com/nerrad567/terratap-core/internal/infrastructure/config"
	"github.com/nerrad567/terratap-core/internal/infrastructure/logging"
	"github.com/nerrad567/terratap-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/terratap-core/internal/module"
	"github.com/nerrad567/terratap-core/internal/modules"
	"github.com/nerrad567/terratap-core/internal/process"
)

var version = "dev"

// settingsCount is the number of retained settings the two hub modules
// publish. The checks start only once all of them have arrived.
const settingsCount = 4

var topics mqtt.Topics

// options are the command-line flags.
type options struct {
	broker      string
	hubBinary   string
	timeout     time.Duration
	doubleQuery bool
}

func main() {
	var opts options
	flag.StringVar(&opts.broker, "broker", "mqtt://127.0.0.1:1883", "broker URL")
	flag.StringVar(&opts.hubBinary, "hub", "", "hub binary to launch before testing (empty: hub already running)")
	flag.DurationVar(&opts.timeout, "timeout", 30*time.Second, "maximum wait for each expected message")
	flag.BoolVar(&opts.doubleQuery, "double-query", false, "also send two back-to-back queries after a dry reading")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log := logging.New(config.LoggingConfig{Level: "info", Format: "text", Output: "stdout"}, version)

	res, err := run(ctx, opts, log)
	if err != nil {
		log.Error("e2e run failed", "error", err)
		os.Exit(1)
	}
	log.Info("E2E test completed", "passed", res.passed, "total", res.total)
	fmt.Printf("Tests passed: %d/%d\n", res.passed, res.total)
	if !res.ok() {
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, log *logging.Logger) (result, error) {
	var res result

	brokerURL, err := url.Parse(opts.broker)
	if err != nil {
		return res, fmt.Errorf("parse broker URL: %w", err)
	}

	if opts.hubBinary != "" {
		hub := process.NewManager(process.Config{
			Name:             "terratap",
			Binary:           opts.hubBinary,
			RestartOnFailure: false,
		})
		hub.SetLogger(log.Component("hub-process"))
		if err := hub.Start(ctx); err != nil {
			return res, fmt.Errorf("starting hub: %w", err)
		}
		defer func() {
			if err := hub.Stop(); err != nil {
				log.Warn("stopping hub", "error", err)
			}
		}()
		log.Info("hub started", "pid", hub.PID())
	}

	tr := newTracker()
	cm, err := autopaho.NewConnection(ctx, autopaho.ClientConfig{
		ServerUrls: []*url.URL{brokerURL},
		KeepAlive:  5,
		OnConnectionUp: func(cm *autopaho.ConnectionManager, _ *paho.Connack) {
			log.Info("connected to MQTT broker", "broker", opts.broker)
			if _, err := cm.Subscribe(ctx, &paho.Subscribe{
				Subscriptions: []paho.SubscribeOptions{{Topic: topics.AllTopics(), QoS: module.QoSExactlyOnce}},
			}); err != nil {
				log.Error("subscribe failed", "error", err)
			}
		},
		OnConnectError: func(err error) {
			log.Warn("mqtt connection error", "error", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: "terratap-e2e-" + uuid.NewString(),
			OnPublishReceived: []func(paho.PublishReceived) (bool, error){
				func(pr paho.PublishReceived) (bool, error) {
					tr.observe(pr.Packet.Topic, string(pr.Packet.Payload))
					return true, nil
				},
			},
		},
	})
	if err != nil {
		return res, fmt.Errorf("mqtt connect: %w", err)
	}
	defer func() {
		dctx, dcancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer dcancel()
		_ = cm.Disconnect(dctx)
	}()

	connCtx, connCancel := context.WithTimeout(ctx, opts.timeout)
	defer connCancel()
	if err := cm.AwaitConnection(connCtx); err != nil {
		return res, fmt.Errorf("waiting for broker: %w", err)
	}

	log.Info("waiting for all settings to be received", "want", settingsCount)
	if err := tr.waitSettings(ctx, settingsCount, opts.timeout); err != nil {
		return res, err
	}
	log.Info("all settings received")

	d := &driver{cm: cm, tr: tr, timeout: opts.timeout, log: log}

	steps := []func(context.Context, *result) error{d.wateringQuery, d.sensorThenQuery}
	if opts.doubleQuery {
		steps = append(steps, d.doubleQuery)
	}
	for _, step := range steps {
		if err := step(ctx, &res); err != nil {
			return res, err
		}
	}
	return res, nil
}

// driver sends the device-side messages of each check.
type driver struct {
	cm      *autopaho.ConnectionManager
	tr      *tracker
	timeout time.Duration
	log     *logging.Logger
}

func (d *driver) publish(ctx context.Context, topic, payload string) error {
	_, err := d.cm.Publish(ctx, &paho.Publish{
		Topic:   topic,
		QoS:     module.QoSAtLeastOnce,
		Payload: []byte(payload),
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (d *driver) query(ctx context.Context) error {
	return d.publish(ctx, topics.Join(modules.WateringTopic, modules.NeededField), "")
}

func (d *driver) reportDry(ctx context.Context) error {
	return d.publish(ctx, topics.Join(modules.SensorTopic, modules.NeededField), "true")
}

// wateringQuery passes when the hub answers a query at all.
func (d *driver) wateringQuery(ctx context.Context, res *result) error {
	d.log.Info("---------------- Watering Tests ----------------")
	seen := d.tr.responseCount()
	res.total++
	if err := d.query(ctx); err != nil {
		return err
	}
	if _, err := d.tr.waitResponses(ctx, seen, 1, d.timeout); err != nil {
		d.log.Warn("no response to watering query", "error", err)
		return nil
	}
	res.passed++
	d.log.Info("watering tests completed")
	return nil
}

// sensorThenQuery passes twice: once for the response and once more if the
// response reports the dry reading.
func (d *driver) sensorThenQuery(ctx context.Context, res *result) error {
	d.log.Info("---------------- Sensor Tests ----------------")
	seen := d.tr.responseCount()
	res.total += 2
	if err := d.reportDry(ctx); err != nil {
		return err
	}
	if err := d.query(ctx); err != nil {
		return err
	}
	got, err := d.tr.waitResponses(ctx, seen, 1, d.timeout)
	if err != nil {
		d.log.Warn("no response after sensor reading", "error", err)
		return nil
	}
	res.passed++
	if got[0] == "true" {
		res.passed++
	} else {
		d.log.Warn("watering flag not set by sensor reading", "response", got[0])
	}
	d.log.Info("sensor tests completed")
	return nil
}

// doubleQuery sends two queries after one dry reading. Exactly one of the
// two responses may report "true".
func (d *driver) doubleQuery(ctx context.Context, res *result) error {
	d.log.Info("---------------- Double Query Tests ----------------")
	seen := d.tr.responseCount()
	res.total++
	if err := d.reportDry(ctx); err != nil {
		return err
	}
	for range 2 {
		if err := d.query(ctx); err != nil {
			return err
		}
	}
	got, err := d.tr.waitResponses(ctx, seen, 2, d.timeout)
	if err != nil {
		d.log.Warn("missing responses to double query", "error", err)
		return nil
	}
	trues := countTrue(got)
	d.log.Info("double query responses", "responses", got, "true", trues)
	if trues == 1 {
		res.passed++
	}
	return nil
}

// result counts passed and attempted checks.
type result struct {
	passed int
	total  int
}

func (r result) ok() bool { return r.total > 0 && r.passed == r.total }

func countTrue(responses []string) int {
	n := 0
	for _, r := range responses {
		if r == "true" {
			n++
		}
	}
	return n
}
