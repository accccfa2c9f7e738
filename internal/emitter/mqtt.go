// Package emitter mirrors session broadcasts to an MQTT broker so
// non-socket consumers (wall clocks, loggers, dashboards) can follow
// timecode without joining a session.
package emitter

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/smpte-tc/server/internal/config"
)

const connectTimeout = 5 * time.Second

// MQTTEmitter publishes one retained-free message per session broadcast
// to <topic_prefix>/<session_id>. Publish failures are logged and
// dropped; the mirror never affects client delivery.
type MQTTEmitter struct {
	client mqtt.Client
	prefix string
	qos    byte
}

// Connect dials the configured broker. Returns an error when the broker
// is unreachable at startup; afterwards the paho client reconnects on
// its own.
func Connect(cfg config.MQTTConfig) (*MQTTEmitter, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", cfg.Broker))
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Printf("mqtt connection lost: %v", err)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("mqtt connect to %s: timeout", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", cfg.Broker, err)
	}

	log.Printf("MQTT mirror connected to %s (prefix %s)", cfg.Broker, cfg.TopicPrefix)
	return &MQTTEmitter{client: client, prefix: cfg.TopicPrefix, qos: cfg.QoS}, nil
}

// Mirror publishes msg under the session's topic. Fire and forget.
func (e *MQTTEmitter) Mirror(sessionID string, msg any) {
	if e == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("mqtt marshal error: %v", err)
		return
	}
	topic := e.prefix + "/" + sessionID
	token := e.client.Publish(topic, e.qos, false, data)
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			log.Printf("mqtt publish to %s failed: %v", topic, err)
		}
	}()
}

// Close disconnects from the broker, allowing in-flight publishes a
// short grace period.
func (e *MQTTEmitter) Close() {
	if e == nil {
		return
	}
	e.client.Disconnect(250)
}
