// internal/mqttfeed/subscriber.go
package mqttfeed

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"basin-gateway/internal/ingest"
)

// Status is the subscriber diagnostic surfaced at /system.
type Status struct {
	Enabled   bool   `json:"enabled"`
	Connected bool   `json:"connected"`
	Topic     string `json:"topic,omitempty"`
	Received  int64  `json:"received"`
	Rejected  int64  `json:"rejected"`
	LastError string `json:"lastError,omitempty"`
}

// Subscriber feeds bus messages into the ingest pipeline. Malformed
// payloads and connection loss are the expected steady-state failure
// modes of an untrusted producer: they are recorded, never fatal.
type Subscriber struct {
	broker    string
	topic     string
	clientID  string
	reconnect time.Duration
	pipeline  *ingest.Pipeline

	mu     sync.Mutex
	client mqtt.Client
	status Status
}

func NewSubscriber(broker, topic, clientID string, reconnect time.Duration, pipeline *ingest.Pipeline) *Subscriber {
	return &Subscriber{
		broker:    broker,
		topic:     topic,
		clientID:  clientID,
		reconnect: reconnect,
		pipeline:  pipeline,
		status:    Status{Enabled: true, Topic: topic},
	}
}

// Start begins connecting in the background and returns immediately.
// With connect retry enabled the token only completes once a broker is
// reached, so waiting on it would hang for as long as the broker is
// down; connection state is reported through Snapshot instead.
func (s *Subscriber) Start() {
	opts := mqtt.NewClientOptions().
		AddBroker(s.broker).
		SetClientID(s.clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(s.reconnect).
		SetMaxReconnectInterval(s.reconnect)

	opts.SetOnConnectHandler(func(c mqtt.Client) {
		log.Printf("MQTT connected to %s, subscribing to %s", s.broker, s.topic)
		s.setConnected(true)
		if token := c.Subscribe(s.topic, 0, s.handleMessage); token.Wait() && token.Error() != nil {
			s.recordError(fmt.Sprintf("subscribe: %v", token.Error()))
		}
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("MQTT connection lost: %v", err)
		s.setConnected(false)
		s.recordError(err.Error())
	})

	s.client = mqtt.NewClient(opts)
	s.client.Connect()
}

// Stop disconnects from the broker.
func (s *Subscriber) Stop() {
	if s.client != nil {
		s.client.Disconnect(250)
	}
	s.setConnected(false)
}

// Snapshot returns the current subscriber diagnostics.
func (s *Subscriber) Snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Subscriber) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	sample, err := s.pipeline.Parse(msg.Payload())
	if err != nil {
		log.Printf("MQTT: rejecting payload on %s: %v", msg.Topic(), err)
		s.reject(err)
		return
	}
	if _, err := s.pipeline.Ingest(context.Background(), sample); err != nil {
		log.Printf("MQTT: ingest failed: %v", err)
		s.reject(err)
		return
	}
	s.mu.Lock()
	s.status.Received++
	s.mu.Unlock()
}

func (s *Subscriber) reject(err error) {
	s.mu.Lock()
	s.status.Rejected++
	s.status.LastError = err.Error()
	s.mu.Unlock()
}

func (s *Subscriber) setConnected(connected bool) {
	s.mu.Lock()
	s.status.Connected = connected
	s.mu.Unlock()
}

func (s *Subscriber) recordError(message string) {
	s.mu.Lock()
	s.status.LastError = message
	s.mu.Unlock()
}
