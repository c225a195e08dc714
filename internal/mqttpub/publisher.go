// Package mqttpub publishes VE.Direct fields to an MQTT broker, one topic
// per field.
package mqttpub

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/ashajkofci/govedirect"
	"github.com/ashajkofci/govedirect/internal/config"
	"github.com/ashajkofci/govedirect/internal/logging"
)

// Client is the part of mqtt.Client the publisher uses.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// Publisher writes each field to <topic>/<NAME>.
type Publisher struct {
	client  Client
	topic   string
	qos     byte
	retain  bool
	timeout time.Duration
}

// New wraps an already connected client.
func New(client Client, topic string, qos byte, retain bool, timeout time.Duration) *Publisher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Publisher{
		client:  client,
		topic:   strings.Trim(topic, "/"),
		qos:     qos,
		retain:  retain,
		timeout: timeout,
	}
}

// Connect dials the broker described by cfg.
func Connect(cfg config.MQTTConfig) (*Publisher, error) {
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(timeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logging.Warn("MQTT connection lost", zap.String("broker", cfg.Broker), zap.Error(err))
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("connect to %s: timed out after %s", cfg.Broker, timeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Broker, err)
	}
	logging.Info("Connected to MQTT broker", zap.String("broker", cfg.Broker), zap.String("topic", cfg.Topic))
	return New(client, cfg.Topic, cfg.QoS, cfg.Retain, timeout), nil
}

// Topic returns the topic a field is published on. MQTT wildcards and
// separators in the name (e.g. "SER#") are replaced.
func (p *Publisher) Topic(name string) string {
	return p.topic + "/" + topicReplacer.Replace(name)
}

var topicReplacer = strings.NewReplacer("#", "_", "+", "_", "/", "_")

// Publish sends every field and returns the errors joined.
func (p *Publisher) Publish(fields []vedirect.Field) error {
	var errs []error
	for _, f := range fields {
		token := p.client.Publish(p.Topic(f.Name), p.qos, p.retain, f.Value)
		if !token.WaitTimeout(p.timeout) {
			errs = append(errs, fmt.Errorf("publish %s: timed out", f.Name))
			continue
		}
		if err := token.Error(); err != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", f.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
