// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"

	"github.com/ffutop/motech-monitor/internal/catalog"
	"github.com/ffutop/motech-monitor/internal/config"
)

// mqttClient is the part of MQTT.Client the publisher uses.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) MQTT.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher publishes every value on its own topic,
// <topic>/<address>/<block>/<field>, and the whole snapshot as JSON on
// <topic>/<address>/snapshot.
type MQTTPublisher struct {
	client  mqttClient
	topic   string
	qos     byte
	retain  bool
	timeout time.Duration
}

// NewMQTT connects to the broker.
func NewMQTT(cfg config.MQTTConfig) (*MQTTPublisher, error) {
	opts := MQTT.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(cfg.Timeout)

	client := MQTT.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		return nil, fmt.Errorf("mqtt: timed out connecting to %s", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: failed to connect to %s: %w", cfg.Broker, err)
	}
	return newMQTT(client, cfg), nil
}

func newMQTT(client mqttClient, cfg config.MQTTConfig) *MQTTPublisher {
	return &MQTTPublisher{
		client:  client,
		topic:   cfg.Topic,
		qos:     cfg.QoS,
		retain:  cfg.Retain,
		timeout: cfg.Timeout,
	}
}

func (m *MQTTPublisher) Name() string { return "mqtt" }

func (m *MQTTPublisher) Publish(ctx context.Context, snap *catalog.Snapshot) error {
	base := fmt.Sprintf("%s/%d", m.topic, snap.Address)

	var tokens []MQTT.Token
	for _, b := range snap.Blocks {
		for _, v := range b.Values {
			topic := fmt.Sprintf("%s/%s/%s", base, b.Name, v.Name)
			tokens = append(tokens, m.client.Publish(topic, m.qos, m.retain, v.String()))
		}
	}

	payload, err := json.Marshal(newDocument(snap))
	if err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	tokens = append(tokens, m.client.Publish(base+"/snapshot", m.qos, m.retain, payload))

	var errs []error
	for _, t := range tokens {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !t.WaitTimeout(m.timeout) {
			errs = append(errs, errors.New("mqtt: publish timed out"))
			continue
		}
		if err := t.Error(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MQTTPublisher) Close() error {
	m.client.Disconnect(250)
	return nil
}
