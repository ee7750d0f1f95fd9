// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/instrument_panel/internal/attr"
	"github.com/relabs-tech/instrument_panel/internal/config"
	"github.com/relabs-tech/instrument_panel/internal/machine"
	"github.com/relabs-tech/instrument_panel/internal/modes"
)

// Topic layout under the configured prefix:
//
//	<prefix>/status        online|offline (retained, last will)
//	<prefix>/attr/<name>   attribute value as decimal text (retained)
//	<prefix>/reading       latest mode reading as JSON (retained)
//	<prefix>/mode/set      mode index writes (subscribed)
//	<prefix>/mode/error    rejected writes
const (
	topicStatus    = "status"
	topicAttr      = "attr/"
	topicReading   = "reading"
	topicModeSet   = "mode/set"
	topicModeError = "mode/error"

	mqttTimeout = 5 * time.Second
)

type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// mqttBridge mirrors the attribute surface onto MQTT topics.
type mqttBridge struct {
	pub     publisher
	prefix  string
	surface *attr.Surface
	runner  *modes.Runner
}

func (b *mqttBridge) topic(suffix string) string {
	return b.prefix + "/" + suffix
}

func (b *mqttBridge) publish(suffix string, retained bool, payload []byte) error {
	token := b.pub.Publish(b.topic(suffix), 0, retained, payload)
	if !token.WaitTimeout(mqttTimeout) {
		return fmt.Errorf("mqtt: publish %s: timeout", suffix)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt: publish %s: %w", suffix, err)
	}
	return nil
}

// publishAttrs pushes one snapshot of every attribute plus the latest
// reading.
func (b *mqttBridge) publishAttrs() error {
	snap, err := b.surface.Snapshot()
	if err != nil {
		return err
	}
	for _, name := range attr.Names() {
		if err := b.publish(topicAttr+name, true, []byte(strconv.Itoa(snap[name]))); err != nil {
			return err
		}
	}
	payload, err := json.Marshal(b.runner.Last())
	if err != nil {
		return fmt.Errorf("mqtt: marshal reading: %w", err)
	}
	return b.publish(topicReading, true, payload)
}

// handleModeSet applies a write received on <prefix>/mode/set. Rejected
// writes are reported on <prefix>/mode/error; accepted ones republish the
// mode attribute right away.
func (b *mqttBridge) handleModeSet(payload []byte) {
	if err := b.surface.WriteString(attr.Mode, string(payload)); err != nil {
		log.Printf("mqtt: mode write %q rejected: %v", payload, err)
		if perr := b.publish(topicModeError, false, []byte(modeErrorText(err))); perr != nil {
			log.Printf("mqtt: %v", perr)
		}
		return
	}
	idx, err := b.surface.Read(attr.Mode)
	if err != nil {
		return
	}
	if err := b.publish(topicAttr+attr.Mode, true, []byte(strconv.Itoa(idx))); err != nil {
		log.Printf("mqtt: %v", err)
	}
}

// modeErrorText maps a write error to the short code published on
// mode/error.
func modeErrorText(err error) string {
	switch {
	case errors.Is(err, machine.ErrPermissionDenied):
		return "permission denied: " + err.Error()
	case errors.Is(err, machine.ErrBusy):
		return "busy: " + err.Error()
	case errors.Is(err, attr.ErrInvalid):
		return "invalid: " + err.Error()
	}
	return "error: " + err.Error()
}

type mqttService struct {
	client mqtt.Client
	bridge *mqttBridge

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// startMQTT connects to the broker, subscribes to mode writes and starts
// publishing attributes every cfg.PublishInterval.
func startMQTT(cfg config.MQTTConfig, surface *attr.Surface, runner *modes.Runner) (io.Closer, error) {
	statusTopic := cfg.TopicPrefix + "/" + topicStatus
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(mqttTimeout).
		SetWill(statusTopic, "offline", 1, true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); !token.WaitTimeout(mqttTimeout) {
		return nil, fmt.Errorf("connect %s: timeout", cfg.Broker)
	} else if token.Error() != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Broker, token.Error())
	}
	log.Printf("mqtt: connected to %s as %s", cfg.Broker, cfg.ClientID)

	s := &mqttService{
		client: client,
		bridge: &mqttBridge{pub: client, prefix: cfg.TopicPrefix, surface: surface, runner: runner},
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	setTopic := s.bridge.topic(topicModeSet)
	token := client.Subscribe(setTopic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		s.bridge.handleModeSet(msg.Payload())
	})
	if !token.WaitTimeout(mqttTimeout) {
		client.Disconnect(250)
		return nil, fmt.Errorf("subscribe %s: timeout", setTopic)
	}
	if err := token.Error(); err != nil {
		client.Disconnect(250)
		return nil, fmt.Errorf("subscribe %s: %w", setTopic, err)
	}
	log.Printf("mqtt: subscribed to %s", setTopic)

	if err := s.bridge.publish(topicStatus, true, []byte("online")); err != nil {
		log.Printf("mqtt: %v", err)
	}

	go s.loop(cfg.PublishInterval)
	return s, nil
}

func (s *mqttService) loop(interval time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr string
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}
		if err := s.bridge.publishAttrs(); err != nil {
			if msg := err.Error(); msg != lastErr {
				log.Printf("mqtt: publish attributes: %v", err)
				lastErr = msg
			}
			continue
		}
		lastErr = ""
	}
}

func (s *mqttService) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
	if err := s.bridge.publish(topicStatus, true, []byte("offline")); err != nil {
		log.Printf("mqtt: %v", err)
	}
	s.client.Disconnect(250)
	log.Println("mqtt: disconnected")
	return nil
}
