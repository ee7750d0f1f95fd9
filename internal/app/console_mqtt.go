// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/instrument_panel/internal/config"
	"github.com/relabs-tech/instrument_panel/internal/modes"
)

// RunConsoleMQTT prints the panel's attribute topics until ctx is done.
// A non-negative setMode is published to <prefix>/mode/set first.
func RunConsoleMQTT(ctx context.Context, cfg config.MQTTConfig, setMode int, out io.Writer) error {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID + "-console")

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Printf("console: connected to MQTT broker at %s", cfg.Broker)

	prefix := cfg.TopicPrefix + "/"
	filters := map[string]byte{
		prefix + topicStatus:     1,
		prefix + topicAttr + "#": 0,
		prefix + topicReading:    0,
		prefix + topicModeError:  1,
	}
	token := client.SubscribeMultiple(filters, func(_ mqtt.Client, msg mqtt.Message) {
		fmt.Fprintln(out, formatConsoleLine(strings.TrimPrefix(msg.Topic(), prefix), msg.Payload()))
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: subscribed to %s#", prefix)

	if setMode >= 0 {
		t := client.Publish(prefix+topicModeSet, 1, false, strconv.Itoa(setMode))
		t.Wait()
		if t.Error() != nil {
			return t.Error()
		}
		log.Printf("console: requested mode %d", setMode)
	}

	<-ctx.Done()
	log.Println("console: shutting down")
	return nil
}

// formatConsoleLine renders one message; topic is relative to the prefix.
func formatConsoleLine(topic string, payload []byte) string {
	switch {
	case strings.HasPrefix(topic, topicAttr):
		return fmt.Sprintf("[ATTR]  %-8s = %s", strings.TrimPrefix(topic, topicAttr), payload)
	case topic == topicReading:
		var rd modes.Reading
		if err := json.Unmarshal(payload, &rd); err != nil {
			return fmt.Sprintf("[READ]  unparsable: %v", err)
		}
		return "[READ]  " + describeReading(rd)
	case topic == topicModeError:
		return fmt.Sprintf("[ERR ]  mode write: %s", payload)
	case topic == topicStatus:
		return fmt.Sprintf("[STAT]  panel %s", payload)
	}
	return fmt.Sprintf("[????]  %s: %s", topic, payload)
}

func describeReading(rd modes.Reading) string {
	switch {
	case rd.Tilt != nil:
		return fmt.Sprintf("%s tilt_x=%4d tilt_y=%4d", rd.Mode, rd.Tilt.X, rd.Tilt.Y)
	case rd.Attitude != nil:
		return fmt.Sprintf("%s pitch=%4d roll=%4d", rd.Mode, rd.Attitude.Pitch, rd.Attitude.Roll)
	case rd.TempC != nil:
		return fmt.Sprintf("%s temp=%dC", rd.Mode, *rd.TempC)
	case rd.Value != nil:
		return fmt.Sprintf("%s %s=%6d", rd.Mode, rd.Axis, *rd.Value)
	case rd.Sample != nil:
		s := rd.Sample
		return fmt.Sprintf("%s ax=%6d ay=%6d az=%6d  gx=%6d gy=%6d gz=%6d",
			rd.Mode, s.Ax, s.Ay, s.Az, s.Gx, s.Gy, s.Gz)
	case rd.Mode == "":
		return "no reading yet"
	}
	return rd.Mode
}
