package alert

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/flotilla-dev/flotilla/internal/types"
)

const mqttTimeout = 10 * time.Second

// sendMQTT publishes the alert JSON to an MQTT broker topic.
func sendMQTT(broker, topic string, alert types.Alert) error {
	if topic == "" {
		topic = "flotilla/alerts"
	}
	opts := mqtt.NewClientOptions().
		SetClientID("flotilla-core").
		AddBroker(broker).
		SetConnectTimeout(mqttTimeout).
		SetWriteTimeout(mqttTimeout)

	client := mqtt.NewClient(opts)
	tok := client.Connect()
	if !tok.WaitTimeout(mqttTimeout) {
		return fmt.Errorf("mqtt connect timeout")
	}
	if tok.Error() != nil {
		return fmt.Errorf("mqtt connect: %w", tok.Error())
	}
	defer client.Disconnect(250)

	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert payload: %w", err)
	}
	pub := client.Publish(topic, 0, false, payload)
	if !pub.WaitTimeout(mqttTimeout) {
		return fmt.Errorf("mqtt publish timeout")
	}
	if pub.Error() != nil {
		return fmt.Errorf("mqtt publish: %w", pub.Error())
	}
	return nil
}
