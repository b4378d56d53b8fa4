package publisher

import (
	"fmt"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	json "github.com/goccy/go-json"
	"github.com/sensornet-io/sensornet/cmd/sensornet/models"
	"go.uber.org/zap"
)

// Publisher pushes sensor lifecycle events to the MQTT broker. Publishing is
// fire-and-forget: a lost event never fails the request that produced it.
type Publisher struct {
	client MQTT.Client
}

func Connect(brokerURL, clientID, username, password string) (*Publisher, error) {
	opts := MQTT.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	if username != "" {
		opts.SetUsername(username)
	}
	if password != "" {
		opts.SetPassword(password)
	}
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(onConnect)
	opts.SetConnectionLostHandler(onConnectionLost)

	client := MQTT.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("timed out connecting to MQTT broker %s", brokerURL)
	}
	if token.Error() != nil {
		return nil, token.Error()
	}
	return &Publisher{client: client}, nil
}

func onConnect(c MQTT.Client) {
	optionsReader := c.OptionsReader()
	zap.S().Infof("Connected to MQTT broker as %s", optionsReader.ClientID())
}

func onConnectionLost(c MQTT.Client, err error) {
	optionsReader := c.OptionsReader()
	zap.S().Warnf("MQTT connection lost for %s: %s", optionsReader.ClientID(), err)
}

func (p *Publisher) publish(topic string, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		zap.S().Errorf("Failed to marshal event for %s: %s", topic, err)
		return
	}
	p.client.Publish(topic, 1, false, body)
}

func (p *Publisher) SensorCreated(profile models.SensorProfile) {
	p.publish("sensornet/sensors/created", profile)
}

func (p *Publisher) SensorDeleted(id int64) {
	p.publish("sensornet/sensors/deleted", map[string]int64{"id": id})
}

func (p *Publisher) ReadingRecorded(id int64, reading models.Reading) {
	p.publish(fmt.Sprintf("sensornet/sensors/%d/reading", id), reading)
}

func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
