package jigsaw

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// TileHandler receives every payload delivered on a puzzle topic.
// fragments is nil when err is set.
type TileHandler func(puzzleID string, rawPayload []byte, fragments []Fragment, err error)

// MQTTClient routes tile payloads from puzzle topics to a TileHandler
type MQTTClient struct {
	client  mqtt.Client
	handler TileHandler
	routes  map[string]string // topic -> puzzle id
	qos     byte

	mu        sync.RWMutex
	connected bool
}

// InitMQTT connects to the broker from MQTT_BROKER or mqtt.broker and
// subscribes to every puzzle topic each time the connection comes up.
// It returns nil, nil when no broker is configured. The connection is made
// in the background and retried by paho until the broker answers.
func InitMQTT(config *Config, handler TileHandler) (*MQTTClient, error) {
	var mc MQTTConfig
	if config != nil {
		mc = config.MQTT
	}
	broker := envOr("MQTT_BROKER", mc.Broker)
	if broker == "" {
		log.Println("MQTT disabled: no broker configured")
		return nil, nil
	}
	if config == nil || !config.HasTopics() {
		return nil, fmt.Errorf("MQTT enabled but no puzzle topics configured")
	}

	c := newMQTTClient(nil, config, handler)
	c.client = mqtt.NewClient(c.clientOptions(broker, mc))
	c.client.Connect()
	log.Printf("Connecting to MQTT broker %s for %d puzzle topic(s)", broker, len(c.routes))
	return c, nil
}

// newMQTTClient builds the topic routes for config around an existing client
func newMQTTClient(client mqtt.Client, config *Config, handler TileHandler) *MQTTClient {
	c := &MQTTClient{
		client:  client,
		handler: handler,
		routes:  make(map[string]string),
		qos:     config.MQTT.QoSLevel(),
	}
	for _, pc := range config.Puzzles {
		if pc.Topic != "" {
			c.routes[pc.Topic] = pc.ID
		}
	}
	return c
}

func (c *MQTTClient) clientOptions(broker string, mc MQTTConfig) *mqtt.ClientOptions {
	clientID := envOr("MQTT_CLIENT_ID", mc.ClientID)
	if clientID == "" {
		clientID = "tilemesh"
	}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(time.Minute).
		SetCleanSession(true).
		SetOrderMatters(true).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(c.onConnectionLost)

	if user := envOr("MQTT_USERNAME", mc.Username); user != "" {
		opts.SetUsername(user)
		opts.SetPassword(envOr("MQTT_PASSWORD", mc.Password))
	}
	return opts
}

// topics returns the routed topics in sorted order
func (c *MQTTClient) topics() []string {
	topics := make([]string, 0, len(c.routes))
	for t := range c.routes {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}

// onConnect subscribes to all puzzle topics in a single request.
// The session is clean, so this runs again after every reconnect.
func (c *MQTTClient) onConnect(client mqtt.Client) {
	c.setConnected(true)

	filters := make(map[string]byte, len(c.routes))
	for topic := range c.routes {
		filters[topic] = c.qos
	}
	token := client.SubscribeMultiple(filters, c.route)
	if token.WaitTimeout(5*time.Second) && token.Error() != nil {
		log.Printf("Error subscribing to puzzle topics %v: %v", c.topics(), token.Error())
		return
	}
	log.Printf("MQTT connected, listening on %v (qos %d)", c.topics(), c.qos)
}

func (c *MQTTClient) onConnectionLost(_ mqtt.Client, err error) {
	log.Printf("MQTT connection lost (%v), waiting for reconnect", err)
	c.setConnected(false)
}

// route decodes a tile payload and passes it to the handler of the topic's puzzle
func (c *MQTTClient) route(_ mqtt.Client, msg mqtt.Message) {
	puzzleID, ok := c.GetPuzzleByTopic(msg.Topic())
	if !ok {
		log.Printf("Ignoring payload on unrouted topic %s", msg.Topic())
		return
	}

	payload := msg.Payload()
	fragments, err := DecodeTilePayload(payload)

	var perr *ParseError
	switch {
	case errors.As(err, &perr):
		log.Printf("Rejected tiles for %s: %v", puzzleID, perr)
	case err != nil:
		log.Printf("Undecodable payload for %s (%d bytes): %v", puzzleID, len(payload), err)
	default:
		log.Printf("Received %d tiles for %s", len(fragments), puzzleID)
	}

	if c.handler != nil {
		c.handler(puzzleID, payload, fragments, err)
	}
}

// GetPuzzleByTopic returns the puzzle fed by topic
func (c *MQTTClient) GetPuzzleByTopic(topic string) (string, bool) {
	id, ok := c.routes[topic]
	return id, ok
}

// IsConnected returns true while the broker connection is up
func (c *MQTTClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

func (c *MQTTClient) setConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = connected
}

// Disconnect drops the puzzle subscriptions and closes the connection
func (c *MQTTClient) Disconnect() {
	if c.client == nil || !c.client.IsConnected() {
		return
	}
	c.client.Unsubscribe(c.topics()...).WaitTimeout(time.Second)
	c.client.Disconnect(250)
	c.setConnected(false)
	log.Println("Disconnected from MQTT broker")
}

// GetClient returns the underlying client, shared with the Publisher
func (c *MQTTClient) GetClient() mqtt.Client {
	return c.client
}

// envOr returns the environment value for key, or fallback when unset
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
