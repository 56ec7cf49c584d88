// Package mqtt carries commands to the embedded video player and its status
// reports back, over per-device topics on an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/pausetime/internal/model"
)

const (
	qos            = 1
	publishTimeout = 3 * time.Second
	disconnectWait = 250
)

var ErrNotConnected = errors.New("mqtt client not connected")

func CommandTopic(deviceID string) string { return fmt.Sprintf("player/%s/commands", deviceID) }
func StatusTopic(deviceID string) string  { return fmt.Sprintf("player/%s/status", deviceID) }

// Channel publishes player commands for one device.
type Channel struct {
	client   paho.Client
	deviceID string

	mu       sync.Mutex
	onStatus func(model.RemoteStatus)
}

var connectHandler paho.OnConnectHandler = func(client paho.Client) {
	log.Info().Msg("connected to MQTT broker")
}

var connectLostHandler paho.ConnectionLostHandler = func(client paho.Client, err error) {
	log.Warn().Err(err).Msg("MQTT connection lost")
}

// Connect dials brokerURL with a unique client id and returns a channel for deviceID.
func Connect(brokerURL, deviceID string) (*Channel, error) {
	ch := &Channel{deviceID: deviceID}

	opts := paho.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(fmt.Sprintf("pausetime-%s-%s", deviceID, uuid.NewString()[:8]))
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(5 * time.Second)
	opts.OnConnect = func(c paho.Client) {
		connectHandler(c)
		ch.resubscribe()
	}
	opts.OnConnectionLost = connectLostHandler

	ch.client = paho.NewClient(opts)
	if token := ch.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	log.Info().Str("broker", brokerURL).Str("device", deviceID).Msg("MQTT channel ready")
	return ch, nil
}

// NewChannel wraps an existing client. Used by tests and callers that own the connection.
func NewChannel(client paho.Client, deviceID string) *Channel {
	return &Channel{client: client, deviceID: deviceID}
}

func encodeCommand(action string, args []any) ([]byte, error) {
	if args == nil {
		args = []any{}
	}
	return json.Marshal(model.RemoteCommand{Event: "command", Func: action, Args: args})
}

// SendCommand queues {"event":"command","func":action,"args":[...]} and returns
// without waiting for the broker. The returned channel yields the delivery
// result exactly once.
func (c *Channel) SendCommand(ctx context.Context, action string, args ...any) (<-chan error, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.client == nil || !c.client.IsConnectionOpen() {
		return nil, ErrNotConnected
	}
	payload, err := encodeCommand(action, args)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", action, err)
	}

	token := c.client.Publish(CommandTopic(c.deviceID), qos, false, payload)
	ack := make(chan error, 1)
	go func() {
		ack <- c.await(token, action)
	}()
	return ack, nil
}

func (c *Channel) await(token paho.Token, action string) error {
	select {
	case <-token.Done():
	case <-time.After(publishTimeout):
		return fmt.Errorf("publish %s to %s: timed out", action, c.deviceID)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to send %s to player %s: %w", action, c.deviceID, err)
	}
	log.Debug().Str("device", c.deviceID).Str("func", action).Msg("player command sent")
	return nil
}

// SubscribeStatus delivers decoded status reports to handler. The handler runs
// on the MQTT client's goroutine.
func (c *Channel) SubscribeStatus(handler func(model.RemoteStatus)) error {
	c.mu.Lock()
	c.onStatus = handler
	c.mu.Unlock()
	return c.subscribe()
}

func (c *Channel) resubscribe() {
	c.mu.Lock()
	has := c.onStatus != nil
	c.mu.Unlock()
	if !has {
		return
	}
	if err := c.subscribe(); err != nil {
		log.Error().Err(err).Msg("failed to resubscribe to player status")
	}
}

func (c *Channel) subscribe() error {
	topic := StatusTopic(c.deviceID)
	token := c.client.Subscribe(topic, qos, c.handleMessage)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	return nil
}

func (c *Channel) handleMessage(_ paho.Client, msg paho.Message) {
	var report model.RemoteStatus
	if err := json.Unmarshal(msg.Payload(), &report); err != nil {
		log.Warn().Err(err).Str("topic", msg.Topic()).Msg("ignoring malformed player status")
		return
	}
	c.mu.Lock()
	handler := c.onStatus
	c.mu.Unlock()
	if handler != nil {
		handler(report)
	}
}

// Close disconnects from the broker.
func (c *Channel) Close() {
	if c.client != nil && c.client.IsConnected() {
		c.client.Disconnect(disconnectWait)
		log.Info().Str("device", c.deviceID).Msg("MQTT channel disconnected")
	}
}

// Offline is used when no broker is configured. Every command fails.
type Offline struct{}

func (Offline) SendCommand(context.Context, string, ...any) (<-chan error, error) {
	return nil, ErrNotConnected
}
