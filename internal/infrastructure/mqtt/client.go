package mqtt

import (
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/thermocloud/core/internal/infrastructure/config"
)

// Connection timing constants.
const (
	defaultConnectTimeout = 10 * time.Second
	defaultPublishTimeout = 5 * time.Second

	// reconnect backoff bounds for the paho auto-reconnect loop.
	minReconnectInterval = 1 * time.Second
	maxReconnectInterval = 2 * time.Minute
)

// maxQoS is the highest valid MQTT QoS level.
const maxQoS = 2

// Client wraps paho.mqtt.golang for the registry's outbound event feed.
//
// The registry only publishes; inbound sensor traffic is out of scope
// (readings arrive as authenticated API calls). All methods are safe for
// concurrent use.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig

	connected bool
	connMu    sync.RWMutex

	onConnect    func()
	onDisconnect func(err error)
	callbackMu   sync.RWMutex
}

// Connect establishes a connection to the MQTT broker with auto-reconnect
// and exponential backoff.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	opts := pahomqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port)).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetryInterval(minReconnectInterval).
		SetMaxReconnectInterval(maxReconnectInterval).
		SetOrderMatters(false)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	c := &Client{cfg: cfg}

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.setConnected(true)
		c.callbackMu.RLock()
		callback := c.onConnect
		c.callbackMu.RUnlock()
		if callback != nil {
			callback()
		}
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.setConnected(false)
		c.callbackMu.RLock()
		callback := c.onDisconnect
		c.callbackMu.RUnlock()
		if callback != nil {
			callback(err)
		}
	})

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	c.setConnected(true)
	return c, nil
}

// SetOnConnect registers a callback invoked on (re)connection.
func (c *Client) SetOnConnect(callback func()) {
	c.callbackMu.Lock()
	c.onConnect = callback
	c.callbackMu.Unlock()
}

// SetOnDisconnect registers a callback invoked when the connection drops.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.callbackMu.Lock()
	c.onDisconnect = callback
	c.callbackMu.Unlock()
}

// IsConnected returns the current connection state.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected && c.client.IsConnected()
}

// Close disconnects from the broker, allowing in-flight messages to drain.
func (c *Client) Close() error {
	const disconnectQuiesceMs = 250
	c.setConnected(false)
	c.client.Disconnect(disconnectQuiesceMs)
	return nil
}

func (c *Client) setConnected(state bool) {
	c.connMu.Lock()
	c.connected = state
	c.connMu.Unlock()
}
