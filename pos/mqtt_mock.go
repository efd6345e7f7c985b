package pos

import (
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// mockToken implements mqtt.Token for tests.
type mockToken struct {
	err error
}

func (t *mockToken) Wait() bool                       { return true }
func (t *mockToken) WaitTimeout(_ time.Duration) bool { return true }
func (t *mockToken) Error() error                     { return t.err }
func (t *mockToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// MockMQTTClient is a minimal in-memory mqtt.Client used by publisher tests.
type MockMQTTClient struct {
	mu         sync.Mutex
	connected  bool
	publishErr error
	published  []MockPublished
}

// MockPublished records one Publish call.
type MockPublished struct {
	Topic   string
	Payload []byte
	QoS     byte
	Retain  bool
}

// NewMockMQTTClient returns a disconnected mock client.
func NewMockMQTTClient() *MockMQTTClient {
	return &MockMQTTClient{}
}

// SetConnected sets the reported connection state.
func (c *MockMQTTClient) SetConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = connected
}

// SetPublishError makes subsequent Publish calls fail.
func (c *MockMQTTClient) SetPublishError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publishErr = err
}

// Published returns a copy of all recorded Publish calls.
func (c *MockMQTTClient) Published() []MockPublished {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]MockPublished, len(c.published))
	copy(out, c.published)
	return out
}

func (c *MockMQTTClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *MockMQTTClient) IsConnectionOpen() bool { return c.IsConnected() }

func (c *MockMQTTClient) Connect() mqtt.Token {
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	return &mockToken{}
}

func (c *MockMQTTClient) Disconnect(_ uint) {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
}

func (c *MockMQTTClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return &mockToken{err: mqtt.ErrNotConnected}
	}
	if c.publishErr != nil {
		return &mockToken{err: c.publishErr}
	}

	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	}
	c.published = append(c.published, MockPublished{Topic: topic, Payload: data, QoS: qos, Retain: retained})
	return &mockToken{}
}

func (c *MockMQTTClient) Subscribe(_ string, _ byte, _ mqtt.MessageHandler) mqtt.Token {
	return &mockToken{}
}

func (c *MockMQTTClient) SubscribeMultiple(_ map[string]byte, _ mqtt.MessageHandler) mqtt.Token {
	return &mockToken{}
}

func (c *MockMQTTClient) Unsubscribe(_ ...string) mqtt.Token { return &mockToken{} }

func (c *MockMQTTClient) AddRoute(_ string, _ mqtt.MessageHandler) {}

func (c *MockMQTTClient) OptionsReader() mqtt.ClientOptionsReader {
	return mqtt.ClientOptionsReader{}
}
