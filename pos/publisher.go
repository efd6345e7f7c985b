package pos

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// LocationEvent is the published form of a resolved location.
type LocationEvent struct {
	Label      string  `json:"label"`
	NodeID     string  `json:"nodeId,omitempty"`
	BuildingID string  `json:"buildingId,omitempty"`
	FloorID    string  `json:"floorId,omitempty"`
	X          float64 `json:"x,omitempty"`
	Y          float64 `json:"y,omitempty"`
	Status     string  `json:"status"`
	Timestamp  int64   `json:"timestamp"`
}

// Publisher pushes location and prediction events to MQTT. The resolved
// location is retained so late subscribers immediately see the current
// position; per-source prediction streams are fire-and-forget.
type Publisher struct {
	client mqtt.Client
	prefix string

	mu   sync.RWMutex
	last *LocationEvent
}

// NewPublisher creates a publisher over a connected MQTT client. Prefix
// defaults to "roomsense".
func NewPublisher(client mqtt.Client, prefix string) *Publisher {
	if prefix == "" {
		prefix = "roomsense"
	}
	return &Publisher{client: client, prefix: prefix}
}

// PublishLocation publishes a location update to {prefix}/location.
func (p *Publisher) PublishLocation(update LocationUpdate) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	event := LocationEvent{
		Label:     update.Label,
		Status:    update.Status,
		Timestamp: update.Time.Unix(),
	}
	if update.Location != nil {
		event.NodeID = update.Location.Node.ID
		event.BuildingID = update.Location.Graph.BuildingID
		event.FloorID = update.Location.Graph.FloorID
		event.X = update.Location.Node.X
		event.Y = update.Location.Node.Y
	}

	p.mu.Lock()
	p.last = &event
	p.mu.Unlock()

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling location event: %w", err)
	}

	topic := fmt.Sprintf("%s/location", p.prefix)
	token := p.client.Publish(topic, 0, true, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}
	return nil
}

// PublishPrediction publishes one classifier result to
// {prefix}/prediction/{local|remote}.
func (p *Publisher) PublishPrediction(res *PredictionResult) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	payload, err := json.Marshal(struct {
		*PredictionResult
		Source string `json:"source"`
	}{res, res.Source.String()})
	if err != nil {
		return fmt.Errorf("marshaling prediction: %w", err)
	}

	topic := fmt.Sprintf("%s/prediction/%s", p.prefix, res.Source)
	token := p.client.Publish(topic, 0, false, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}
	return nil
}

// LastLocation returns the most recently published location event, or nil.
func (p *Publisher) LastLocation() *LocationEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last == nil {
		return nil
	}
	event := *p.last
	return &event
}
