package nav

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publisher pushes tick status to MQTT for external observers. QoS 0 with
// retained latest: dashboards reconnecting mid-run see the current state
// immediately.
type Publisher struct {
	client        mqtt.Client
	publishPrefix string
	qos           byte
	retain        bool

	mu   sync.Mutex
	last StatusUpdate
}

// NewPublisher creates a status publisher. A nil client disables publishing.
func NewPublisher(client mqtt.Client, prefix string) *Publisher {
	if prefix == "" {
		prefix = "autosky"
	}
	return &Publisher{
		client:        client,
		publishPrefix: prefix,
		qos:           0,
		retain:        true,
	}
}

// PublishStatus publishes one tick snapshot to <prefix>/status.
func (p *Publisher) PublishStatus(update StatusUpdate) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	p.mu.Lock()
	p.last = update
	p.mu.Unlock()

	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("marshaling status: %w", err)
	}

	topic := fmt.Sprintf("%s/status", p.publishPrefix)
	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}
	return nil
}

// PublishOutcome publishes the final run result to <prefix>/outcome.
func (p *Publisher) PublishOutcome(runID string, outcome Outcome) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	message := map[string]interface{}{
		"runId":     runID,
		"outcome":   outcome.String(),
		"timestamp": time.Now().Unix(),
	}
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshaling outcome: %w", err)
	}

	topic := fmt.Sprintf("%s/outcome", p.publishPrefix)
	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}
	log.Printf("Published outcome %s for run %s", outcome, runID)
	return nil
}

// Last returns the most recently published status.
func (p *Publisher) Last() StatusUpdate {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Relay consumes a status channel and publishes every update until the
// channel closes. Publish errors are logged and skipped; the run never
// stalls on broker trouble.
func (p *Publisher) Relay(ch <-chan StatusUpdate, tracker *StatusTracker) {
	for update := range ch {
		if tracker != nil {
			tracker.Set(update)
		}
		if p.client == nil {
			continue
		}
		if err := p.PublishStatus(update); err != nil {
			log.Printf("Status publish skipped: %v", err)
		}
	}
}
