package jigsaw

import (
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publisher publishes solve results to MQTT
type Publisher struct {
	client        mqtt.Client
	publishPrefix string
	qos           byte
	retain        bool
	results       map[string]*Result
	mu            sync.RWMutex
}

// NewPublisher creates a new result publisher
// If client is nil, publishing is disabled (for testing)
func NewPublisher(client mqtt.Client, prefix string) *Publisher {
	prefix = envOr("MQTT_PUBLISH_PREFIX", prefix)
	if prefix == "" {
		prefix = "tilemesh"
	}

	return &Publisher{
		client:        client,
		publishPrefix: prefix,
		qos:           1,
		retain:        true, // Retain so late subscribers see the last result
		results:       make(map[string]*Result),
	}
}

// PublishResult publishes a result to <prefix>/<puzzleID>/result and the
// combined <prefix>/results topic
func (p *Publisher) PublishResult(res *Result) error {
	if res == nil {
		return fmt.Errorf("result is nil")
	}

	p.mu.Lock()
	stored := *res
	p.results[res.PuzzleID] = &stored
	p.mu.Unlock()

	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	if err := p.publishIndividual(&stored); err != nil {
		log.Printf("Error publishing result for %s: %v", res.PuzzleID, err)
		return err
	}

	if err := p.publishCombined(); err != nil {
		log.Printf("Error publishing combined results: %v", err)
		return err
	}

	return nil
}

// PublishError reports a failed solve on <prefix>/<puzzleID>/error
func (p *Publisher) PublishError(puzzleID string, solveErr error) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	payload, err := json.Marshal(map[string]interface{}{
		"puzzleId":  puzzleID,
		"error":     solveErr.Error(),
		"timestamp": time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshaling error: %w", err)
	}

	topic := fmt.Sprintf("%s/%s/error", p.publishPrefix, puzzleID)
	return p.publish(topic, payload, false)
}

func (p *Publisher) publishIndividual(res *Result) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}

	topic := fmt.Sprintf("%s/%s/result", p.publishPrefix, res.PuzzleID)
	if err := p.publish(topic, payload, p.retain); err != nil {
		return err
	}

	log.Printf("Published result for %s: checksum=%d roughness=%d", res.PuzzleID, res.Checksum, res.Roughness)
	return nil
}

func (p *Publisher) publishCombined() error {
	results := p.GetAllResults()
	if len(results) == 0 {
		return nil
	}

	list := make([]*Result, 0, len(results))
	for _, r := range results {
		list = append(list, r)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].PuzzleID < list[j].PuzzleID })

	message := map[string]interface{}{
		"results":   list,
		"timestamp": time.Now().Unix(),
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshaling combined results: %w", err)
	}

	return p.publish(fmt.Sprintf("%s/results", p.publishPrefix), payload, p.retain)
}

func (p *Publisher) publish(topic string, payload []byte, retain bool) error {
	token := p.client.Publish(topic, p.qos, retain, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}
	return nil
}

// GetResult returns the last result recorded for a puzzle
func (p *Publisher) GetResult(puzzleID string) (*Result, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	res, ok := p.results[puzzleID]
	return res, ok
}

// GetAllResults returns copies of all recorded results
func (p *Publisher) GetAllResults() map[string]*Result {
	p.mu.RLock()
	defer p.mu.RUnlock()

	results := make(map[string]*Result, len(p.results))
	for id, r := range p.results {
		rc := *r
		results[id] = &rc
	}
	return results
}

// SetQoS sets the Quality of Service level for publishing (0, 1, or 2)
func (p *Publisher) SetQoS(qos byte) {
	if qos <= 2 {
		p.qos = qos
	}
}

// SetRetain sets whether published results should be retained by the broker
func (p *Publisher) SetRetain(retain bool) {
	p.retain = retain
}

// Prefix returns the topic prefix in use
func (p *Publisher) Prefix() string {
	return p.publishPrefix
}
