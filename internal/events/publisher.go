package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AnuragDani/gateway-decider/internal/httpclient"
	"github.com/AnuragDani/gateway-decider/internal/logger"
	"github.com/AnuragDani/gateway-decider/internal/telemetry"
)

// Event type constants
const (
	TypeDecision = "decision"
	TypeOutcome  = "outcome"
)

// EventsEndpoint is the path checkpoint records are posted to
const EventsEndpoint = "/internal/events"

// Event is the envelope posted to the telemetry collector
type Event struct {
	Type  string      `json:"type"`
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Publisher ships decider checkpoint records to an HTTP collector. Emit is
// fire and forget; at most maxInFlight posts run at once and records beyond
// that are dropped.
type Publisher struct {
	client   *httpclient.Client
	log      *logger.Logger
	timeout  time.Duration
	inFlight chan struct{}
	wg       sync.WaitGroup

	mu      sync.Mutex
	dropped int64
	failed  int64
}

const maxInFlight = 64

// NewPublisher creates a publisher posting to collectorURL
func NewPublisher(collectorURL string, log *logger.Logger) *Publisher {
	if log == nil {
		log = logger.Discard()
	}
	return &Publisher{
		client:   httpclient.NewClient(collectorURL, 5*time.Second),
		log:      log,
		timeout:  5 * time.Second,
		inFlight: make(chan struct{}, maxInFlight),
	}
}

// Publish sends one event and waits for the collector to accept it
func (p *Publisher) Publish(ctx context.Context, eventType, eventName string, data interface{}) error {
	event := Event{
		Type:  eventType,
		Event: eventName,
		Data:  data,
	}
	if err := p.client.Post(ctx, EventsEndpoint, event, nil); err != nil {
		return fmt.Errorf("failed to send event: %w", err)
	}
	return nil
}

// PublishAsync sends an event in the background. The caller's context is
// not used so the post outlives the request that produced it.
func (p *Publisher) PublishAsync(eventType, eventName string, data interface{}) {
	select {
	case p.inFlight <- struct{}{}:
	default:
		p.mu.Lock()
		p.dropped++
		p.mu.Unlock()
		return
	}

	p.wg.Add(1)
	go func() {
		defer func() {
			<-p.inFlight
			p.wg.Done()
		}()
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		if err := p.Publish(ctx, eventType, eventName, data); err != nil {
			p.mu.Lock()
			p.failed++
			p.mu.Unlock()
			p.log.Debug("telemetry_publish_failed", "event", eventName, "error", err)
		}
	}()
}

// Emit implements telemetry.Emitter
func (p *Publisher) Emit(_ context.Context, msg telemetry.MessageFormat) {
	p.PublishAsync(TypeDecision, msg.Stage, msg)
}

// Flush waits for in-flight posts to finish
func (p *Publisher) Flush() {
	p.wg.Wait()
}

// Stats reports how many records were dropped or failed to post
func (p *Publisher) Stats() map[string]int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return map[string]int64{
		"dropped": p.dropped,
		"failed":  p.failed,
	}
}
