// Package eventbus mirrors committed World events onto NATS JetStream as an
// optional, non-authoritative side channel (§4.5, §9 "Event-bus bridge").
// The bridge is never read from at boot and never sits on the mutation
// critical path: Mirror is fire-and-forget and its failure never fails the
// command it's mirroring.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// Subject is the JetStream subject every mirrored event is published under.
const Subject = "txxt.world.events"

// EventPayload is the JSON shape published to JetStream: enough for an
// external subscriber to reconstruct what happened without round-tripping
// through the binary wire codec.
type EventPayload struct {
	Kind     string `json:"kind"`
	Revision uint64 `json:"revision"`
	TaskID   string `json:"task_id"`
}

// Bridge wraps a NATS connection and JetStream context. A nil *Bridge is
// valid and Mirror on it is a no-op, so callers can construct the bridge
// once at startup (or leave it nil when nats_url is unconfigured) and call
// Mirror unconditionally from the session's handle_command path.
type Bridge struct {
	nc             *nats.Conn
	js             nats.JetStreamContext
	publishTimeout time.Duration
}

// Connect dials url and ensures a JetStream stream backs Subject. Returns
// nil, nil if url is empty — the bridge is optional (§9's non-goal carve-out:
// this mirrors events but never replicates authority). publishTimeout bounds
// how long the background wait started by Mirror waits for a publish
// acknowledgment before giving up and logging (5s when not positive);
// callers read it from Config.EventBusPublishTimeout.
func Connect(url string, publishTimeout time.Duration) (*Bridge, error) {
	if url == "" {
		return nil, nil
	}

	nc, err := nats.Connect(url, nats.Name("txxt"))
	if err != nil {
		return nil, fmt.Errorf("eventbus: connect to %s: %w", url, err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("eventbus: jetstream context: %w", err)
	}

	if _, err := js.StreamInfo("TXXT_EVENTS"); err != nil {
		_, err := js.AddStream(&nats.StreamConfig{
			Name:     "TXXT_EVENTS",
			Subjects: []string{Subject},
			MaxAge:   24 * time.Hour,
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("eventbus: create stream: %w", err)
		}
	}

	return &Bridge{nc: nc, js: js, publishTimeout: publishTimeout}, nil
}

// Mirror publishes payload to JetStream asynchronously: the caller does not
// wait for the acknowledgment, which a background goroutine awaits for up
// to publishTimeout. Any failure is logged and swallowed — the World is
// still authoritative and unaffected.
func (b *Bridge) Mirror(payload EventPayload) {
	if b == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("eventbus: marshal event %s: %v", payload.Kind, err)
		return
	}

	future, err := b.js.PublishAsync(Subject, data)
	if err != nil {
		log.Printf("eventbus: publish event %s: %v", payload.Kind, err)
		return
	}

	timeout := b.publishTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	go func() {
		select {
		case <-future.Ok():
		case err := <-future.Err():
			log.Printf("eventbus: async publish of %s failed: %v", payload.Kind, err)
		case <-time.After(timeout):
			log.Printf("eventbus: async publish of %s timed out waiting for ack", payload.Kind)
		}
	}()
}

// Close drains in-flight publishes and closes the NATS connection. Safe to
// call on a nil Bridge.
func (b *Bridge) Close(ctx context.Context) error {
	if b == nil {
		return nil
	}
	select {
	case <-b.js.PublishAsyncComplete():
	case <-ctx.Done():
	}
	b.nc.Close()
	return nil
}
