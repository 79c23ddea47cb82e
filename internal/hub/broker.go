// Package hub implements the topic-based pub/sub fabric bridging client and
// farm sockets.
//
// Two topic families exist: "client_<sid>" carries traffic destined for a
// human client, "arduino_<sid>" carries traffic destined for a farm device,
// where <sid> is a session ID. Every publish targets a single topic;
// publishing to a topic with no subscriber is a no-op.
package hub

import (
	"fmt"
	"sync"
)

// Subscriber receives frames published to topics it subscribed to.
// Deliver must not block; it reports false if the frame was dropped.
type Subscriber interface {
	Deliver(topic string, frame []byte) bool
}

// Broker routes published frames to topic subscribers.
// Safe for concurrent use.
type Broker struct {
	mu     sync.RWMutex
	topics map[string]map[Subscriber]struct{}
}

// New creates an empty broker.
func New() *Broker {
	return &Broker{
		topics: make(map[string]map[Subscriber]struct{}),
	}
}

// Subscribe adds sub to a topic. Subscribing twice is a no-op.
func (b *Broker) Subscribe(topic string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.topics[topic]
	if !ok {
		subs = make(map[Subscriber]struct{})
		b.topics[topic] = subs
	}
	subs[sub] = struct{}{}
}

// Unsubscribe removes sub from a topic. Unknown pairs are ignored.
func (b *Broker) Unsubscribe(topic string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.topics[topic]
	if !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(b.topics, topic)
	}
}

// Drop removes sub from every topic. Called on socket close.
func (b *Broker) Drop(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for topic, subs := range b.topics {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(b.topics, topic)
		}
	}
}

// Publish delivers the frame to every subscriber of the topic, best-effort.
// Returns the number of subscribers the frame was delivered to; zero when
// the topic has no subscribers.
func (b *Broker) Publish(topic string, frame []byte) int {
	b.mu.RLock()
	var targets []Subscriber
	for sub := range b.topics[topic] {
		targets = append(targets, sub)
	}
	b.mu.RUnlock()

	delivered := 0
	for _, sub := range targets {
		if sub.Deliver(topic, frame) {
			delivered++
		}
	}
	return delivered
}

// ClientTopic returns the topic carrying traffic destined for the client
// that owns the session.
func ClientTopic(sessionID uint) string {
	return fmt.Sprintf("client_%d", sessionID)
}

// FarmTopic returns the topic carrying traffic destined for the farm device
// behind the session.
func FarmTopic(sessionID uint) string {
	return fmt.Sprintf("arduino_%d", sessionID)
}
