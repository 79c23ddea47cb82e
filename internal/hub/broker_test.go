package hub

import (
	"testing"
)

// recordingSub collects delivered frames.
type recordingSub struct {
	frames []string
	topics []string
	reject bool
}

func (r *recordingSub) Deliver(topic string, frame []byte) bool {
	if r.reject {
		return false
	}
	r.topics = append(r.topics, topic)
	r.frames = append(r.frames, string(frame))
	return true
}

func TestPublishDeliversExactlyOnce(t *testing.T) {
	b := New()
	sub := &recordingSub{}
	b.Subscribe("arduino_3", sub)

	n := b.Publish("arduino_3", []byte("set_temperature 22.5"))

	if n != 1 {
		t.Fatalf("expected 1 delivery, got %d", n)
	}
	if len(sub.frames) != 1 || sub.frames[0] != "set_temperature 22.5" {
		t.Errorf("unexpected frames: %v", sub.frames)
	}
}

func TestPublishNoSubscriberIsNoop(t *testing.T) {
	b := New()
	if n := b.Publish("client_9", []byte("reading 21.9")); n != 0 {
		t.Errorf("expected 0 deliveries, got %d", n)
	}
}

func TestSubscribeTwiceDeliversOnce(t *testing.T) {
	b := New()
	sub := &recordingSub{}
	b.Subscribe("client_1", sub)
	b.Subscribe("client_1", sub)

	b.Publish("client_1", []byte("reading 21.9"))

	if len(sub.frames) != 1 {
		t.Errorf("expected single delivery, got %d", len(sub.frames))
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	sub := &recordingSub{}
	b.Subscribe("client_1", sub)
	b.Unsubscribe("client_1", sub)

	if n := b.Publish("client_1", []byte("x")); n != 0 {
		t.Errorf("expected 0 deliveries after unsubscribe, got %d", n)
	}

	// Unknown pairs are ignored.
	b.Unsubscribe("client_1", sub)
	b.Unsubscribe("nonexistent", sub)
}

func TestDropRemovesFromAllTopics(t *testing.T) {
	b := New()
	sub := &recordingSub{}
	other := &recordingSub{}
	b.Subscribe("client_1", sub)
	b.Subscribe("arduino_2", sub)
	b.Subscribe("arduino_2", other)

	b.Drop(sub)

	if n := b.Publish("client_1", []byte("x")); n != 0 {
		t.Errorf("dropped subscriber still reachable on client_1")
	}
	if n := b.Publish("arduino_2", []byte("y")); n != 1 {
		t.Errorf("expected other subscriber to remain, got %d deliveries", n)
	}
}

func TestRejectedDeliveryNotCounted(t *testing.T) {
	b := New()
	sub := &recordingSub{reject: true}
	b.Subscribe("arduino_1", sub)

	if n := b.Publish("arduino_1", []byte("x")); n != 0 {
		t.Errorf("rejected delivery should not count, got %d", n)
	}
}

func TestTopicNames(t *testing.T) {
	if got := ClientTopic(7); got != "client_7" {
		t.Errorf("ClientTopic(7) = %q", got)
	}
	if got := FarmTopic(12); got != "arduino_12" {
		t.Errorf("FarmTopic(12) = %q", got)
	}
}
