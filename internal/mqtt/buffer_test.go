package mqtt

import (
	"testing"
)

func payloads(msgs []bufferedMsg) []byte {
	out := make([]byte, len(msgs))
	for i, m := range msgs {
		out[i] = m.payload[0]
	}
	return out
}

func TestOutboxEmptyTake(t *testing.T) {
	o := newOutbox(10)
	msgs, dropped := o.take()
	if msgs != nil || dropped != 0 {
		t.Errorf("expected nothing from empty outbox, got %d msgs, %d dropped", len(msgs), dropped)
	}
}

func TestOutboxKeepsOrder(t *testing.T) {
	o := newOutbox(10)
	for i := 0; i < 5; i++ {
		if o.add(bufferedMsg{topic: "t", payload: []byte{byte(i)}}) {
			t.Fatalf("add %d: unexpected drop", i)
		}
	}

	msgs, dropped := o.take()
	if dropped != 0 {
		t.Errorf("expected no drops, got %d", dropped)
	}
	if got := string(payloads(msgs)); got != "\x00\x01\x02\x03\x04" {
		t.Errorf("unexpected order: %v", []byte(got))
	}
	if o.size() != 0 {
		t.Errorf("expected empty outbox after take, got %d", o.size())
	}
}

func TestOutboxOverflowDropsOldest(t *testing.T) {
	o := newOutbox(3)
	drops := 0
	for i := 0; i < 5; i++ {
		if o.add(bufferedMsg{topic: "t", payload: []byte{byte(i)}}) {
			drops++
		}
	}
	if drops != 2 {
		t.Errorf("expected add to report 2 drops, got %d", drops)
	}

	msgs, dropped := o.take()
	if dropped != 2 {
		t.Errorf("expected 2 dropped, got %d", dropped)
	}
	if got := string(payloads(msgs)); got != "\x02\x03\x04" {
		t.Errorf("expected newest three, got %v", []byte(got))
	}

	if _, dropped := o.take(); dropped != 0 {
		t.Errorf("expected drop count reset after take, got %d", dropped)
	}
}

func TestOutboxReuseAfterTake(t *testing.T) {
	o := newOutbox(5)
	for i := 0; i < 3; i++ {
		o.add(bufferedMsg{topic: "t", payload: []byte{byte(i)}})
	}
	if msgs, _ := o.take(); len(msgs) != 3 {
		t.Fatalf("cycle 1: expected 3 messages, got %d", len(msgs))
	}

	for i := 10; i < 14; i++ {
		o.add(bufferedMsg{topic: "t", payload: []byte{byte(i)}})
	}
	msgs, _ := o.take()
	if got := string(payloads(msgs)); got != "\x0a\x0b\x0c\x0d" {
		t.Errorf("cycle 2: got %v", []byte(got))
	}
}

func TestOutboxPreservesFields(t *testing.T) {
	o := newOutbox(10)
	o.add(bufferedMsg{
		topic:    TopicSystem,
		payload:  []byte(`{"test":true}`),
		qos:      1,
		retained: true,
	})

	msgs, _ := o.take()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	m := msgs[0]
	if m.topic != TopicSystem || string(m.payload) != `{"test":true}` || m.qos != 1 || !m.retained {
		t.Errorf("fields not preserved: %+v", m)
	}
}
