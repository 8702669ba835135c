package mqtt

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox holds messages published while the broker is unreachable. When
// full, the oldest message is discarded. Not safe for concurrent use.
type outbox struct {
	msgs    []bufferedMsg
	limit   int
	dropped int
}

func newOutbox(limit int) *outbox {
	return &outbox{limit: limit}
}

// add queues msg and reports whether an older message was discarded.
func (o *outbox) add(msg bufferedMsg) bool {
	if len(o.msgs) < o.limit {
		o.msgs = append(o.msgs, msg)
		return false
	}
	copy(o.msgs, o.msgs[1:])
	o.msgs[len(o.msgs)-1] = msg
	o.dropped++
	return true
}

// take returns queued messages oldest first, with the number discarded
// since the last take, and empties the outbox.
func (o *outbox) take() ([]bufferedMsg, int) {
	msgs, dropped := o.msgs, o.dropped
	o.msgs = nil
	o.dropped = 0
	return msgs, dropped
}

func (o *outbox) size() int {
	return len(o.msgs)
}
