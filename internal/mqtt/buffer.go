package mqtt

import "log"

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// backlog holds messages that could not be sent, oldest first. When full the
// oldest message is evicted. Not safe for concurrent use.
type backlog struct {
	items   []bufferedMsg
	start   int // index of the oldest message
	n       int
	dropped uint64
	warned  bool // set once per fill so a long outage logs a single line
}

func newBacklog(capacity int) *backlog {
	if capacity < 1 {
		capacity = 1
	}
	return &backlog{items: make([]bufferedMsg, capacity)}
}

// push appends msg and reports whether an older message was evicted.
func (b *backlog) push(msg bufferedMsg) bool {
	c := len(b.items)
	if b.n < c {
		b.items[(b.start+b.n)%c] = msg
		b.n++
		return false
	}

	if !b.warned {
		log.Printf("mqtt: backlog full (%d messages), dropping oldest", c)
		b.warned = true
	}
	b.items[b.start] = msg
	b.start = (b.start + 1) % c
	b.dropped++
	return true
}

// drain removes and returns every message, oldest first.
func (b *backlog) drain() []bufferedMsg {
	if b.n == 0 {
		return nil
	}

	c := len(b.items)
	out := make([]bufferedMsg, b.n)
	for i := range out {
		j := (b.start + i) % c
		out[i] = b.items[j]
		b.items[j] = bufferedMsg{}
	}
	b.start, b.n = 0, 0
	b.warned = false
	return out
}

func (b *backlog) len() int {
	return b.n
}
