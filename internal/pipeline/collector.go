package pipeline

import "sync"

// Collector is a terminal sink that buffers every message it receives.
// Used as the downstream endpoint in tests and small offline runs.
type Collector struct {
	mu         sync.Mutex
	messages   []Message
	terminated bool

	wired     int
	remaining int
}

// NewCollector returns an empty collector.
func NewCollector() *Collector { return &Collector{} }

func (c *Collector) registerProducer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wired++
	c.remaining = c.wired
}

// Push appends the message to the collector's buffer.
func (c *Collector) Push(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.terminated {
		return ErrTerminated
	}
	c.messages = append(c.messages, msg)
	return nil
}

// Terminate marks the collector closed once every wired producer has
// terminated. Idempotent once closed.
func (c *Collector) Terminate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.remaining > 0 {
		c.remaining--
		if c.remaining > 0 {
			return
		}
	}
	c.terminated = true
}

// Restart reopens the collector without clearing collected messages.
func (c *Collector) Restart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.terminated = false
	c.remaining = c.wired
}

// Messages returns a snapshot of everything collected so far.
func (c *Collector) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Terminated reports whether the collector has fully terminated.
func (c *Collector) Terminated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.terminated
}
