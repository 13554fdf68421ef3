package pipeline

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// Sink accepts messages from upstream nodes. Both pipeline nodes and
// terminal consumers (writers, collectors) implement it.
type Sink interface {
	// Push delivers a message. It may block while the sink applies
	// backpressure and returns ErrTerminated once the sink has shut down.
	Push(msg Message) error
	// Terminate stops the sink: no further pushes are accepted and in-flight
	// work is drained before the call returns. Terminate is idempotent.
	Terminate()
	// Restart reopens a terminated sink for reuse.
	Restart()
}

// producerAware is implemented by sinks that need to know how many upstream
// producers feed them, so that a fan-in node only terminates after every
// producer has terminated.
type producerAware interface {
	registerProducer()
}

// Handler processes one message on a node's worker goroutine. The handler
// owns the message exclusively and forwards any results downstream itself.
type Handler func(msg Message)

// NodeConfig configures a pipeline Node.
type NodeConfig struct {
	Name      string // used in log output
	QueueSize int    // bounded input queue capacity (default 1000)
	Workers   int    // worker pool size (default runtime.NumCPU())
	Sink      Sink   // downstream sink; nil for terminal nodes
	Handle    Handler

	// OnStart, if set, runs on every Start and Restart before the worker
	// pool launches. Nodes with auxiliary goroutines (dispatchers) spawn
	// them here so Restart brings them back too.
	OnStart func()

	// OnDrained, if set, runs once per termination on the last worker to
	// exit, after the input queue has fully drained and before Terminate is
	// propagated downstream. Nodes with auxiliary goroutines (dispatchers)
	// or buffered state to flush hook in here.
	OnDrained func()
}

// Node is the base pipeline stage: a bounded input queue drained by a pool
// of worker goroutines. Concrete stages supply the handler; Node supplies
// queueing, backpressure, and the multi-worker termination protocol.
type Node struct {
	name     string
	queue    *Queue
	sink     Sink
	workers  int
	handle   Handler
	starting func()
	drained  func()

	// wiredProducers counts upstream nodes feeding this one; termination
	// only proceeds once the last of them has terminated.
	wiredProducers int
	remaining      atomic.Int32

	active atomic.Int32
	wg     sync.WaitGroup
}

// NewNode validates the config, fills in defaults and registers the node as
// a producer on its sink. Start must be called before messages flow.
func NewNode(cfg NodeConfig) (*Node, error) {
	if cfg.Handle == nil {
		return nil, fmt.Errorf("pipeline: node %q has no handler", cfg.Name)
	}
	if cfg.Name == "" {
		return nil, fmt.Errorf("pipeline: node has no name")
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = 1000
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	n := &Node{
		name:     cfg.Name,
		queue:    NewQueue(cfg.QueueSize),
		sink:     cfg.Sink,
		workers:  cfg.Workers,
		handle:   cfg.Handle,
		starting: cfg.OnStart,
		drained:  cfg.OnDrained,
	}
	if pa, ok := cfg.Sink.(producerAware); ok {
		pa.registerProducer()
	}
	return n, nil
}

// Name returns the node's configured name.
func (n *Node) Name() string { return n.name }

func (n *Node) registerProducer() {
	n.wiredProducers++
	n.remaining.Store(int32(n.wiredProducers))
}

// Start launches the worker pool.
func (n *Node) Start() {
	if n.starting != nil {
		n.starting()
	}
	n.remaining.Store(int32(n.wiredProducers))
	n.active.Store(int32(n.workers))
	for i := 0; i < n.workers; i++ {
		n.wg.Add(1)
		go n.worker()
	}
}

func (n *Node) worker() {
	defer n.wg.Done()
	for {
		msg, ok := n.queue.Pop()
		if !ok {
			break
		}
		tracef("%s: handling %T", n.name, msg)
		n.handle(msg)
	}
	// Only the worker that drives the counter to zero flushes and
	// propagates termination, so the sink sees exactly one Terminate and
	// only after every in-flight message for this node has drained.
	if n.active.Add(-1) == 0 {
		if n.drained != nil {
			n.drained()
		}
		if n.sink != nil {
			n.sink.Terminate()
		}
	}
}

// Push enqueues a message, blocking while the input queue is full.
func (n *Node) Push(msg Message) error {
	return n.queue.Push(msg)
}

// Terminate closes the input queue, waits for the workers to drain it, and
// lets the last worker propagate termination downstream. For fan-in nodes
// this only takes effect once every wired producer has terminated.
// Terminate is idempotent and returns only after the node (and everything
// downstream of it) has fully shut down.
func (n *Node) Terminate() {
	if n.wiredProducers > 0 && n.remaining.Add(-1) > 0 {
		return
	}
	n.queue.Close()
	n.wg.Wait()
}

// Restart reopens the input queue and relaunches the worker pool so the
// node can be reused after Terminate.
func (n *Node) Restart() {
	n.queue.Reopen()
	n.Start()
}

// Forward pushes msg to the node's sink and logs delivery failures. Nodes
// use it for results whose loss is an error rather than expected shedding.
func (n *Node) Forward(msg Message) {
	if n.sink == nil {
		return
	}
	if err := n.sink.Push(msg); err != nil {
		opsf("[%s] dropped message: %v", n.name, err)
	}
}

// DiscardUnexpected logs and drops a message variant the node does not
// handle. Unexpected variants are node-local errors, never pipeline-fatal.
func (n *Node) DiscardUnexpected(msg Message) {
	opsf("[%s] discarding unexpected message type %T", n.name, msg)
}
