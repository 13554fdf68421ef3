package pipeline

import (
	"sync/atomic"
	"testing"
)

// countingSink records pushes and terminate calls for protocol assertions.
type countingSink struct {
	Collector
	terminates atomic.Int32
}

func (s *countingSink) Terminate() {
	s.terminates.Add(1)
	s.Collector.Terminate()
}

func TestNodeProcessesAndForwards(t *testing.T) {
	sink := NewCollector()
	var n *Node
	n, err := NewNode(NodeConfig{
		Name:    "doubler",
		Workers: 4,
		Sink:    sink,
		Handle: func(msg Message) {
			n.Forward(msg.(int) * 2)
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	n.Start()

	for i := 1; i <= 100; i++ {
		if err := n.Push(i); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	n.Terminate()

	got := sink.Messages()
	if len(got) != 100 {
		t.Fatalf("forwarded %d messages, want 100", len(got))
	}
	sum := 0
	for _, m := range got {
		sum += m.(int)
	}
	if want := 2 * (100 * 101 / 2); sum != want {
		t.Errorf("sum of outputs = %d, want %d", sum, want)
	}
}

func TestNodeLastWorkerTerminatesSinkOnce(t *testing.T) {
	sink := &countingSink{}
	n, err := NewNode(NodeConfig{
		Name:    "fanout",
		Workers: 8,
		Sink:    sink,
		Handle:  func(Message) {},
	})
	if err != nil {
		t.Fatal(err)
	}
	n.Start()
	for i := 0; i < 64; i++ {
		n.Push(i)
	}
	n.Terminate()
	n.Terminate() // idempotent

	if got := sink.terminates.Load(); got != 1 {
		t.Errorf("sink terminated %d times, want exactly 1", got)
	}
}

func TestNodeOnDrainedRunsBeforeDownstreamTerminate(t *testing.T) {
	sink := &countingSink{}
	var flushedBeforeTerminate atomic.Bool
	n, err := NewNode(NodeConfig{
		Name:    "flusher",
		Workers: 3,
		Sink:    sink,
		Handle:  func(Message) {},
		OnDrained: func() {
			flushedBeforeTerminate.Store(sink.terminates.Load() == 0)
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	n.Start()
	n.Push("x")
	n.Terminate()

	if !flushedBeforeTerminate.Load() {
		t.Error("OnDrained ran after the sink was terminated")
	}
	if sink.terminates.Load() != 1 {
		t.Errorf("sink terminated %d times, want 1", sink.terminates.Load())
	}
}

func TestNodeFanInTerminatesAfterAllProducers(t *testing.T) {
	sink := &countingSink{}
	join, err := NewNode(NodeConfig{
		Name:    "join",
		Workers: 2,
		Sink:    sink,
		Handle:  func(Message) {},
	})
	if err != nil {
		t.Fatal(err)
	}

	mkProducer := func(name string) *Node {
		p, err := NewNode(NodeConfig{
			Name:    name,
			Workers: 2,
			Sink:    join,
			Handle: func(msg Message) {
				join.Push(msg)
			},
		})
		if err != nil {
			t.Fatal(err)
		}
		return p
	}
	left := mkProducer("left")
	right := mkProducer("right")

	join.Start()
	left.Start()
	right.Start()

	for i := 0; i < 50; i++ {
		left.Push(i)
		right.Push(i)
	}

	// Terminating one producer must not close the shared sink node while
	// the other producer is still live.
	left.Terminate()
	if err := right.Push(999); err != nil {
		t.Fatalf("push via surviving producer after peer terminated: %v", err)
	}
	right.Terminate()

	if got := len(sink.Messages()); got != 101 {
		t.Errorf("join forwarded %d messages, want 101", got)
	}
	if got := sink.terminates.Load(); got != 1 {
		t.Errorf("sink terminated %d times, want 1", got)
	}
}

func TestNodeRestart(t *testing.T) {
	sink := NewCollector()
	var n *Node
	n, err := NewNode(NodeConfig{
		Name:    "echo",
		Workers: 2,
		Sink:    sink,
		Handle:  func(msg Message) { n.Forward(msg) },
	})
	if err != nil {
		t.Fatal(err)
	}
	n.Start()
	n.Push(1)
	n.Terminate()

	if err := n.Push(2); err != ErrTerminated {
		t.Fatalf("push after terminate: err = %v, want ErrTerminated", err)
	}

	sink.Restart()
	n.Restart()
	if err := n.Push(3); err != nil {
		t.Fatalf("push after restart: %v", err)
	}
	n.Terminate()

	if got := len(sink.Messages()); got != 2 {
		t.Errorf("collected %d messages across restart, want 2", got)
	}
}

func TestNodeConfigValidation(t *testing.T) {
	if _, err := NewNode(NodeConfig{Name: "nohandler"}); err == nil {
		t.Error("node without handler was accepted")
	}
	if _, err := NewNode(NodeConfig{Handle: func(Message) {}}); err == nil {
		t.Error("node without name was accepted")
	}
}

func TestGraphLifecycle(t *testing.T) {
	sink := NewCollector()
	var tail *Node
	tail, err := NewNode(NodeConfig{
		Name: "tail", Workers: 1, Sink: sink,
		Handle: func(msg Message) { tail.Forward(msg) },
	})
	if err != nil {
		t.Fatal(err)
	}
	head, err := NewNode(NodeConfig{
		Name: "head", Workers: 2, Sink: tail,
		Handle: func(msg Message) { tail.Push(msg) },
	})
	if err != nil {
		t.Fatal(err)
	}

	g := NewGraph()
	if err := g.Add(tail); err != nil {
		t.Fatal(err)
	}
	if err := g.Add(head); err != nil {
		t.Fatal(err)
	}
	if err := g.Add(head); err == nil {
		t.Error("duplicate node name was accepted")
	}
	if err := g.SetEntry("nope"); err == nil {
		t.Error("unknown entry node was accepted")
	}
	if err := g.SetEntry("head"); err != nil {
		t.Fatal(err)
	}
	if err := g.Start(); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 10; i++ {
		if err := g.Source().Push(i); err != nil {
			t.Fatalf("push: %v", err)
		}
	}
	g.Stop()

	if got := len(sink.Messages()); got != 10 {
		t.Errorf("sink received %d messages, want 10", got)
	}
	if !sink.Terminated() {
		t.Error("terminal sink was not terminated by cascade")
	}
}

func TestGraphStartValidation(t *testing.T) {
	g := NewGraph()
	if err := g.Start(); err == nil {
		t.Error("empty graph started")
	}
	n, _ := NewNode(NodeConfig{Name: "n", Handle: func(Message) {}})
	g.Add(n)
	if err := g.Start(); err == nil {
		t.Error("graph without entry started")
	}
}
