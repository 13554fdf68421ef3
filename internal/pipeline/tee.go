package pipeline

// Tee fans one stream out to several sinks. It registers itself as a
// producer on each sink, so fan-in termination counting downstream stays
// correct when a sink is also fed by another branch.
//
// Every sink receives the same message value. Branches must either treat
// teed messages as read-only or coordinate which branch owns which fields.
type Tee struct {
	sinks []Sink
}

// NewTee wires a tee in front of the given sinks.
func NewTee(sinks ...Sink) *Tee {
	t := &Tee{sinks: sinks}
	for _, s := range sinks {
		if pa, ok := s.(producerAware); ok {
			pa.registerProducer()
		}
	}
	return t
}

// Push delivers msg to every sink, stopping at the first failure.
func (t *Tee) Push(msg Message) error {
	for _, s := range t.sinks {
		if err := s.Push(msg); err != nil {
			return err
		}
	}
	return nil
}

// Terminate terminates every sink in wiring order.
func (t *Tee) Terminate() {
	for _, s := range t.sinks {
		s.Terminate()
	}
}

// Restart reopens every sink.
func (t *Tee) Restart() {
	for _, s := range t.sinks {
		s.Restart()
	}
}
