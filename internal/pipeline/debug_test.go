package pipeline

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestWorkerEmitsPerMessageTrace(t *testing.T) {
	var trace bytes.Buffer
	SetLogWriters(nil, nil, &trace)
	defer SetLogWriters(os.Stderr, nil, nil)

	n, err := NewNode(NodeConfig{
		Name:    "traced",
		Workers: 1,
		Sink:    NewCollector(),
		Handle:  func(Message) {},
	})
	if err != nil {
		t.Fatal(err)
	}
	n.Start()
	if err := n.Push("payload"); err != nil {
		t.Fatal(err)
	}
	n.Terminate()

	if got := trace.String(); !strings.Contains(got, "traced: handling") {
		t.Errorf("trace stream missing per-message line, got %q", got)
	}
}
