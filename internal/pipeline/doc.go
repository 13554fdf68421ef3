// Package pipeline provides the node/queue framework that read-processing
// stages are built on.
//
// A Node owns a bounded input queue and a pool of worker goroutines that
// drain it, handing each message to the node's handler and forwarding
// results to a downstream Sink. Queue pushes block when the queue is full,
// which is the pipeline's backpressure point. Termination cascades: closing
// a node's queue lets its workers drain, and the last worker out propagates
// Terminate to the downstream sink, so a single Terminate on the entry node
// shuts the whole graph down in order without losing in-flight messages.
//
// Concrete message variants (simplex and duplex read records) are defined in
// internal/reads; nodes that receive a variant they do not handle log it and
// discard the message rather than aborting the pipeline.
package pipeline
