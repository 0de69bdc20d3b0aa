// Package metrics provides in-process counters for a worker session.
//
// The Collector accumulates counters from startup until shutdown. It is a
// leaf package with no internal dependencies. The worker logs a Snapshot on
// exit; counters are never persisted.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all worker counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Dispatch
	EventsReceived  int64
	EventsDiscarded int64

	// Config registry
	ConfigsRegistered int64
	ConfigsRemoved    int64
	ConfigsRejected   int64

	// Job lifecycle
	JobsStarted   int64
	JobsSucceeded int64
	JobsFailed    int64
	JobsByHandler map[string]int64

	// Progress tracker
	TrackerLinesRelayed int64
	TrackerLinesDropped int64

	// Outbound messaging
	MessagesPublished int64
	MessagesFailed    int64

	// Dimensions (informational, set at construction)
	Worker  string
	Bucket  string
	Backend string
}

// Collector accumulates counters for a worker session.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	// Dispatch
	eventsReceived  int64
	eventsDiscarded int64

	// Config registry
	configsRegistered int64
	configsRemoved    int64
	configsRejected   int64

	// Job lifecycle
	jobsStarted   int64
	jobsSucceeded int64
	jobsFailed    int64
	jobsByHandler map[string]int64

	// Progress tracker
	trackerLinesRelayed int64
	trackerLinesDropped int64

	// Outbound messaging
	messagesPublished int64
	messagesFailed    int64

	// Dimensions
	worker  string
	bucket  string
	backend string
}

// NewCollector creates a Collector with dimension labels: the worker name,
// the bucket it watches, and the outbound messaging backend.
func NewCollector(worker, bucket, backend string) *Collector {
	return &Collector{
		jobsByHandler: make(map[string]int64),
		worker:        worker,
		bucket:        bucket,
		backend:       backend,
	}
}

// --- Dispatch ---

// IncEventReceived records a notification delivered to the dispatcher.
func (c *Collector) IncEventReceived() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.eventsReceived++
	c.mu.Unlock()
}

// IncEventDiscarded records a notification that could not be parsed.
func (c *Collector) IncEventDiscarded() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.eventsDiscarded++
	c.mu.Unlock()
}

// --- Config registry ---

// IncConfigRegistered records a processor config accepted into the registry.
func (c *Collector) IncConfigRegistered() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.configsRegistered++
	c.mu.Unlock()
}

// IncConfigRemoved records a processor config dropped from the registry.
func (c *Collector) IncConfigRemoved() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.configsRemoved++
	c.mu.Unlock()
}

// IncConfigRejected records a processor config that failed validation.
func (c *Collector) IncConfigRejected() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.configsRejected++
	c.mu.Unlock()
}

// --- Job lifecycle ---

// IncJobStarted records a claimed data file. The handler label is either
// "shell" or the registered handler name.
func (c *Collector) IncJobStarted(handler string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.jobsStarted++
	c.jobsByHandler[handler]++
	c.mu.Unlock()
}

// IncJobSucceeded records a job whose file reached the archive directory.
func (c *Collector) IncJobSucceeded() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.jobsSucceeded++
	c.mu.Unlock()
}

// IncJobFailed records a job whose file reached the error directory.
func (c *Collector) IncJobFailed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.jobsFailed++
	c.mu.Unlock()
}

// --- Progress tracker ---

// IncTrackerLineRelayed records a pipe line converted into an update message.
func (c *Collector) IncTrackerLineRelayed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.trackerLinesRelayed++
	c.mu.Unlock()
}

// IncTrackerLineDropped records a malformed or out-of-range pipe line.
func (c *Collector) IncTrackerLineDropped() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.trackerLinesDropped++
	c.mu.Unlock()
}

// --- Outbound messaging ---

// IncMessagePublished records a lifecycle message handed to the producer.
func (c *Collector) IncMessagePublished() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.messagesPublished++
	c.mu.Unlock()
}

// IncMessageFailed records a lifecycle message the producer could not send.
func (c *Collector) IncMessageFailed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.messagesFailed++
	c.mu.Unlock()
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all counters.
// The returned Snapshot is safe to read concurrently; the Collector can
// continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	byHandler := make(map[string]int64, len(c.jobsByHandler))
	for k, v := range c.jobsByHandler {
		byHandler[k] = v
	}

	return Snapshot{
		EventsReceived:  c.eventsReceived,
		EventsDiscarded: c.eventsDiscarded,

		ConfigsRegistered: c.configsRegistered,
		ConfigsRemoved:    c.configsRemoved,
		ConfigsRejected:   c.configsRejected,

		JobsStarted:   c.jobsStarted,
		JobsSucceeded: c.jobsSucceeded,
		JobsFailed:    c.jobsFailed,
		JobsByHandler: byHandler,

		TrackerLinesRelayed: c.trackerLinesRelayed,
		TrackerLinesDropped: c.trackerLinesDropped,

		MessagesPublished: c.messagesPublished,
		MessagesFailed:    c.messagesFailed,

		Worker:  c.worker,
		Bucket:  c.bucket,
		Backend: c.backend,
	}
}
