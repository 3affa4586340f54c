// Package stats maintains the worker's running counters, in-flight map,
// bounded completion history, and component-readiness registry. All of
// it is shared mutable state touched by concurrent handlers, so every
// update goes through an atomic or a short critical section; snapshots
// never block message processing.
package stats

import (
	"sync"
	"sync/atomic"
	"time"
)

// HistorySize bounds the completed-message ring buffer.
const HistorySize = 50

// Component names tracked by the readiness registry.
const (
	ComponentStore = "store"
	ComponentQueue = "queue"
	ComponentAI    = "aiServices"
)

// Component readiness states.
const (
	StatusNotInitialized = "not_initialized"
	StatusHealthy        = "healthy"
	StatusError          = "error"
)

// Summary is one completed message in the history ring.
type Summary struct {
	MessageID      string    `json:"messageId"`
	FileName       string    `json:"fileName"`
	Status         string    `json:"status"`
	Error          string    `json:"error,omitempty"`
	ProcessingTime float64   `json:"processingTime"`
	Timestamp      time.Time `json:"timestamp"`
}

// InFlight describes a message currently being processed.
type InFlight struct {
	FileName  string    `json:"fileName"`
	StartTime time.Time `json:"startTime"`
}

// ComponentStatus is one collaborator's readiness as seen by the health
// endpoint.
type ComponentStatus struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Snapshot is a point-in-time, read-only copy of the collector state.
type Snapshot struct {
	StartTime       time.Time           `json:"startTime"`
	TotalProcessed  int64               `json:"totalProcessed"`
	TotalSuccess    int64               `json:"totalSuccess"`
	TotalFailed     int64               `json:"totalFailed"`
	LastMessageTime *time.Time          `json:"lastMessageTime"`
	Processing      map[string]InFlight `json:"processingMessages"`
	History         []Summary           `json:"messageHistory"`
}

// Collector aggregates processing statistics and component readiness.
type Collector struct {
	startTime time.Time

	totalProcessed atomic.Int64
	totalSuccess   atomic.Int64
	totalFailed    atomic.Int64
	lastMessage    atomic.Int64 // unix nanos, 0 = never

	mu       sync.Mutex
	inflight map[string]InFlight
	history  []Summary

	compMu     sync.RWMutex
	components map[string]ComponentStatus
}

func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		inflight:  make(map[string]InFlight),
		components: map[string]ComponentStatus{
			ComponentStore: {Status: StatusNotInitialized},
			ComponentQueue: {Status: StatusNotInitialized},
			ComponentAI:    {Status: StatusNotInitialized},
		},
	}
}

// Begin registers a message as in flight.
func (c *Collector) Begin(messageID, fileName string) {
	c.mu.Lock()
	c.inflight[messageID] = InFlight{FileName: fileName, StartTime: time.Now()}
	c.mu.Unlock()
}

// Finish removes a message from the in-flight map and returns how long
// it was there. Unknown messages report zero elapsed time.
func (c *Collector) Finish(messageID string) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.inflight[messageID]
	if !ok {
		return 0
	}
	delete(c.inflight, messageID)
	return time.Since(entry.StartTime)
}

// Success records a completed message.
func (c *Collector) Success(messageID, fileName string, elapsed time.Duration) {
	c.totalProcessed.Add(1)
	c.totalSuccess.Add(1)
	c.lastMessage.Store(time.Now().UnixNano())
	c.push(Summary{
		MessageID:      messageID,
		FileName:       fileName,
		Status:         "success",
		ProcessingTime: elapsed.Seconds(),
		Timestamp:      time.Now().UTC(),
	})
}

// Failure records a terminally failed message.
func (c *Collector) Failure(messageID, fileName, errMsg string, elapsed time.Duration) {
	c.totalProcessed.Add(1)
	c.totalFailed.Add(1)
	c.lastMessage.Store(time.Now().UnixNano())
	c.push(Summary{
		MessageID:      messageID,
		FileName:       fileName,
		Status:         "failed",
		Error:          errMsg,
		ProcessingTime: elapsed.Seconds(),
		Timestamp:      time.Now().UTC(),
	})
}

func (c *Collector) push(s Summary) {
	c.mu.Lock()
	c.history = append(c.history, s)
	if len(c.history) > HistorySize {
		c.history = c.history[len(c.history)-HistorySize:]
	}
	c.mu.Unlock()
}

// SetComponent updates a collaborator's readiness.
func (c *Collector) SetComponent(name, status, detail string) {
	c.compMu.Lock()
	c.components[name] = ComponentStatus{Status: status, Detail: detail}
	c.compMu.Unlock()
}

// Components returns a copy of the readiness registry.
func (c *Collector) Components() map[string]ComponentStatus {
	c.compMu.RLock()
	defer c.compMu.RUnlock()

	out := make(map[string]ComponentStatus, len(c.components))
	for k, v := range c.components {
		out[k] = v
	}
	return out
}

// Healthy reports whether every registered collaborator is healthy.
func (c *Collector) Healthy() bool {
	c.compMu.RLock()
	defer c.compMu.RUnlock()

	for _, comp := range c.components {
		if comp.Status != StatusHealthy {
			return false
		}
	}
	return true
}

// Uptime returns how long the collector has existed.
func (c *Collector) Uptime() time.Duration {
	return time.Since(c.startTime)
}

// Snapshot copies the collector state without blocking handlers beyond
// the map/ring critical section.
func (c *Collector) Snapshot() Snapshot {
	snap := Snapshot{
		StartTime:      c.startTime,
		TotalProcessed: c.totalProcessed.Load(),
		TotalSuccess:   c.totalSuccess.Load(),
		TotalFailed:    c.totalFailed.Load(),
	}

	if nanos := c.lastMessage.Load(); nanos > 0 {
		t := time.Unix(0, nanos).UTC()
		snap.LastMessageTime = &t
	}

	c.mu.Lock()
	snap.Processing = make(map[string]InFlight, len(c.inflight))
	for k, v := range c.inflight {
		snap.Processing[k] = v
	}
	snap.History = make([]Summary, len(c.history))
	copy(snap.History, c.history)
	c.mu.Unlock()

	return snap
}
