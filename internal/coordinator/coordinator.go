// Package coordinator gates concurrent invocations of the data
// collection operations (catalog imports, cloud sync, migration).
//
// At most one instance of each operation type runs at a time; different
// types run concurrently. A request arriving while its type is already
// running is dropped, not queued, with two exceptions:
//
//   - First-install: one designated operation runs synchronously before
//     anything else; requests for other types arriving in that window
//     are queued and released in parallel when it completes.
//   - Year change: a signal clears all running and queued state and
//     drops every normal request until the matching completion signal;
//     override requests always run.
//
// Two near-simultaneous "is this running?" checks racing is exactly the
// bug class this package exists to prevent, so the running set is only
// ever touched under one mutex.
package coordinator

import (
	"log"
	"os"
	"sync"
)

// OpType tags one of the mutually exclusive background jobs.
type OpType string

// The operation types the application schedules.
const (
	OpBandImport  OpType = "bandImport"
	OpEventImport OpType = "eventImport"
	OpCloudSync   OpType = "cloudSync"
	OpMigration   OpType = "migration"
)

type queuedRequest struct {
	op OpType
	fn func()
}

// Coordinator serializes operations per type.
type Coordinator struct {
	logger *log.Logger

	mu sync.Mutex
	// running maps an in-flight type to the generation it started in.
	// A completion only clears its entry when the generation still
	// matches, so an operation abandoned by a year change cannot
	// resurrect state when it eventually finishes.
	running    map[OpType]uint64
	generation uint64
	firstRun   bool
	queued     []queuedRequest
	yearChange bool

	wg sync.WaitGroup
}

// New creates a coordinator.
// If logger is nil, a default stderr logger is used.
func New(logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = log.New(os.Stderr, "[coordinator] ", log.LstdFlags)
	}
	return &Coordinator{
		logger:  logger,
		running: make(map[OpType]uint64),
	}
}

// Request schedules fn on a background goroutine if op is not already
// running. Returns false when the request was dropped (already running,
// or a year change is in progress) or true when it was accepted —
// including the first-install case where it is queued for later.
func (c *Coordinator) Request(op OpType, fn func()) bool {
	c.mu.Lock()

	if c.yearChange {
		c.mu.Unlock()
		c.logger.Printf("Dropping %s: year change in progress", op)
		return false
	}

	if c.firstRun {
		// Held until the designated first-install operation completes.
		for _, q := range c.queued {
			if q.op == op {
				c.mu.Unlock()
				c.logger.Printf("Dropping %s: already queued behind first-install", op)
				return false
			}
		}
		c.queued = append(c.queued, queuedRequest{op: op, fn: fn})
		c.mu.Unlock()
		return true
	}

	if _, ok := c.running[op]; ok {
		c.mu.Unlock()
		c.logger.Printf("Dropping %s: already running", op)
		return false
	}

	c.start(op, fn)
	c.mu.Unlock()
	return true
}

// Override schedules fn regardless of an in-progress year change.
// Per-type exclusion still applies against other current-generation
// work. Used by the year-change flow itself to rebuild the catalog.
func (c *Coordinator) Override(op OpType, fn func()) bool {
	c.mu.Lock()
	if _, ok := c.running[op]; ok {
		c.mu.Unlock()
		c.logger.Printf("Dropping override %s: already running", op)
		return false
	}
	c.start(op, fn)
	c.mu.Unlock()
	return true
}

// start marks op running and spawns fn. Caller holds c.mu.
func (c *Coordinator) start(op OpType, fn func()) {
	gen := c.generation
	c.running[op] = gen
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn()
		c.finish(op, gen)
	}()
}

func (c *Coordinator) finish(op OpType, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if current, ok := c.running[op]; ok && current == gen {
		delete(c.running, op)
	}
}

// RunFirst runs the designated first-install operation synchronously on
// the calling goroutine. Requests for other types arriving while it
// runs are queued; when it completes they are released in parallel.
func (c *Coordinator) RunFirst(op OpType, fn func()) {
	c.mu.Lock()
	if c.firstRun {
		c.mu.Unlock()
		c.logger.Printf("Dropping first-install %s: already in the first-install window", op)
		return
	}
	gen := c.generation
	c.firstRun = true
	c.running[op] = gen
	c.mu.Unlock()

	fn()

	c.mu.Lock()
	if current, ok := c.running[op]; ok && current == gen {
		delete(c.running, op)
	}
	c.firstRun = false
	released := c.queued
	c.queued = nil
	for _, q := range released {
		if c.yearChange {
			c.logger.Printf("Dropping queued %s: year change in progress", q.op)
			continue
		}
		if _, ok := c.running[q.op]; ok {
			continue
		}
		c.start(q.op, q.fn)
	}
	c.mu.Unlock()
}

// BeginYearChange clears all running and queued state and drops every
// normal request until EndYearChange. In-flight operations are not
// interrupted, but their completions no longer touch coordinator state,
// and long-running work is expected to poll YearChangeActive at safe
// checkpoints and abort.
func (c *Coordinator) BeginYearChange() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.running = make(map[OpType]uint64)
	c.queued = nil
	c.yearChange = true
	c.logger.Printf("Year change started: cleared all operation state")
}

// EndYearChange lifts the year-change gate.
func (c *Coordinator) EndYearChange() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.yearChange = false
	c.logger.Printf("Year change completed")
}

// YearChangeActive reports whether a year change is in progress.
// Long-running operations use this as their abort checkpoint.
func (c *Coordinator) YearChangeActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.yearChange
}

// Wait blocks until every spawned operation has returned. Intended for
// shutdown and tests.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}
