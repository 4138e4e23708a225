// Package task manages the lifecycle and background execution of
// generation work. The Store is the authoritative state machine for each
// task; the Runner drains a bounded queue with a pool of workers, drives
// tasks through running to a terminal state, feeds synthetic progress to
// observers while the real work executes, and records a performance
// metric for every finished attempt.
package task
