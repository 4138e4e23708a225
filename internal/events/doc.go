// Package events delivers task-state transitions to observers. A
// Broadcaster fans each published event out to every live subscription for
// that task id with best-effort, at-most-once delivery; the terminal event
// closes the task's subscriptions. Observers that cannot hold a push
// channel poll the task store instead - both paths converge on the same
// terminal task record, so they are interchangeable.
package events
