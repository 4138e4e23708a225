// Package domain defines the core business entities for asynchronous
// generation work: tasks, their lifecycle statuses, the closed set of
// operation kinds, and the performance metrics used to estimate progress.
// Entities validate themselves; lifecycle transitions are owned by the
// task store.
package domain
