// Package api contains the HTTP handlers for the task orchestration API.
//
// Handlers depend on small consumer-side interfaces rather than concrete
// stores, so the transport layer stays decoupled from the orchestration
// machinery behind it.
package api
