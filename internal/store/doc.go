// Package store provides the PostgreSQL persistence layer.
//
// Live task state is held in memory by the orchestration layer; this package
// archives terminal tasks so their results survive a restart. The archive is
// optional and the application runs without it when no database URL is
// configured.
package store
