// Package metrics keeps a bounded historical ledger of generation attempt
// durations, partitioned by task kind, and derives the rolling averages
// used to seed synthetic progress estimates. Retention is capped per kind;
// inserting past the cap evicts the oldest entries in the same logical
// operation, so readers never observe more than the cap.
package metrics
