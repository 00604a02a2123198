// Package storage provides the durable key-value layer behind the follower
// snapshot, report, and notification-gate stores.
//
// It currently supports:
//   - file: one JSON document per bucket/key (human-diffable, atomic replace)
//   - sqlite: single database file (build with -tags sqlite)
package storage
