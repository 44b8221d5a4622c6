// Package storage persists small settings (such as the launch-at-login
// intent) and an append-only audit trail of user actions.
//
// Drivers:
//   - "file": settings snapshot + journal and an audit JSON Lines file
//   - "sqlite": a single SQLite database (modernc.org/sqlite, no cgo)
//   - "memory": process lifetime only
package storage
