// Package database provides SQLite connectivity for the climate daemon.
//
// This package manages:
//   - The connection, with WAL mode and a busy timeout in the DSN
//   - Embedded schema migrations (.up.sql / .down.sql pairs)
//   - Health checks and the startup SQLite version probe
//
// Readings are written by internal/storage through this connection. The
// database file is shared with the website, so lock contention is
// expected: the busy timeout absorbs short locks and the storage layer
// reports anything longer as a transient error.
//
// Usage:
//
//	db, err := database.Open(database.FromConfig(cfg.Database))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
package database
