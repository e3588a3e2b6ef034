// Package storage persists queued readings into the climate SQLite database.
//
// It defines the data, aircon and rooms tables as buffer.TableSpecs and
// implements buffer.Sink with one transaction per flush. SQLITE_BUSY and
// SQLITE_LOCKED are surfaced as buffer.ErrTransient so the rows stay
// queued; any other database error is fatal to the daemon.
package storage
