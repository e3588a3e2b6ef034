// Package buffer queues rows between the moment a reading is taken and
// the moment it is durable in the database.
//
// Rows are kept per table and written in one batch per flush. A flush
// that fails leaves the queue exactly as it was, so a locked database
// costs nothing but a later retry. Tables declare their natural key and
// whether writes append or replace, which makes replays idempotent.
package buffer
