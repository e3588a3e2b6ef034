// Package health scores the reliability of each room sensor.
//
// Every sensor cycle a room's score moves once: up by a small reward when
// the poll succeeded (but never above the battery state), down by a fixed
// penalty when it failed. The score is bounded to [0, 100] and mapped to
// a red/orange/green LED state by two monotonic thresholds.
//
// The package holds no state. The previous score is read back from the
// rooms table by the caller and the new one is queued for writing.
package health
