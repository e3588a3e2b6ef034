// Package scheduler runs the sampling loop of the climate daemon.
//
// One goroutine owns two independent cadences, one per device class.
// Every tick it checks, class by class, whether a sample pass is due
// (poll every device of the class in configuration order) and whether a
// report is due (flush the class's tables). Sample times snap to a grid
// derived from the cycle time, so a slow pass never shifts later passes
// by more than one grid cell.
//
// Failures stay local: a device that fails its poll and its single retry
// contributes "no data" for that cycle. A busy database leaves rows
// queued for the next report tick. A fatal database error ends Run after
// one last flush attempt.
package scheduler
