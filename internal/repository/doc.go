// Package repository defines the data access interfaces for tesim.
//
// A run row records the parameters a simulation was driven with (seed,
// error rates of both channels, timing) and its lifecycle status. Tick rows
// hold the vectors sampled every save_every scans together with the channel
// state rendering of each direction.
//
// # SQLite Implementation
//
// The sqlite subpackage stores both tables in a single SQLite file using the
// pure Go modernc.org/sqlite driver. Vectors are stored as JSON columns.
// Ticks are appended in batches inside one transaction so a run can flush
// its buffer without holding the database for every scan.
//
// # Schema Migration
//
// The schema is created on open with CREATE TABLE IF NOT EXISTS; opening an
// existing file leaves stored runs untouched.
package repository
