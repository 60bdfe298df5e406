// Package model defines the structured record types exchanged between
// measurements, the experiment orchestrator and the storage engine.
//
// A Record is one row of named numeric fields with units, produced by a
// measurement procedure. A Table is the load-side aggregate: the rows that
// accumulated for one contact over a run.
package model
