// Package testutil provides a simulated measurement stack for tests and
// examples.
//
// This package is intended for use in tests and examples only. It provides
// a deterministic device, contact array and measurement that exercise the
// orchestration and storage paths without hardware:
//
//	device := testutil.NewSimDevice()
//	array := testutil.NewSimArray(2, 2)
//	m := testutil.NewSimMeasurement(-1, 1, 11)
//
// Failure injection knobs (FailContacts, FailSelect, Fault) reproduce
// per-contact failures, selection failures and device faults.
package testutil
