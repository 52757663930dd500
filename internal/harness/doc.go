// Package harness runs YAML-defined integration scenarios against a
// fresh daybook database.
//
// A scenario is a sequence of journal operations (add, update, pin,
// delete, remind, backfill, roundtrip) followed by assertions on the
// resulting state. Every run opens its own in-memory database, drives
// the real store, codec, and journal service, and records a
// deterministic trace of the steps it executed. Traces are compared
// against golden files, so a change in how a flow behaves shows up as
// a readable diff rather than a buried assertion failure.
//
// Scenarios deliberately exercise the full stack: content written by a
// step is sealed by the at-rest codec on the way in and opened on the
// way out, and the sealed_at_rest assertion inspects raw rows to prove
// that no plaintext reached the file.
package harness
