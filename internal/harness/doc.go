// Package harness runs scripted history scenarios against a fresh store.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: delete_middle
//	description: "Deleting the middle record keeps the others in order"
//	steps:
//	  - op: insert
//	    as: r
//	    repeat: 3
//	    interval: 1m
//	    args: { host: h, topic: t, message: m, created_at: "2024-01-01T00:00:00Z" }
//	  - op: delete
//	    ref: r2
//	    expect: { deleted: 1 }
//	  - op: list
//	    expect: { refs: [r3, r1] }
//
// Supported operations:
//
//   - insert: stores args; "as" names the record for later steps. With
//     repeat N the aliases are <as>1..<as>N and created_at advances by
//     interval per record.
//   - delete: removes the record named by ref, or a literal id.
//   - list: the recent-window listing.
//   - count: the number of stored records.
//
// Each step may carry an expect clause (error code, deleted count, list
// length, alias order or record count). Mismatches are collected in the
// Result rather than aborting the run.
//
// # Determinism
//
// Every run uses an in-memory SQLite store with sequence ids ("rec-000001",
// …), so traces are identical across runs and can be compared against
// golden files.
package harness
