// Package harness runs slot swap scenarios against a fresh store.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: accept_swap
//	description: "A two-party swap that is accepted"
//	steps:
//	  - {as: u1, op: create_event, bind: a, title: "Standup", start: 0h, end: 1h, status: SWAPPABLE}
//	  - {as: u2, op: create_event, bind: b, title: "Review", start: 2h, end: 3h, status: SWAPPABLE}
//	  - {as: u1, op: request_swap, bind: r, my_slot: a, their_slot: b}
//	  - {as: u2, op: respond_swap, request: r, accept: true}
//	  - {as: u1, op: request_swap, my_slot: b, their_slot: a, expect: INVALID_OPERATION}
//	assertions:
//	  - {type: event, event: a, owner: u2, status: BUSY}
//	  - {type: request, request: r, status: ACCEPTED}
//	  - {type: consistent}
//
// Steps run in order as the user named by "as". Events and requests created
// by a step are bound to the name in "bind" and referred to by that name
// afterwards. Times are offsets from BaseTime. A step expects OK unless
// "expect" names an error code.
//
// Files are checked against a CUE schema before decoding, so unknown fields
// and missing per-operation arguments are reported with the field path.
//
// # Assertion Types
//
//   - event: owner, status and version of a bound event (status DELETED
//     asserts that it no longer exists)
//   - request: status of a bound request
//   - consistent: the store passes the swap audit
//   - journal_count: an operation appears exactly N times in the journal
//   - journal_order: operations appear in the journal in the given order
//   - swappable: the slots offered to a user, in order
//
// # Deterministic Testing
//
// Every run uses an in-memory SQLite store, a step clock starting at
// testutil.DefaultEpoch and sequential ids ("id-1", "id-2", ...), so the
// rendered trace is byte-identical across runs and can be compared with a
// golden file.
package harness
