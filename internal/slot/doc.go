// Package slot defines the calendar slot domain: Events, SwapRequests, the
// status state machine that governs them, and the error taxonomy shared by
// every layer above it.
//
// # Status State Machine
//
//	BUSY <-> SWAPPABLE        owner toggles
//	SWAPPABLE -> SWAP_PENDING coordinator lock
//	SWAP_PENDING -> BUSY      coordinator accept
//	SWAP_PENDING -> SWAPPABLE coordinator reject
//
// Owners never name SWAP_PENDING: owner input is parsed into OwnerStatus,
// which cannot hold it. Only the swap coordinator drives the locked state.
//
// # Consistency
//
// For every Event outside an in-flight operation:
//   - SWAP_PENDING iff exactly one PENDING SwapRequest references it
//   - never referenced by two PENDING SwapRequests
//
// CheckConsistency evaluates both over a snapshot.
package slot
