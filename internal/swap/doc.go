// Package swap coordinates slot ownership changes between users.
//
// The Service validates every request with the rules in package slot and
// then submits exactly one store.Batch. Each batch is conditional on the
// record versions the Service read, so:
//
//   - RequestSwap inserts the request, moves both slots to SWAP_PENDING and
//     records both locks, or does nothing.
//   - RespondToSwap resolves the request, moves both slots out of
//     SWAP_PENDING (exchanging owners on accept) and drops both locks, or
//     does nothing.
//   - Owner updates and deletes lose to a concurrent lock instead of
//     overwriting it.
//
// A lost race surfaces as slot.ErrConflict, which callers may retry. The
// Service holds no locks of its own and never retries.
package swap
