// Package graph provides the mutable IR substrate the replay engine
// operates on: modules containing functions containing nodes.
//
// This package contains representation and bookkeeping only; it knows
// nothing about placeholders or opcodes. All other internal packages
// import graph; graph imports nothing internal.
//
// Key design constraints:
//   - Every Value carries an explicit use list (back-edges). Operand
//     mutation, node construction, and erasure keep use lists consistent
//     automatically; there is no raw pointer patching.
//   - Nodes are erased only when unused; ReplaceAllUses conserves the
//     total use count, so rewire-then-erase can never dangle.
//   - Print produces a deterministic textual form; structurally identical
//     modules always print identically, which is what the idempotency
//     tests and golden files rely on.
package graph
