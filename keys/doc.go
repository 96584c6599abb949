// Package keys provides deployer key helpers for signing program manifests.
//
// API stability:
//
// Stable:
//   - Pure, deterministic primitives for authority-key formatting, program ID
//     derivation, and role-seed derivation.
//
// Experimental:
//   - Filesystem-backed key storage and convenience helpers (KeyStore and
//     related functions). These are local-first utilities.
package keys
