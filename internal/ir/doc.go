// Package ir provides the canonical value representation used for identity.
//
// Subjects, variants and produced values are compared by content. To make
// that comparison total and deterministic across runs, values are lowered into
// a small sealed value model (Null, String, Int, Bool, Array, Object), encoded
// as RFC 8785 canonical JSON, and hashed with domain separation.
//
// Key design constraints:
//   - NO floats: build products are discrete, and float text forms are not stable
//   - Object keys sorted by UTF-16 code units, strings NFC normalized
//   - ir imports nothing internal; every other package may import it
package ir
