// Package ir provides the value model and serialized records for nodeplay.
//
// This package contains type definitions and encodings only. All other
// internal packages import ir; ir imports nothing internal. This keeps the
// persisted format the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Property values are IRValue; numbers keep int/float distinct
//   - Records use the camelCase JSON tags of the persisted graph format
//   - Content hashes are computed over RFC 8785 canonical JSON only
package ir
