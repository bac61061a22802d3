// Package ir provides the value model shared by every entsync package.
//
// Payloads arriving from a network API are decoded into IRValue trees
// (IRObject, IRArray and scalars). Transformers produce two additional
// scalar kinds, IRTime and IRDecimal, that never appear in decoded payloads
// but are stored on entities.
//
// This package imports nothing internal. Key design constraints:
//   - JSON null decodes to IRNull, never to a nil interface
//   - Integral numbers decode to IRInt; everything else numeric is IRFloat
//   - Canonical encoding (RFC 8785 key order, NFC strings) is the only
//     encoding used for storage and hashing
package ir
