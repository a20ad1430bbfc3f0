// Package decode implements the generic TLV decoder engine: a bounds-checked
// byte cursor, declarative field specifications, and the decode context that
// produces a node tree plus aggregate statistics for one input buffer.
// Format-specific dispatch lives in the grammar packages.
package decode
