// Package cbor implements the CBOR (RFC 8949) grammar for the TLV decoder.
// It dispatches on the major type in the top 3 bits of the initial byte and
// handles both definite and indefinite-length containers, tagged values,
// simple values and all three float widths.
package cbor
