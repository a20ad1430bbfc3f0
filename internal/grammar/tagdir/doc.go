// Package tagdir implements a TIFF-style tag directory grammar: a byte-order
// mark, a magic number, and a chain of directories holding count-prefixed
// fixed-width entries whose larger payloads live at absolute offsets
// elsewhere in the buffer.
package tagdir
