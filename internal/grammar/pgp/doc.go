// Package pgp implements an OpenPGP-style packet stream grammar: a sequence
// of packets whose tag byte selects old or new format framing, with one, two
// and five-octet lengths, indeterminate old-format bodies, and new-format
// partial body lengths decoded as chunked indefinite constructs.
package pgp
