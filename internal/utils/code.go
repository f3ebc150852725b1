package utils // package utils provides helper functions for token and code creation

import "crypto/rand" // secure random number generation

// codeAlphabet is the restricted alphabet order codes are drawn from.
// Ambiguous characters (0/O, 1/I/L) are excluded so codes survive
// being read aloud or retyped from a chat message.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// OrderCodeLength is the fixed length of every generated order code.
const OrderCodeLength = 8

// NewOrderCode returns a fixed-length random code over the restricted
// alphabet.  The underlying call to crypto/rand makes codes
// unguessable; with 31 symbols over 8 positions the space is large
// enough that collisions are handled by a simple retry at the caller.
func NewOrderCode() (string, error) {
	buf := make([]byte, OrderCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, OrderCodeLength)
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(out), nil
}
