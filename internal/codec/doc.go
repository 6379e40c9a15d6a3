// Package codec decodes the obfuscation schemes sites use to hide page
// lists: OpenSSL-compatible AES-256-CBC with a password-derived key, and a
// character substitution over two permutations of [0-9A-Za-z].
package codec

import "errors"

// ErrDecode is returned (wrapped) for any payload that cannot be decoded.
var ErrDecode = errors.New("codec: decode failed")
