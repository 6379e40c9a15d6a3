package codec

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Alphabet is the character set both substitution tables permute.
const Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Translate maps every character of s found in from to the character at the
// same position in to. Other characters pass through.
func Translate(s, from, to string) string {
	table := make(map[rune]rune, len(from))
	tr := []rune(to)
	for i, r := range []rune(from) {
		if i < len(tr) {
			table[r] = tr[i]
		}
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if m, ok := table[r]; ok {
			r = m
		}
		b.WriteRune(r)
	}

	return b.String()
}

// Unscramble undoes a two-table character substitution. The direction is not
// known up front, so A->B is tried before B->A and the first translation that
// base64-decodes to valid JSON wins. The translated text is returned.
func Unscramble(blob, tableA, tableB string) (string, error) {
	text, _, err := unscramble(blob, tableA, tableB)
	return text, err
}

// UnscrambleJSON is Unscramble followed by the base64 decode.
func UnscrambleJSON(blob, tableA, tableB string) ([]byte, error) {
	_, payload, err := unscramble(blob, tableA, tableB)
	return payload, err
}

func unscramble(blob, tableA, tableB string) (string, []byte, error) {
	if err := checkTable(tableA); err != nil {
		return "", nil, err
	}
	if err := checkTable(tableB); err != nil {
		return "", nil, err
	}

	blob = strings.TrimSpace(blob)
	for _, dir := range [][2]string{{tableA, tableB}, {tableB, tableA}} {
		text := Translate(blob, dir[0], dir[1])
		if payload, ok := decodeJSON64(text); ok {
			return text, payload, nil
		}
	}

	return "", nil, fmt.Errorf("%w: no table ordering yields json", ErrDecode)
}

func decodeJSON64(text string) ([]byte, bool) {
	raw, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(text, "="))
		if err != nil {
			return nil, false
		}
	}

	if !utf8.Valid(raw) || !json.Valid(raw) {
		return nil, false
	}

	return raw, true
}

func checkTable(t string) error {
	if len(t) != len(Alphabet) {
		return fmt.Errorf("%w: table has %d characters, want %d", ErrDecode, len(t), len(Alphabet))
	}

	seen := make(map[rune]bool, len(t))
	for _, r := range t {
		if !strings.ContainsRune(Alphabet, r) || seen[r] {
			return fmt.Errorf("%w: table is not a permutation of %s", ErrDecode, Alphabet)
		}
		seen[r] = true
	}

	return nil
}
