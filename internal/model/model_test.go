package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStableID(t *testing.T) {
	a := StableID("https://example.com/manga/one/chapter-1")
	b := StableID("  https://example.com/manga/one/chapter-1 ")
	c := StableID("https://example.com/manga/one/chapter-2")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 36)
}
